package s3

import (
	"testing"
	"time"
)

func TestObjectKey(t *testing.T) {
	at := time.Date(2026, 3, 9, 23, 30, 0, 0, time.FixedZone("WIB", 7*3600))
	got := objectKey("liveness/thumbnails", "01HX", at)
	want := "liveness/thumbnails/2026/03/09/01HX.jpg"
	if got != want {
		t.Errorf("objectKey() = %q, want %q", got, want)
	}
}

func TestExtractKeyFromS3Url(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://bucket.s3.amazonaws.com/liveness/thumbnails/a.jpg", "liveness/thumbnails/a.jpg"},
		{"liveness/thumbnails/a.jpg", "liveness/thumbnails/a.jpg"},
	}
	for _, tt := range tests {
		if got := extractKeyFromS3Url(tt.in); got != tt.want {
			t.Errorf("extractKeyFromS3Url(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewWithoutBucket(t *testing.T) {
	t.Setenv("AWS_BUCKET_NAME", "")
	if _, err := New(); err != ErrBucketNotConfigured {
		t.Errorf("New() error = %v, want ErrBucketNotConfigured", err)
	}
}
