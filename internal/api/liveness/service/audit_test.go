package livenessService

import (
	"FaceLiveness/internal/entity"
	"FaceLiveness/pkg/utils"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
)

type fakeS3 struct {
	err      error
	uploaded []string
}

func (f *fakeS3) UploadThumbnail(_ context.Context, name string, _ []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploaded = append(f.uploaded, name)
	return "https://bucket.example/" + name + ".jpg", nil
}

func (f *fakeS3) PresignUrl(fileUrl string) (string, error) {
	return fileUrl + "?signed", nil
}

func cropImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.Gray{Y: uint8(x * 8)})
		}
	}
	return img
}

func TestRecorderDropsWhenQueueIsFull(t *testing.T) {
	store := &memoryLogStore{
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
	r := NewRecorder(fakeRepository{store: store}, nil, utils.New(), quietLogger(), 1)

	if !r.Record(AuditRecord{Log: entity.InferenceLog{ID: "1"}}) {
		t.Fatal("first record dropped")
	}
	<-store.started

	if !r.Record(AuditRecord{Log: entity.InferenceLog{ID: "2"}}) {
		t.Fatal("queued record dropped")
	}
	if r.Record(AuditRecord{Log: entity.InferenceLog{ID: "3"}}) {
		t.Fatal("record accepted past queue capacity")
	}

	close(store.release)
	r.Close()

	got := store.stored()
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "2" {
		t.Errorf("stored = %+v, want ids 1 and 2", got)
	}

	if r.Record(AuditRecord{Log: entity.InferenceLog{ID: "4"}}) {
		t.Error("record accepted after Close")
	}
	r.Close()
}

func TestRecorderThumbnails(t *testing.T) {
	tests := []struct {
		name       string
		s3         *fakeS3
		wantURL    bool
		wantInline bool
	}{
		{name: "inline without storage", wantInline: true},
		{name: "uploaded", s3: &fakeS3{}, wantURL: true},
		{name: "upload failure falls back inline", s3: &fakeS3{err: errors.New("access denied")}, wantInline: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryLogStore{}
			var r *Recorder
			if tt.s3 != nil {
				r = NewRecorder(fakeRepository{store: store}, tt.s3, utils.New(), quietLogger(), 4)
			} else {
				r = NewRecorder(fakeRepository{store: store}, nil, utils.New(), quietLogger(), 4)
			}

			r.Record(AuditRecord{Log: entity.InferenceLog{ID: "01J", SessionID: "s"}, Crop: cropImage()})
			r.Close()

			got := store.stored()
			if len(got) != 1 {
				t.Fatalf("stored %d logs, want 1", len(got))
			}
			if (got[0].ThumbnailURL != "") != tt.wantURL {
				t.Errorf("ThumbnailURL = %q", got[0].ThumbnailURL)
			}
			if (len(got[0].Thumbnail) > 0) != tt.wantInline {
				t.Errorf("inline thumbnail bytes = %d", len(got[0].Thumbnail))
			}
			if tt.wantURL && len(tt.s3.uploaded) != 1 {
				t.Errorf("uploads = %v", tt.s3.uploaded)
			}
		})
	}
}

func TestRecentLogsPresignsThumbnails(t *testing.T) {
	store := &memoryLogStore{logs: []entity.InferenceLog{
		{ID: "a", ThumbnailURL: "https://bucket.example/a.jpg"},
		{ID: "b"},
	}}
	svc, _ := newTestService(t, serviceOptions{repo: &fakeRepository{store: store}})
	svc.s3Client = &fakeS3{}

	logs, err := svc.RecentLogs(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if logs[0].ID != "b" || logs[0].ThumbnailURL != "" {
		t.Errorf("logs[0] = %+v", logs[0])
	}
	if logs[1].ThumbnailURL != "https://bucket.example/a.jpg?signed" {
		t.Errorf("logs[1].ThumbnailURL = %q", logs[1].ThumbnailURL)
	}
}
