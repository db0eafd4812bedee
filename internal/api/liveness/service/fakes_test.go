package livenessService

import (
	livenessRepository "FaceLiveness/internal/api/liveness/repository"
	"FaceLiveness/internal/entity"
	livenessPkg "FaceLiveness/pkg/liveness"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func encodedFrame(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

type fixedLocator struct {
	region *livenessPkg.FaceRegion
	err    error
}

func (l fixedLocator) Locate(image.Image) (*livenessPkg.FaceRegion, error) {
	if l.region == nil {
		return nil, l.err
	}
	r := *l.region
	return &r, l.err
}

// queuedLandmarks hands out one sample per call.
type queuedLandmarks struct {
	mu      sync.Mutex
	samples []*livenessPkg.LandmarkSample
}

func (q *queuedLandmarks) Landmarks(image.Image) (*livenessPkg.LandmarkSample, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.samples) == 0 {
		return nil, nil
	}
	s := q.samples[0]
	q.samples = q.samples[1:]
	return s, nil
}

func landmarkSample(ear float64, noseX float64) *livenessPkg.LandmarkSample {
	eye := livenessPkg.EyeLandmarks{
		Top:    livenessPkg.Point{X: 0.5, Y: 0.4},
		Bottom: livenessPkg.Point{X: 0.5, Y: 0.4 + ear*0.1},
		Left:   livenessPkg.Point{X: 0.45, Y: 0.42},
		Right:  livenessPkg.Point{X: 0.55, Y: 0.42},
	}
	return &livenessPkg.LandmarkSample{
		LeftEye:  eye,
		RightEye: eye,
		Nose:     livenessPkg.Point{X: noseX, Y: 0.5},
	}
}

func scorer(score float64, err error) livenessPkg.Scorer {
	return livenessPkg.ScorerFunc(func(livenessPkg.Tensor) (float64, error) {
		return score, err
	})
}

type recordedLogs struct {
	mu      sync.Mutex
	records []AuditRecord
}

func (r *recordedLogs) Record(rec AuditRecord) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return true
}

func (r *recordedLogs) Close() {}

func (r *recordedLogs) all() []AuditRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AuditRecord(nil), r.records...)
}

// memoryLogStore backs a fake repository.
type memoryLogStore struct {
	mu      sync.Mutex
	logs    []entity.InferenceLog
	started chan struct{}
	release chan struct{}
	failGet bool
}

func (m *memoryLogStore) CreateInferenceLog(_ context.Context, log entity.InferenceLog) error {
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *memoryLogStore) GetRecentInferenceLogs(_ context.Context, limit int) ([]entity.InferenceLog, error) {
	if m.failGet {
		return nil, errors.New("connection refused")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.InferenceLog, 0, limit)
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.logs[i])
	}
	return out, nil
}

func (m *memoryLogStore) stored() []entity.InferenceLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.InferenceLog(nil), m.logs...)
}

type fakeRepository struct {
	store *memoryLogStore
}

func (f fakeRepository) NewClient(bool) (livenessRepository.Client, error) {
	return livenessRepository.Client{
		InferenceLog: f.store,
		Commit:       func() error { return nil },
		Rollback:     func() error { return nil },
	}, nil
}

func (f fakeRepository) EnsureSchema(context.Context) error {
	return nil
}
