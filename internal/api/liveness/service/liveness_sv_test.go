package livenessService

import (
	"FaceLiveness/internal/api/liveness"
	"FaceLiveness/internal/entity"
	livenessPkg "FaceLiveness/pkg/liveness"
	"FaceLiveness/pkg/redis"
	"FaceLiveness/pkg/utils"
	"context"
	"errors"
	"testing"
	"time"
)

type serviceOptions struct {
	score     livenessPkg.Scorer
	locator   livenessPkg.FaceLocator
	landmarks livenessPkg.LandmarkSource
	recorder  IRecorder
	repo      *fakeRepository
	mode      redis.IModeStore
}

func entityLog(id string) entity.InferenceLog {
	return entity.InferenceLog{ID: id, SessionID: "session", Timestamp: time.Now(), IsReal: true, Confidence: 0.9}
}

var faceAt = &livenessPkg.FaceRegion{X: 60, Y: 40, Width: 80, Height: 90}

func newTestService(t *testing.T, opts serviceOptions) (*livenessService, *livenessPkg.Registry) {
	t.Helper()
	if opts.score == nil {
		opts.score = scorer(0.9, nil)
	}
	if opts.locator == nil {
		opts.locator = fixedLocator{region: faceAt}
	}
	if opts.mode == nil {
		opts.mode = redis.NewMemoryStore(false)
	}

	log := quietLogger()
	registry := livenessPkg.NewRegistry()
	pool := NewWorkerPool(2, log)
	t.Cleanup(pool.Shutdown)

	svc := &livenessService{
		log:       log,
		detector:  livenessPkg.NewDetector(livenessPkg.NewModelClassifier(opts.score), log),
		locator:   opts.locator,
		landmarks: opts.landmarks,
		registry:  registry,
		mode:      opts.mode,
		pool:      pool,
		recorder:  opts.recorder,
		utils:     utils.New(),
	}
	if opts.repo != nil {
		svc.repo = opts.repo
	}
	return svc, registry
}

func TestProcessFrame(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		opts        serviceOptions
		frame       func(t *testing.T) string
		wantErr     error
		wantFace    bool
		wantMessage string
		wantReal    bool
	}{
		{
			name:     "real face",
			frame:    func(t *testing.T) string { return encodedFrame(t, 200, 160) },
			wantFace: true,
			wantReal: true,
		},
		{
			name:     "spoof face",
			opts:     serviceOptions{score: scorer(0.2, nil)},
			frame:    func(t *testing.T) string { return encodedFrame(t, 200, 160) },
			wantFace: true,
		},
		{
			name:        "no face",
			opts:        serviceOptions{locator: fixedLocator{}},
			frame:       func(t *testing.T) string { return encodedFrame(t, 200, 160) },
			wantMessage: liveness.MessageNoFace,
		},
		{
			name:        "face outside frame",
			opts:        serviceOptions{locator: fixedLocator{region: &livenessPkg.FaceRegion{X: 500, Y: 500, Width: 10, Height: 10}}},
			frame:       func(t *testing.T) string { return encodedFrame(t, 200, 160) },
			wantMessage: liveness.MessageExtractFailed,
		},
		{
			name:    "undecodable frame",
			frame:   func(*testing.T) string { return "bm90IGFuIGltYWdl" },
			wantErr: liveness.ErrFrameDecode,
		},
		{
			name:    "locator failure",
			opts:    serviceOptions{locator: fixedLocator{err: errors.New("service down")}},
			frame:   func(t *testing.T) string { return encodedFrame(t, 200, 160) },
			wantErr: liveness.ErrInference,
		},
		{
			name:    "classifier failure",
			opts:    serviceOptions{score: scorer(0, errors.New("forward failed"))},
			frame:   func(t *testing.T) string { return encodedFrame(t, 200, 160) },
			wantErr: liveness.ErrInference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, tt.opts)
			session, err := svc.OpenSession(ctx)
			if err != nil {
				t.Fatal(err)
			}

			got, err := svc.ProcessFrame(ctx, session, tt.frame(t))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ProcessFrame() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ProcessFrame() unexpected error: %v", err)
			}
			if got.FaceDetected != tt.wantFace {
				t.Fatalf("FaceDetected = %v, want %v", got.FaceDetected, tt.wantFace)
			}
			if !tt.wantFace {
				if got.Message != tt.wantMessage {
					t.Errorf("Message = %q, want %q", got.Message, tt.wantMessage)
				}
				return
			}
			if got.IsReal != tt.wantReal {
				t.Errorf("IsReal = %v, want %v", got.IsReal, tt.wantReal)
			}
			if got.BBox != faceAt.BBox() {
				t.Errorf("BBox = %v, want %v", got.BBox, faceAt.BBox())
			}
			if got.ActiveCheckMessage != "" || got.ActiveCheckPassed {
				t.Errorf("active fields set with the check disabled: %+v", got.Result)
			}
		})
	}
}

func TestProcessFrameActiveChallenge(t *testing.T) {
	ctx := context.Background()
	landmarks := &queuedLandmarks{samples: []*livenessPkg.LandmarkSample{
		landmarkSample(0.35, 0.50),
		landmarkSample(0.10, 0.50),
		landmarkSample(0.35, 0.55),
	}}
	svc, _ := newTestService(t, serviceOptions{landmarks: landmarks})

	session, err := svc.OpenSession(ctx)
	if err != nil {
		t.Fatal(err)
	}
	svc.SetSessionActiveCheck(session, true)

	frame := encodedFrame(t, 200, 160)
	wantStatus := []livenessPkg.ActiveStatus{livenessPkg.StatusNeedBoth, livenessPkg.StatusNeedTurn, livenessPkg.StatusPassed}
	for i, want := range wantStatus {
		got, err := svc.ProcessFrame(ctx, session, frame)
		if err != nil {
			t.Fatalf("frame %d: %v", i+1, err)
		}
		if got.ActiveCheckStatus != want {
			t.Errorf("frame %d: status = %v, want %v", i+1, got.ActiveCheckStatus, want)
		}
		if got.IsReal != (want == livenessPkg.StatusPassed) {
			t.Errorf("frame %d: IsReal = %v", i+1, got.IsReal)
		}
	}

	svc.ResetSession(session)
	if session.State() != (livenessPkg.ActiveState{}) {
		t.Errorf("ResetSession left %+v", session.State())
	}
}

func TestClassifierFailureKeepsChallengeProgress(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, serviceOptions{
		score:     scorer(0, errors.New("boom")),
		landmarks: &queuedLandmarks{samples: []*livenessPkg.LandmarkSample{landmarkSample(0.1, 0.9)}},
	})

	session, _ := svc.OpenSession(ctx)
	svc.SetSessionActiveCheck(session, true)
	session.Do(func(state *livenessPkg.ActiveState) { state.BlinkCount = 1 })

	if _, err := svc.ProcessFrame(ctx, session, encodedFrame(t, 120, 120)); !errors.Is(err, liveness.ErrInference) {
		t.Fatalf("ProcessFrame() error = %v, want ErrInference", err)
	}
	if got := session.State(); got.BlinkCount != 1 || got.EyesClosed || got.PrevNose != nil {
		t.Errorf("state changed after failed inference: %+v", got)
	}
}

func TestProcessFrameRespectsCancelledContext(t *testing.T) {
	svc, _ := newTestService(t, serviceOptions{})
	session, _ := svc.OpenSession(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.ProcessFrame(ctx, session, encodedFrame(t, 64, 64)); !errors.Is(err, context.Canceled) {
		t.Errorf("ProcessFrame() error = %v, want context.Canceled", err)
	}
}

func TestToggleActiveCheckResetsSessions(t *testing.T) {
	ctx := context.Background()
	svc, registry := newTestService(t, serviceOptions{})

	session, _ := svc.OpenSession(ctx)
	session.Do(func(state *livenessPkg.ActiveState) {
		state.BlinkCount = 2
		state.HeadMoved = true
	})

	enabled, err := svc.ToggleActiveCheck(ctx)
	if err != nil || !enabled {
		t.Fatalf("ToggleActiveCheck() = %v, %v; want true, nil", enabled, err)
	}
	if session.State() != (livenessPkg.ActiveState{}) {
		t.Errorf("toggling on kept progress: %+v", session.State())
	}
	if !svc.ActiveCheckEnabled(ctx) {
		t.Error("global mode not enabled")
	}

	session.Do(func(state *livenessPkg.ActiveState) { state.BlinkCount = 1 })
	enabled, err = svc.ToggleActiveCheck(ctx)
	if err != nil || enabled {
		t.Fatalf("second ToggleActiveCheck() = %v, %v; want false, nil", enabled, err)
	}
	if session.State().BlinkCount != 1 {
		t.Error("toggling off reset the challenge")
	}

	svc.CloseSession(session.ID)
	if registry.Len() != 0 {
		t.Errorf("registry still holds %d sessions", registry.Len())
	}
}

func TestToggleOnOtherReplicaResetsSessions(t *testing.T) {
	ctx := context.Background()
	shared := redis.NewMemoryStore(true)

	replicaA, _ := newTestService(t, serviceOptions{mode: shared})
	replicaB, _ := newTestService(t, serviceOptions{
		mode: shared,
		landmarks: &queuedLandmarks{samples: []*livenessPkg.LandmarkSample{
			landmarkSample(0.35, 0.5),
			landmarkSample(0.35, 0.5),
			landmarkSample(0.35, 0.5),
		}},
	})

	session, _ := replicaB.OpenSession(ctx)
	if _, err := replicaB.ProcessFrame(ctx, session, encodedFrame(t, 200, 160)); err != nil {
		t.Fatal(err)
	}

	session.Do(func(state *livenessPkg.ActiveState) {
		state.BlinkCount = 1
		state.HeadMoved = true
	})
	got, err := replicaB.ProcessFrame(ctx, session, encodedFrame(t, 200, 160))
	if err != nil {
		t.Fatal(err)
	}
	if got.ActiveCheckStatus != livenessPkg.StatusPassed {
		t.Fatalf("status before toggle = %s, want PASSED", got.ActiveCheckStatus)
	}

	for _, want := range []bool{false, true} {
		enabled, err := replicaA.ToggleActiveCheck(ctx)
		if err != nil || enabled != want {
			t.Fatalf("ToggleActiveCheck() = %v, %v; want %v", enabled, err, want)
		}
	}

	got, err = replicaB.ProcessFrame(ctx, session, encodedFrame(t, 200, 160))
	if err != nil {
		t.Fatal(err)
	}
	if got.IsReal || got.ActiveCheckPassed || got.ActiveCheckStatus != livenessPkg.StatusNeedBoth {
		t.Errorf("progress survived a toggle on another replica: %+v", got.Result)
	}
	if state := session.State(); state.BlinkCount != 0 || state.HeadMoved {
		t.Errorf("state after toggle = %+v, want fresh challenge", state)
	}
}

func TestGlobalModeAppliesWithoutOverride(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, serviceOptions{
		mode:      redis.NewMemoryStore(true),
		landmarks: &queuedLandmarks{samples: []*livenessPkg.LandmarkSample{landmarkSample(0.35, 0.5)}},
	})

	session, _ := svc.OpenSession(ctx)
	got, err := svc.ProcessFrame(ctx, session, encodedFrame(t, 200, 160))
	if err != nil {
		t.Fatal(err)
	}
	if got.IsReal || got.ActiveCheckStatus != livenessPkg.StatusNeedBoth || !got.ActiveCheckEnabled {
		t.Errorf("global mode ignored: %+v", got)
	}

	svc.SetSessionActiveCheck(session, false)
	got, err = svc.ProcessFrame(ctx, session, encodedFrame(t, 200, 160))
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsReal || got.ActiveCheckEnabled {
		t.Errorf("session override ignored: %+v", got)
	}
}

func TestProcessFrameRecordsAudit(t *testing.T) {
	ctx := context.Background()
	recorder := &recordedLogs{}
	svc, _ := newTestService(t, serviceOptions{recorder: recorder})

	session, _ := svc.OpenSession(ctx)
	if _, err := svc.ProcessFrame(ctx, session, encodedFrame(t, 200, 160)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ProcessFrame(ctx, session, "%%%"); err == nil {
		t.Fatal("expected decode error")
	}

	records := recorder.all()
	if len(records) != 1 {
		t.Fatalf("recorded %d logs, want 1", len(records))
	}
	rec := records[0]
	if rec.Log.SessionID != session.ID || rec.Log.ID == "" || !rec.Log.IsReal {
		t.Errorf("log = %+v", rec.Log)
	}
	if rec.Log.Metadata.BBox != faceAt.BBox() || rec.Log.Metadata.FrameWidth != 200 || rec.Log.Metadata.FrameHeight != 160 {
		t.Errorf("metadata = %+v", rec.Log.Metadata)
	}
	if b := rec.Crop.Bounds(); b.Dx() != livenessPkg.CropSize || b.Dy() != livenessPkg.CropSize {
		t.Errorf("crop bounds = %v", b)
	}
}

func TestRecentLogs(t *testing.T) {
	ctx := context.Background()

	t.Run("audit disabled", func(t *testing.T) {
		svc, _ := newTestService(t, serviceOptions{})
		if _, err := svc.RecentLogs(ctx, 10); !errors.Is(err, liveness.ErrAuditDisabled) {
			t.Errorf("error = %v, want ErrAuditDisabled", err)
		}
	})

	t.Run("limit bounds", func(t *testing.T) {
		svc, _ := newTestService(t, serviceOptions{repo: &fakeRepository{store: &memoryLogStore{}}})
		for _, limit := range []int{0, -1, liveness.MaxLogLimit + 1} {
			if _, err := svc.RecentLogs(ctx, limit); !errors.Is(err, liveness.ErrInvalidLimit) {
				t.Errorf("RecentLogs(%d) error = %v, want ErrInvalidLimit", limit, err)
			}
		}
	})

	t.Run("newest first", func(t *testing.T) {
		store := &memoryLogStore{}
		for _, id := range []string{"a", "b", "c"} {
			store.logs = append(store.logs, entityLog(id))
		}
		svc, _ := newTestService(t, serviceOptions{repo: &fakeRepository{store: store}})

		logs, err := svc.RecentLogs(ctx, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(logs) != 2 || logs[0].ID != "c" || logs[1].ID != "b" {
			t.Errorf("logs = %+v", logs)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		svc, _ := newTestService(t, serviceOptions{repo: &fakeRepository{store: &memoryLogStore{failGet: true}}})
		if _, err := svc.RecentLogs(ctx, 5); !errors.Is(err, liveness.ErrInternalServerError) {
			t.Errorf("error = %v, want ErrInternalServerError", err)
		}
	})
}

func TestHealth(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, serviceOptions{mode: redis.NewMemoryStore(true)})
	svc.OpenSession(ctx)

	h := svc.Health(ctx)
	if h.Status != "healthy" || !h.ModelLoaded || h.Degraded || !h.ActiveCheckEnabled || h.Sessions != 1 || h.Workers != 2 || h.AuditEnabled {
		t.Errorf("Health() = %+v", h)
	}
}
