package livenessService

import (
	"FaceLiveness/internal/api/liveness"
	"FaceLiveness/internal/entity"
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestWorkerPoolProcess(t *testing.T) {
	pool := NewWorkerPool(3, quietLogger())
	defer pool.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := pool.Process(context.Background(), func(context.Context) (*entity.FrameResult, error) {
				return &entity.FrameResult{FaceDetected: true, BBox: [4]int{i, 0, 0, 0}}, nil
			})
			if err != nil {
				t.Errorf("job %d: %v", i, err)
				return
			}
			if got.BBox[0] != i {
				t.Errorf("job %d got result of job %d", i, got.BBox[0])
			}
		}(i)
	}
	wg.Wait()

	if pool.ActiveJobCount() != 0 {
		t.Errorf("ActiveJobCount() = %d after all jobs finished", pool.ActiveJobCount())
	}
	if pool.WorkerCount() != 3 {
		t.Errorf("WorkerCount() = %d", pool.WorkerCount())
	}
}

func TestWorkerPoolPropagatesJobError(t *testing.T) {
	pool := NewWorkerPool(1, quietLogger())
	defer pool.Shutdown()

	boom := errors.New("boom")
	if _, err := pool.Process(context.Background(), func(context.Context) (*entity.FrameResult, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Errorf("Process() error = %v, want %v", err, boom)
	}
}

func TestWorkerPoolContextCancel(t *testing.T) {
	pool := NewWorkerPool(1, quietLogger())
	defer pool.Shutdown()

	release := make(chan struct{})
	running := make(chan struct{})
	go pool.Process(context.Background(), func(context.Context) (*entity.FrameResult, error) {
		close(running)
		<-release
		return nil, nil
	})
	<-running

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := pool.Process(ctx, func(context.Context) (*entity.FrameResult, error) {
		return &entity.FrameResult{}, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Process() error = %v, want DeadlineExceeded", err)
	}
	close(release)
}

func TestWorkerPoolShutdown(t *testing.T) {
	pool := NewWorkerPool(1, quietLogger())

	release := make(chan struct{})
	running := make(chan struct{})
	go pool.Process(context.Background(), func(context.Context) (*entity.FrameResult, error) {
		close(running)
		<-release
		return nil, nil
	})
	<-running

	waiting := make(chan error, 1)
	go func() {
		_, err := pool.Process(context.Background(), func(context.Context) (*entity.FrameResult, error) {
			return &entity.FrameResult{}, nil
		})
		waiting <- err
	}()

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case err := <-waiting:
		if !errors.Is(err, liveness.ErrServiceStopping) {
			t.Errorf("waiting caller error = %v, want ErrServiceStopping", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiting caller never released")
	}

	close(release)
	<-done

	if _, err := pool.Process(context.Background(), func(context.Context) (*entity.FrameResult, error) {
		return &entity.FrameResult{}, nil
	}); !errors.Is(err, liveness.ErrServiceStopping) {
		t.Errorf("Process() after Shutdown error = %v, want ErrServiceStopping", err)
	}
}
