package livenessService

import (
	"FaceLiveness/internal/api/liveness"
	"FaceLiveness/internal/entity"
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// FrameJob is the inference half of a frame, run on a pool worker.
type FrameJob func(ctx context.Context) (*entity.FrameResult, error)

type frameTask struct {
	ctx      context.Context
	run      FrameJob
	resultCh chan frameOutcome
}

type frameOutcome struct {
	result *entity.FrameResult
	err    error
}

// WorkerPool runs frame inference off the websocket read loops.
type WorkerPool struct {
	jobs        chan *frameTask
	workerCount int
	log         *logrus.Logger

	activeJobs      int
	activeJobsMutex sync.Mutex

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// DefaultWorkerCount is 75% of the available CPUs, at least 2.
func DefaultWorkerCount() int {
	return max(2, runtime.NumCPU()*3/4)
}

func NewWorkerPool(workerCount int, log *logrus.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount()
	}

	log.Infof("Initializing inference worker pool with %d workers", workerCount)

	pool := &WorkerPool{
		jobs:        make(chan *frameTask, workerCount*2),
		workerCount: workerCount,
		log:         log,
		shutdown:    make(chan struct{}),
	}
	pool.startWorkers()

	return pool
}

func (p *WorkerPool) startWorkers() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			for {
				select {
				case task := <-p.jobs:
					p.runTask(workerID, task)
				case <-p.shutdown:
					p.log.Debugf("Worker %d received shutdown signal", workerID)
					return
				}
			}
		}(i)
	}
}

func (p *WorkerPool) runTask(workerID int, task *frameTask) {
	if err := task.ctx.Err(); err != nil {
		task.resultCh <- frameOutcome{err: err}
		return
	}

	p.activeJobsMutex.Lock()
	p.activeJobs++
	p.activeJobsMutex.Unlock()

	start := time.Now()
	result, err := task.run(task.ctx)

	p.activeJobsMutex.Lock()
	p.activeJobs--
	p.activeJobsMutex.Unlock()

	// resultCh is buffered, the submitter may already be gone.
	task.resultCh <- frameOutcome{result: result, err: err}

	p.log.WithFields(logrus.Fields{
		"worker":     workerID,
		"latency_ms": time.Since(start).Milliseconds(),
	}).Debug("Frame inference completed")
}

// Process queues job and waits for its result.
func (p *WorkerPool) Process(ctx context.Context, job FrameJob) (*entity.FrameResult, error) {
	task := &frameTask{
		ctx:      ctx,
		run:      job,
		resultCh: make(chan frameOutcome, 1),
	}

	select {
	case <-p.shutdown:
		return nil, liveness.ErrServiceStopping
	default:
	}

	select {
	case p.jobs <- task:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.shutdown:
		return nil, liveness.ErrServiceStopping
	}

	select {
	case out := <-task.resultCh:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.shutdown:
		return nil, liveness.ErrServiceStopping
	}
}

func (p *WorkerPool) ActiveJobCount() int {
	p.activeJobsMutex.Lock()
	defer p.activeJobsMutex.Unlock()
	return p.activeJobs
}

func (p *WorkerPool) WorkerCount() int {
	return p.workerCount
}

// Shutdown stops the workers after their current frame. Callers still
// waiting get ErrServiceStopping.
func (p *WorkerPool) Shutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
	p.wg.Wait()
}
