package livenessService

import (
	livenessRepository "FaceLiveness/internal/api/liveness/repository"
	"FaceLiveness/internal/entity"
	contextPkg "FaceLiveness/pkg/context"
	"FaceLiveness/pkg/log"
	"FaceLiveness/pkg/s3"
	"FaceLiveness/pkg/utils"
	"context"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// AuditRecord is one frame verdict waiting to be persisted.
type AuditRecord struct {
	Log  entity.InferenceLog
	Crop image.Image
}

type IRecorder interface {
	// Record queues rec without blocking. It reports false when the record
	// was dropped.
	Record(rec AuditRecord) bool
	Close()
}

// Recorder persists audit records on a single background goroutine.
type Recorder struct {
	queue   chan AuditRecord
	repo    livenessRepository.Repository
	s3      s3.ItfS3
	utils   utils.IUtils
	log     *logrus.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewRecorder(repo livenessRepository.Repository, s3Client s3.ItfS3, utils utils.IUtils, logger *logrus.Logger, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = 256
	}

	r := &Recorder{
		queue:   make(chan AuditRecord, queueSize),
		repo:    repo,
		s3:      s3Client,
		utils:   utils,
		log:     logger,
		timeout: 10 * time.Second,
		done:    make(chan struct{}),
	}
	go r.run()

	return r
}

func (r *Recorder) Record(rec AuditRecord) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false
	}

	select {
	case r.queue <- rec:
		return true
	default:
		r.log.WithFields(log.Fields{
			"session_id": rec.Log.SessionID,
			"queue_size": cap(r.queue),
		}).Warn("Audit queue full, dropping inference log")
		return false
	}
}

// Close stops accepting records and waits for the queue to drain.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)
	for rec := range r.queue {
		r.persist(rec)
	}
}

func (r *Recorder) persist(rec AuditRecord) {
	ctx, cancel := context.WithTimeout(contextPkg.WithSessionID(context.Background(), rec.Log.SessionID), r.timeout)
	defer cancel()

	logger := log.WithContext(r.log, ctx)
	entry := rec.Log
	if rec.Crop != nil && len(entry.Thumbnail) == 0 {
		thumb, err := r.utils.EncodeThumbnail(rec.Crop)
		if err != nil {
			logger.WithFields(log.Fields{
				"error": err.Error(),
			}).Warn("Failed to encode audit thumbnail")
		} else {
			entry.Thumbnail = thumb
		}
	}

	if r.s3 != nil && len(entry.Thumbnail) > 0 {
		location, err := r.s3.UploadThumbnail(ctx, entry.ID, entry.Thumbnail)
		if err != nil {
			logger.WithFields(log.Fields{
				"error": err.Error(),
			}).Warn("Thumbnail upload failed, storing bytes inline")
		} else {
			entry.ThumbnailURL = location
			entry.Thumbnail = nil
		}
	}

	client, err := r.repo.NewClient(false)
	if err != nil {
		logger.WithFields(log.Fields{
			"error": err.Error(),
		}).Error("Failed to open audit repository client")
		return
	}

	if err := client.InferenceLog.CreateInferenceLog(ctx, entry); err != nil {
		logger.WithFields(log.Fields{
			"id":    entry.ID,
			"error": err.Error(),
		}).Error("Failed to store inference log")
	}
}
