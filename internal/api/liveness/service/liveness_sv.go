package livenessService

import (
	"FaceLiveness/internal/api/liveness"
	"FaceLiveness/internal/entity"
	contextPkg "FaceLiveness/pkg/context"
	livenessPkg "FaceLiveness/pkg/liveness"
	"FaceLiveness/pkg/log"
	"fmt"
	"golang.org/x/net/context"
	"image"
	"time"
)

func (s *livenessService) OpenSession(ctx context.Context) (*livenessPkg.Session, error) {
	id, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		s.log.WithFields(log.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("Failed to generate session id")
		return nil, fmt.Errorf("%w: %v", liveness.ErrInternalServerError, err)
	}

	session := s.registry.Open(id)
	s.log.WithFields(log.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"session_id": id,
		"sessions":   s.registry.Len(),
	}).Info("Liveness session opened")

	return session, nil
}

func (s *livenessService) CloseSession(sessionID string) {
	s.registry.Close(sessionID)
	s.log.WithFields(log.Fields{
		"session_id": sessionID,
		"sessions":   s.registry.Len(),
	}).Info("Liveness session closed")
}

func (s *livenessService) ProcessFrame(ctx context.Context, session *livenessPkg.Session, encoded string) (*entity.FrameResult, error) {
	frame, err := s.utils.DecodeBase64Image(encoded)
	if err != nil {
		s.log.WithFields(log.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"session_id": session.ID,
			"error":      err.Error(),
		}).Warn("Failed to decode frame")
		return nil, fmt.Errorf("%w: %v", liveness.ErrFrameDecode, err)
	}

	mode := s.mode.Mode(ctx)
	enabled := session.ActiveCheck(mode.Enabled, mode.Generation)

	return s.pool.Process(ctx, func(ctx context.Context) (*entity.FrameResult, error) {
		return s.inspect(ctx, session, frame, enabled)
	})
}

// inspect runs locate, crop and detection for one decoded frame.
func (s *livenessService) inspect(ctx context.Context, session *livenessPkg.Session, frame image.Image, enabled bool) (*entity.FrameResult, error) {
	region, err := s.locator.Locate(frame)
	if err != nil {
		s.log.WithFields(log.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"session_id": session.ID,
			"error":      err.Error(),
		}).Error("Face localization failed")
		return nil, fmt.Errorf("%w: %v", liveness.ErrInference, err)
	}
	if region == nil {
		return &entity.FrameResult{FaceDetected: false, Message: liveness.MessageNoFace}, nil
	}

	crop, err := livenessPkg.ExtractCrop(frame, *region)
	if err != nil {
		return &entity.FrameResult{FaceDetected: false, Message: liveness.MessageExtractFailed}, nil
	}

	var result livenessPkg.Result
	var detectErr error
	session.Do(func(state *livenessPkg.ActiveState) {
		result, detectErr = s.detector.Detect(crop, frame, s.landmarks, state, enabled)
	})
	if detectErr != nil {
		s.log.WithFields(log.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"session_id": session.ID,
			"error":      detectErr.Error(),
		}).Error("Liveness inference failed")
		return nil, fmt.Errorf("%w: %v", liveness.ErrInference, detectErr)
	}

	out := &entity.FrameResult{
		FaceDetected:       true,
		BBox:               region.BBox(),
		ActiveCheckEnabled: enabled,
		Result:             result,
	}

	s.log.WithFields(log.Fields{
		"session_id":          session.ID,
		"is_real":             out.IsReal,
		"confidence":          out.Confidence,
		"active_check_status": out.ActiveCheckStatus,
		"degraded":            out.Degraded,
	}).Debug("Frame processed")

	s.audit(ctx, session, frame, crop, out)
	return out, nil
}

func (s *livenessService) audit(ctx context.Context, session *livenessPkg.Session, frame image.Image, crop image.Image, out *entity.FrameResult) {
	if s.recorder == nil {
		return
	}

	now := time.Now()
	id, err := s.utils.NewULIDFromTimestamp(now)
	if err != nil {
		s.log.WithFields(log.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"session_id": session.ID,
			"error":      err.Error(),
		}).Warn("Failed to generate inference log id, skipping audit")
		return
	}

	s.recorder.Record(AuditRecord{
		Log: entity.InferenceLog{
			ID:                 id,
			SessionID:          session.ID,
			Timestamp:          now,
			IsReal:             out.IsReal,
			Confidence:         out.Confidence,
			ActiveCheckPassed:  out.ActiveCheckPassed,
			ActiveCheckMessage: out.ActiveCheckMessage,
			Degraded:           out.Degraded,
			Metadata: entity.InferenceMetadata{
				BBox:               out.BBox,
				ActiveCheckEnabled: out.ActiveCheckEnabled,
				ActiveCheckStatus:  string(out.ActiveCheckStatus),
				FrameWidth:         frame.Bounds().Dx(),
				FrameHeight:        frame.Bounds().Dy(),
			},
		},
		Crop: crop,
	})
}

func (s *livenessService) ResetSession(session *livenessPkg.Session) {
	session.Reset()
	s.log.WithField("session_id", session.ID).Info("Active check reset")
}

func (s *livenessService) SetSessionActiveCheck(session *livenessPkg.Session, enabled bool) {
	session.SetActiveCheck(enabled)
	s.log.WithFields(log.Fields{
		"session_id": session.ID,
		"enabled":    enabled,
	}).Info("Session active check mode changed")
}

func (s *livenessService) ToggleActiveCheck(ctx context.Context) (bool, error) {
	enabled, err := s.mode.Toggle(ctx)
	if err != nil {
		s.log.WithFields(log.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("Failed to toggle active check")
		return false, fmt.Errorf("%w: %v", liveness.ErrInternalServerError, err)
	}

	if enabled {
		s.registry.ResetAll()
	}

	s.log.WithFields(log.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"enabled":    enabled,
		"sessions":   s.registry.Len(),
	}).Info("Global active check mode toggled")

	return enabled, nil
}

func (s *livenessService) ActiveCheckEnabled(ctx context.Context) bool {
	return s.mode.ActiveCheckEnabled(ctx)
}

func (s *livenessService) Health(ctx context.Context) liveness.HealthResponse {
	return liveness.HealthResponse{
		Status:             "healthy",
		ModelLoaded:        !s.detector.Degraded(),
		Degraded:           s.detector.Degraded(),
		ActiveCheckEnabled: s.mode.ActiveCheckEnabled(ctx),
		Sessions:           s.registry.Len(),
		Workers:            s.pool.WorkerCount(),
		AuditEnabled:       s.recorder != nil,
	}
}

func (s *livenessService) RecentLogs(ctx context.Context, limit int) ([]entity.InferenceLog, error) {
	if limit < 1 || limit > liveness.MaxLogLimit {
		return nil, liveness.ErrInvalidLimit
	}
	if s.repo == nil {
		return nil, liveness.ErrAuditDisabled
	}

	client, err := s.repo.NewClient(false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", liveness.ErrInternalServerError, err)
	}

	logs, err := client.InferenceLog.GetRecentInferenceLogs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", liveness.ErrInternalServerError, err)
	}

	if s.s3Client != nil {
		for i := range logs {
			if logs[i].ThumbnailURL == "" {
				continue
			}
			signed, err := s.s3Client.PresignUrl(logs[i].ThumbnailURL)
			if err != nil {
				s.log.WithFields(log.Fields{
					"request_id": contextPkg.GetRequestID(ctx),
					"id":         logs[i].ID,
					"error":      err.Error(),
				}).Warn("Failed to presign thumbnail url")
				continue
			}
			logs[i].ThumbnailURL = signed
		}
	}

	return logs, nil
}

func (s *livenessService) Close() {
	s.pool.Shutdown()
	if s.recorder != nil {
		s.recorder.Close()
	}
}
