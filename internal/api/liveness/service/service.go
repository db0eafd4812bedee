package livenessService

import (
	"FaceLiveness/internal/api/liveness"
	livenessRepository "FaceLiveness/internal/api/liveness/repository"
	"FaceLiveness/internal/entity"
	livenessPkg "FaceLiveness/pkg/liveness"
	"FaceLiveness/pkg/redis"
	"FaceLiveness/pkg/s3"
	"FaceLiveness/pkg/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type ILivenessService interface {
	OpenSession(ctx context.Context) (*livenessPkg.Session, error)
	CloseSession(sessionID string)
	ProcessFrame(ctx context.Context, session *livenessPkg.Session, encoded string) (*entity.FrameResult, error)
	ResetSession(session *livenessPkg.Session)
	SetSessionActiveCheck(session *livenessPkg.Session, enabled bool)
	ToggleActiveCheck(ctx context.Context) (bool, error)
	ActiveCheckEnabled(ctx context.Context) bool
	Health(ctx context.Context) liveness.HealthResponse
	RecentLogs(ctx context.Context, limit int) ([]entity.InferenceLog, error)
	Close()
}

type livenessService struct {
	log       *logrus.Logger
	detector  *livenessPkg.Detector
	locator   livenessPkg.FaceLocator
	landmarks livenessPkg.LandmarkSource
	registry  *livenessPkg.Registry
	mode      redis.IModeStore
	pool      *WorkerPool
	recorder  IRecorder
	repo      livenessRepository.Repository
	s3Client  s3.ItfS3
	utils     utils.IUtils
}

// NewLivenessService wires the frame pipeline. landmarks, recorder, repo and
// s3Client may be nil: the active check then never advances, and auditing or
// thumbnail upload is skipped.
func NewLivenessService(
	log *logrus.Logger,
	detector *livenessPkg.Detector,
	locator livenessPkg.FaceLocator,
	landmarks livenessPkg.LandmarkSource,
	registry *livenessPkg.Registry,
	mode redis.IModeStore,
	pool *WorkerPool,
	recorder IRecorder,
	repo livenessRepository.Repository,
	s3Client s3.ItfS3,
	utils utils.IUtils,
) ILivenessService {
	return &livenessService{
		log:       log,
		detector:  detector,
		locator:   locator,
		landmarks: landmarks,
		registry:  registry,
		mode:      mode,
		pool:      pool,
		recorder:  recorder,
		repo:      repo,
		s3Client:  s3Client,
		utils:     utils,
	}
}
