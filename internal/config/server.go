package config

import (
	"FaceLiveness/database/postgres"
	livenessHandler "FaceLiveness/internal/api/liveness/handler"
	livenessRepository "FaceLiveness/internal/api/liveness/repository"
	livenessService "FaceLiveness/internal/api/liveness/service"
	operatorHandler "FaceLiveness/internal/api/operator/handler"
	operatorRepository "FaceLiveness/internal/api/operator/repository"
	operatorService "FaceLiveness/internal/api/operator/service"
	"FaceLiveness/internal/middleware"
	"FaceLiveness/pkg/bcrypt"
	"FaceLiveness/pkg/facedetect"
	"FaceLiveness/pkg/liveness"
	"FaceLiveness/pkg/redis"
	"FaceLiveness/pkg/s3"
	"FaceLiveness/pkg/utils"
	"FaceLiveness/pkg/vision"
	websocketPkg "FaceLiveness/pkg/websocket"
	"context"
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"io"
	"time"
)

type ServerOption func(*Server) error

type Server struct {
	engine          *fiber.App
	db              *sqlx.DB
	log             *logrus.Logger
	config          Liveness
	middleware      middleware.Middleware
	validator       *validator.Validate
	utils           utils.IUtils
	bcryptUtils     bcrypt.IBcrypt
	handlers        []handler
	modeStore       redis.IModeStore
	s3Client        s3.ItfS3
	landmarkClient  websocketPkg.IWebsocket
	locator         liveness.FaceLocator
	landmarks       liveness.LandmarkSource
	classifier      liveness.Classifier
	livenessService livenessService.ILivenessService
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.locator == nil {
		return nil, fmt.Errorf("face locator is required")
	}
	if server.classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if server.modeStore == nil {
		server.modeStore = redis.NewMemoryStore(server.config.ActiveCheckDefault)
	}
	if server.utils == nil {
		server.utils = utils.New()
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithConfig(cfg Liveness) ServerOption {
	return func(s *Server) error {
		s.config = cfg
		return nil
	}
}

// WithDatabase connects postgres for the inference audit log. It is a no-op
// when auditing is disabled.
func WithDatabase() ServerOption {
	return func(s *Server) error {
		if !s.config.AuditEnabled {
			if s.log != nil {
				s.log.Info("Inference audit disabled, skipping database")
			}
			return nil
		}

		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithModeStore(store redis.IModeStore) ServerOption {
	return func(s *Server) error {
		s.modeStore = store
		return nil
	}
}

// WithS3Client enables thumbnail upload. A missing bucket keeps thumbnails
// inline in the database.
func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if errors.Is(err, s3.ErrBucketNotConfigured) {
			if s.log != nil {
				s.log.Info("AWS_BUCKET_NAME not set, storing thumbnails inline")
			}
			return nil
		}
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

// WithFaceLocator builds the face locator and landmark source the config
// asks for.
func WithFaceLocator() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before face locator")
		}

		if s.config.LandmarkServiceURL != "" && (s.config.FaceLocator == LocatorRemote || s.config.LandmarkSource == LandmarksRemote) {
			s.landmarkClient = websocketPkg.NewLandmarkClient(s.config.LandmarkServiceURL, s.log)
		}

		switch s.config.FaceLocator {
		case LocatorRemote:
			if s.landmarkClient == nil {
				return fmt.Errorf("remote face locator needs LANDMARK_SERVICE_URL")
			}
			s.locator = s.landmarkClient
		default:
			locator, err := facedetect.NewLocator(s.config.CascadePath, s.log)
			if err != nil {
				return fmt.Errorf("failed to load face cascade: %w", err)
			}
			s.locator = locator
		}

		if s.config.LandmarkSource == LandmarksRemote {
			s.landmarks = s.landmarkClient
		} else {
			s.log.Warn("No landmark source configured, the active check can never pass")
		}

		return nil
	}
}

// WithClassifier loads the passive model once, falling back to the
// sharpness heuristic.
func WithClassifier() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before classifier")
		}
		s.classifier = liveness.LoadClassifier(s.config.ModelPath, vision.LoadNet, vision.Sharpness, s.log)
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func WithBcryptUtils() ServerOption {
	return func(s *Server) error {
		s.bcryptUtils = bcrypt.New()
		return nil
	}
}

func (s *Server) RegisterHandler() error {
	var repo livenessRepository.Repository
	var recorder livenessService.IRecorder

	if s.db != nil {
		repo = livenessRepository.New(s.db, s.log)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to prepare inference log schema: %w", err)
		}

		recorder = livenessService.NewRecorder(repo, s.s3Client, s.utils, s.log, s.config.AuditQueueSize)
	}

	detector := liveness.NewDetector(s.classifier, s.log)
	pool := livenessService.NewWorkerPool(s.config.InferenceWorkers, s.log)

	s.livenessService = livenessService.NewLivenessService(
		s.log,
		detector,
		s.locator,
		s.landmarks,
		liveness.NewRegistry(),
		s.modeStore,
		pool,
		recorder,
		repo,
		s.s3Client,
		s.utils,
	)
	livenessHandlers := livenessHandler.New(s.log, s.validator, s.middleware, s.livenessService)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, livenessHandlers)

	if s.db != nil {
		operatorHandlers, err := s.registerOperators()
		if err != nil {
			return err
		}
		s.handlers = append(s.handlers, operatorHandlers)
	}

	return nil
}

// registerOperators serves operator login and seeds the configured account.
func (s *Server) registerOperators() (handler, error) {
	if s.bcryptUtils == nil {
		s.bcryptUtils = bcrypt.New()
	}

	repo := operatorRepository.New(s.db, s.log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare operator schema: %w", err)
	}

	services := operatorService.New(s.log, repo, s.bcryptUtils, s.utils, s.config.OperatorTokenTTL)
	if s.config.OperatorUsername != "" {
		if err := services.EnsureOperator(ctx, s.config.OperatorUsername, s.config.OperatorPassword); err != nil {
			return nil, fmt.Errorf("failed to seed operator account: %w", err)
		}
	}

	return operatorHandler.New(s.log, s.validator, s.middleware, services), nil
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())
	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}

	return s.engine.Listen(fmt.Sprintf(":%s", s.config.Port))
}

// Shutdown stops accepting connections, then drains inference and the audit
// queue before releasing the backends.
func (s *Server) Shutdown(timeout time.Duration) {
	if err := s.engine.ShutdownWithTimeout(timeout); err != nil {
		s.log.Errorf("Error shutting down HTTP server: %v", err)
	}

	if s.livenessService != nil {
		s.livenessService.Close()
	}
	if s.landmarkClient != nil {
		s.landmarkClient.CloseConnections()
	}
	if closer, ok := s.locator.(io.Closer); ok {
		_ = closer.Close()
	}
	if closer, ok := s.classifier.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.log.Errorf("Error releasing model: %v", err)
		}
	}
	if err := s.modeStore.Close(); err != nil {
		s.log.Errorf("Error closing mode store: %v", err)
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Errorf("Error closing database: %v", err)
		}
	}
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
