package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	LocatorPigo   = "pigo"
	LocatorRemote = "remote"

	LandmarksNone   = "none"
	LandmarksRemote = "remote"
)

// Liveness is the runtime configuration read from the environment.
type Liveness struct {
	Port               string `validate:"required,numeric"`
	ModelPath          string
	FaceLocator        string `validate:"oneof=pigo remote"`
	CascadePath        string `validate:"required_if=FaceLocator pigo"`
	LandmarkServiceURL string `validate:"omitempty,url"`
	LandmarkSource     string `validate:"oneof=none remote"`
	InferenceWorkers   int    `validate:"min=0,max=256"`
	AuditEnabled       bool
	AuditQueueSize     int `validate:"min=1,max=65536"`
	ActiveCheckDefault bool
	OperatorUsername   string        `validate:"omitempty,min=3,max=64"`
	OperatorPassword   string        `validate:"omitempty,min=8,max=72"`
	OperatorTokenTTL   time.Duration `validate:"min=1m"`
}

// LoadLiveness reads and validates the configuration. Unset keys take their
// defaults, malformed ones are an error.
func LoadLiveness(v *validator.Validate) (Liveness, error) {
	cfg := Liveness{
		Port:               envOr("APP_PORT", "3000"),
		ModelPath:          envOr("LIVENESS_MODEL_PATH", "models/liveness_model.onnx"),
		FaceLocator:        envOr("FACE_LOCATOR", LocatorPigo),
		CascadePath:        envOr("PIGO_CASCADE_PATH", "models/facefinder"),
		LandmarkServiceURL: os.Getenv("LANDMARK_SERVICE_URL"),
		OperatorUsername:   os.Getenv("OPERATOR_USERNAME"),
		OperatorPassword:   os.Getenv("OPERATOR_PASSWORD"),
	}

	defaultSource := LandmarksNone
	if cfg.LandmarkServiceURL != "" {
		defaultSource = LandmarksRemote
	}
	cfg.LandmarkSource = envOr("LANDMARK_SOURCE", defaultSource)

	var err error
	if cfg.InferenceWorkers, err = envInt("INFERENCE_WORKERS", 0); err != nil {
		return Liveness{}, err
	}
	if cfg.AuditEnabled, err = envBool("AUDIT_ENABLED", true); err != nil {
		return Liveness{}, err
	}
	if cfg.AuditQueueSize, err = envInt("AUDIT_QUEUE_SIZE", 256); err != nil {
		return Liveness{}, err
	}
	if cfg.ActiveCheckDefault, err = envBool("ACTIVE_CHECK_DEFAULT", false); err != nil {
		return Liveness{}, err
	}

	if cfg.OperatorTokenTTL, err = envDuration("OPERATOR_TOKEN_TTL", 12*time.Hour); err != nil {
		return Liveness{}, err
	}

	if err := v.Struct(cfg); err != nil {
		return Liveness{}, fmt.Errorf("invalid liveness configuration: %w", err)
	}
	if cfg.LandmarkServiceURL == "" && (cfg.FaceLocator == LocatorRemote || cfg.LandmarkSource == LandmarksRemote) {
		return Liveness{}, fmt.Errorf("invalid liveness configuration: LANDMARK_SERVICE_URL is required for the remote landmark service")
	}
	if (cfg.OperatorUsername == "") != (cfg.OperatorPassword == "") {
		return Liveness{}, fmt.Errorf("invalid liveness configuration: OperatorUsername and OperatorPassword must be set together")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
