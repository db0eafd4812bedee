package liveness

import (
	"fmt"
	"image"
	"io"
	"math"
	"os"

	"github.com/sirupsen/logrus"
)

const (
	DecisionThreshold = 0.5
	// SharpnessThreshold is the Laplacian variance above which the heuristic
	// calls a crop real.
	SharpnessThreshold = 100.0
	// FallbackConfidence marks every heuristic verdict as low trust.
	FallbackConfidence = 0.5
)

type Classifier interface {
	Classify(crop image.Image) (Verdict, error)
	// Degraded reports whether verdicts come from the heuristic fallback.
	Degraded() bool
}

// Scorer runs the loaded model and returns the probability that the face is
// real.
type Scorer interface {
	Score(input Tensor) (float64, error)
}

type ScorerFunc func(input Tensor) (float64, error)

func (f ScorerFunc) Score(input Tensor) (float64, error) {
	return f(input)
}

// ScorerLoader opens a model artifact.
type ScorerLoader func(path string) (Scorer, error)

// SharpnessFunc returns the variance of the crop's Laplacian.
type SharpnessFunc func(crop image.Image) (float64, error)

// LoadClassifier tries the model artifact once. Any failure is logged and the
// heuristic is used for the rest of the process lifetime.
func LoadClassifier(path string, load ScorerLoader, sharpness SharpnessFunc, log *logrus.Logger) Classifier {
	scorer, err := loadScorer(path, load)
	if err != nil {
		log.WithFields(logrus.Fields{
			"model_path": path,
			"error":      err.Error(),
		}).Warn("Liveness model unavailable, falling back to sharpness heuristic")
		return NewHeuristicClassifier(sharpness)
	}

	log.WithField("model_path", path).Info("Liveness model loaded")
	return NewModelClassifier(scorer)
}

func loadScorer(path string, load ScorerLoader) (Scorer, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no model path configured", ErrModelLoad)
	}
	if load == nil {
		return nil, fmt.Errorf("%w: no model runtime available", ErrModelLoad)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	scorer, err := load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	return scorer, nil
}

type ModelClassifier struct {
	scorer Scorer
}

func NewModelClassifier(scorer Scorer) *ModelClassifier {
	return &ModelClassifier{scorer: scorer}
}

func (c *ModelClassifier) Classify(crop image.Image) (Verdict, error) {
	if crop == nil || crop.Bounds().Empty() {
		return Verdict{}, fmt.Errorf("%w: %v", ErrInference, ErrEmptyCrop)
	}

	score, err := c.scorer.Score(Preprocess(crop))
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if math.IsNaN(score) || score < 0 || score > 1 {
		return Verdict{}, fmt.Errorf("%w: score %v outside [0,1]", ErrInference, score)
	}

	return VerdictFromScore(score), nil
}

func (c *ModelClassifier) Degraded() bool {
	return false
}

// Close releases the scorer when it holds native resources.
func (c *ModelClassifier) Close() error {
	if closer, ok := c.scorer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// VerdictFromScore applies the strict > 0.5 rule. Confidence is the
// probability of the winning class.
func VerdictFromScore(score float64) Verdict {
	if score > DecisionThreshold {
		return Verdict{IsReal: true, Confidence: score}
	}
	return Verdict{IsReal: false, Confidence: 1 - score}
}

type HeuristicClassifier struct {
	threshold float64
	sharpness SharpnessFunc
}

func NewHeuristicClassifier(sharpness SharpnessFunc) *HeuristicClassifier {
	return &HeuristicClassifier{
		threshold: SharpnessThreshold,
		sharpness: sharpness,
	}
}

func (c *HeuristicClassifier) Classify(crop image.Image) (Verdict, error) {
	if crop == nil || crop.Bounds().Empty() {
		return Verdict{}, fmt.Errorf("%w: %v", ErrInference, ErrEmptyCrop)
	}
	if c.sharpness == nil {
		return Verdict{}, fmt.Errorf("%w: no sharpness measure configured", ErrInference)
	}

	variance, err := c.sharpness(crop)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrInference, err)
	}

	return Verdict{
		IsReal:     variance > c.threshold,
		Confidence: FallbackConfidence,
		Degraded:   true,
	}, nil
}

func (c *HeuristicClassifier) Degraded() bool {
	return true
}
