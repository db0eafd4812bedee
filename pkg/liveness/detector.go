package liveness

import (
	"image"

	"github.com/sirupsen/logrus"
)

// Detector combines the passive classifier with the active challenge.
type Detector struct {
	classifier Classifier
	log        *logrus.Logger
}

func NewDetector(classifier Classifier, log *logrus.Logger) *Detector {
	return &Detector{
		classifier: classifier,
		log:        log,
	}
}

func (d *Detector) Degraded() bool {
	return d.classifier.Degraded()
}

// Detect classifies crop and, when enabled and the frame, landmark source and
// state are all present, advances state by one frame. The state is untouched
// if classification fails.
func (d *Detector) Detect(crop image.Image, frame image.Image, landmarks LandmarkSource, state *ActiveState, enabled bool) (Result, error) {
	verdict, err := d.classifier.Classify(crop)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		IsReal:     verdict.IsReal,
		Confidence: verdict.Confidence,
		Degraded:   verdict.Degraded,
	}

	if !enabled || frame == nil || landmarks == nil || state == nil {
		return result, nil
	}

	sample, err := landmarks.Landmarks(frame)
	if err != nil {
		d.log.WithField("error", err.Error()).Warn("Landmark lookup failed, skipping active check update")
		sample = nil
	}

	*state = state.Step(sample)
	active := state.Result()

	result.ActiveCheckPassed = active.Passed
	result.ActiveCheckMessage = active.Status.Message()
	result.ActiveCheckStatus = active.Status
	result.IsReal = verdict.IsReal && active.Passed

	return result, nil
}
