// Package facedetect locates faces locally with a pigo cascade.
package facedetect

import (
	"fmt"
	"image"
	"os"

	"FaceLiveness/pkg/liveness"

	pigo "github.com/esimov/pigo/core"
	"github.com/sirupsen/logrus"
)

const (
	minSize          = 20
	maxSize          = 1000
	shiftFactor      = 0.1
	scaleFactor      = 1.1
	iouThreshold     = 0.2
	qualityThreshold = 5.0
)

type Locator struct {
	classifier *pigo.Pigo
	log        *logrus.Logger
}

func NewLocator(cascadePath string, log *logrus.Logger) (*Locator, error) {
	cascade, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade file: %w", err)
	}

	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade: %w", err)
	}

	log.WithFields(logrus.Fields{
		"cascade":           cascadePath,
		"min_size":          minSize,
		"quality_threshold": qualityThreshold,
	}).Info("Pigo face locator initialized")

	return &Locator{classifier: classifier, log: log}, nil
}

// Locate returns the highest quality face, or nil.
func (l *Locator) Locate(frame image.Image) (*liveness.FaceRegion, error) {
	b := frame.Bounds()
	if b.Empty() {
		return nil, nil
	}

	params := pigo.CascadeParams{
		MinSize:     minSize,
		MaxSize:     min(maxSize, max(b.Dx(), b.Dy())),
		ShiftFactor: shiftFactor,
		ScaleFactor: scaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: toGrayscale(frame),
			Rows:   b.Dy(),
			Cols:   b.Dx(),
			Dim:    b.Dx(),
		},
	}

	dets := l.classifier.RunCascade(params, 0.0)
	dets = l.classifier.ClusterDetections(dets, iouThreshold)

	region := bestRegion(dets, b)
	if region != nil {
		l.log.WithFields(logrus.Fields{
			"candidates": len(dets),
			"bbox":       region.BBox(),
		}).Debug("Face located")
	}
	return region, nil
}

// bestRegion converts the best detection above the quality threshold into a
// clamped region in frame coordinates.
func bestRegion(dets []pigo.Detection, bounds image.Rectangle) *liveness.FaceRegion {
	best := -1
	for i, det := range dets {
		if det.Q < qualityThreshold {
			continue
		}
		if best < 0 || det.Q > dets[best].Q {
			best = i
		}
	}
	if best < 0 {
		return nil
	}

	// pigo reports the center and the side length of the square window.
	det := dets[best]
	half := det.Scale / 2
	region := liveness.ClampRegion(liveness.FaceRegion{
		X:      bounds.Min.X + det.Col - half,
		Y:      bounds.Min.Y + det.Row - half,
		Width:  det.Scale,
		Height: det.Scale,
	}, bounds)
	if region.Empty() {
		return nil
	}
	return &region
}

func toGrayscale(img image.Image) []uint8 {
	b := img.Bounds()
	gray := make([]uint8, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			gray = append(gray, uint8((r*299+g*587+bl*114)/1000>>8))
		}
	}
	return gray
}
