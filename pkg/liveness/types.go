// Package liveness scores face crops as live or spoofed and runs the
// blink/head-turn challenge that gates an active liveness session.
package liveness

import (
	"errors"
	"image"
)

var (
	ErrModelLoad = errors.New("liveness model could not be loaded")
	ErrInference = errors.New("liveness inference failed")
	ErrEmptyCrop = errors.New("face crop is empty")
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EyeLandmarks holds the four points used for the eye aspect ratio.
type EyeLandmarks struct {
	Top    Point `json:"top"`
	Bottom Point `json:"bottom"`
	Left   Point `json:"left"`
	Right  Point `json:"right"`
}

// LandmarkSample is expressed in frame-normalized coordinates.
type LandmarkSample struct {
	LeftEye  EyeLandmarks `json:"left_eye"`
	RightEye EyeLandmarks `json:"right_eye"`
	Nose     Point        `json:"nose_tip"`
}

type FaceRegion struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ClampRegion keeps r inside bounds. Width and height never go negative.
func ClampRegion(r FaceRegion, bounds image.Rectangle) FaceRegion {
	x := max(r.X, bounds.Min.X)
	y := max(r.Y, bounds.Min.Y)
	x = min(x, bounds.Max.X)
	y = min(y, bounds.Max.Y)

	right := min(r.X+r.Width, bounds.Max.X)
	bottom := min(r.Y+r.Height, bounds.Max.Y)

	return FaceRegion{
		X:      x,
		Y:      y,
		Width:  max(0, right-x),
		Height: max(0, bottom-y),
	}
}

func (r FaceRegion) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func (r FaceRegion) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// BBox is the [x, y, width, height] form used on the wire.
func (r FaceRegion) BBox() [4]int {
	return [4]int{r.X, r.Y, r.Width, r.Height}
}

// FaceLocator returns the best face in a frame, or nil when there is none.
type FaceLocator interface {
	Locate(frame image.Image) (*FaceRegion, error)
}

// LandmarkSource returns landmarks for the tracked face, or nil when none
// could be found in the frame.
type LandmarkSource interface {
	Landmarks(frame image.Image) (*LandmarkSample, error)
}

type Verdict struct {
	IsReal     bool    `json:"is_real"`
	Confidence float64 `json:"confidence"`
	Degraded   bool    `json:"degraded"`
}

type Result struct {
	IsReal             bool         `json:"is_real"`
	Confidence         float64      `json:"confidence"`
	ActiveCheckPassed  bool         `json:"active_check_passed"`
	ActiveCheckMessage string       `json:"active_check_message"`
	ActiveCheckStatus  ActiveStatus `json:"active_check_status,omitempty"`
	Degraded           bool         `json:"degraded"`
}
