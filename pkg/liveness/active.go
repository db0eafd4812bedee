package liveness

import "math"

const (
	// EyeClosedThreshold is the averaged eye aspect ratio below which the
	// eyes count as closed.
	EyeClosedThreshold = 0.25
	// HeadMoveThreshold is the nose displacement, in normalized frame units,
	// above which the head counts as turned.
	HeadMoveThreshold = 0.02
)

type ActiveStatus string

const (
	StatusPassed    ActiveStatus = "PASSED"
	StatusNeedTurn  ActiveStatus = "NEED_TURN"
	StatusNeedBlink ActiveStatus = "NEED_BLINK"
	StatusNeedBoth  ActiveStatus = "NEED_BOTH"
)

var statusMessages = map[ActiveStatus]string{
	StatusPassed:    "Active check passed",
	StatusNeedTurn:  "Please turn your head",
	StatusNeedBlink: "Please blink",
	StatusNeedBoth:  "Please blink and turn your head",
}

func (s ActiveStatus) Message() string {
	return statusMessages[s]
}

type ActiveResult struct {
	Passed bool
	Status ActiveStatus
}

// ActiveState is the challenge progress of one session. The zero value is a
// fresh session.
type ActiveState struct {
	EyesClosed bool
	BlinkCount int
	HeadMoved  bool
	PrevNose   *Point
}

// Step applies one frame's landmarks and returns the next state. A nil sample
// means no landmarks were available and leaves the state as it was.
func (s ActiveState) Step(sample *LandmarkSample) ActiveState {
	if sample == nil {
		return s
	}

	next := s

	closed := AverageEAR(*sample) < EyeClosedThreshold
	if closed && !s.EyesClosed {
		next.BlinkCount++
	}
	next.EyesClosed = closed

	if s.PrevNose != nil && displacement(*s.PrevNose, sample.Nose) > HeadMoveThreshold {
		next.HeadMoved = true
	}
	nose := sample.Nose
	next.PrevNose = &nose

	return next
}

func (s ActiveState) Result() ActiveResult {
	blinked := s.BlinkCount >= 1

	switch {
	case blinked && s.HeadMoved:
		return ActiveResult{Passed: true, Status: StatusPassed}
	case blinked:
		return ActiveResult{Status: StatusNeedTurn}
	case s.HeadMoved:
		return ActiveResult{Status: StatusNeedBlink}
	default:
		return ActiveResult{Status: StatusNeedBoth}
	}
}

func (s *ActiveState) Reset() {
	*s = ActiveState{}
}

// EyeAspectRatio is the vertical lid opening over the horizontal eye width.
// A zero-width eye yields +Inf, which reads as open.
func EyeAspectRatio(eye EyeLandmarks) float64 {
	width := math.Abs(eye.Left.X - eye.Right.X)
	height := math.Abs(eye.Top.Y - eye.Bottom.Y)
	if width == 0 {
		return math.Inf(1)
	}
	return height / width
}

func AverageEAR(sample LandmarkSample) float64 {
	return (EyeAspectRatio(sample.LeftEye) + EyeAspectRatio(sample.RightEye)) / 2
}

func displacement(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
