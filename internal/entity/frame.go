package entity

import "FaceLiveness/pkg/liveness"

// FrameResult is the outcome of one processed frame. Verdict fields are only
// meaningful when FaceDetected is true.
type FrameResult struct {
	FaceDetected       bool
	Message            string
	BBox               [4]int
	ActiveCheckEnabled bool
	liveness.Result
}
