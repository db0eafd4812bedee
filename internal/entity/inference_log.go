package entity

import "time"

// InferenceLog is one audited frame verdict.
type InferenceLog struct {
	ID                 string            `json:"id"`
	SessionID          string            `json:"session_id"`
	Timestamp          time.Time         `json:"timestamp"`
	IsReal             bool              `json:"is_real"`
	Confidence         float64           `json:"confidence"`
	ActiveCheckPassed  bool              `json:"active_check_passed"`
	ActiveCheckMessage string            `json:"active_check_message"`
	Degraded           bool              `json:"degraded"`
	Thumbnail          []byte            `json:"thumbnail,omitempty"`
	ThumbnailURL       string            `json:"thumbnail_url,omitempty"`
	Metadata           InferenceMetadata `json:"metadata"`
}

type InferenceMetadata struct {
	BBox               [4]int `json:"bbox"`
	ActiveCheckEnabled bool   `json:"active_check_enabled"`
	ActiveCheckStatus  string `json:"active_check_status,omitempty"`
	FrameWidth         int    `json:"frame_width"`
	FrameHeight        int    `json:"frame_height"`
}
