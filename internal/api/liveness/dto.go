package liveness

import (
	"math"

	"FaceLiveness/internal/entity"
)

type MessageType string

const (
	MessageFrame          MessageType = "frame"
	MessagePing           MessageType = "ping"
	MessageResetCheck     MessageType = "reset_active_check"
	MessageSetActiveCheck MessageType = "set_active_check"
)

const (
	DefaultLogLimit = 100
	MaxLogLimit     = 1000
)

// ClientMessage is any message a websocket client sends.
type ClientMessage struct {
	Type    MessageType `json:"type" validate:"required"`
	Data    string      `json:"data,omitempty"`
	Enabled *bool       `json:"enabled,omitempty"`
}

type ResultMessage struct {
	Type               string  `json:"type"`
	FaceDetected       bool    `json:"face_detected"`
	IsReal             bool    `json:"is_real"`
	Confidence         float64 `json:"confidence"`
	ActiveCheckPassed  bool    `json:"active_check_passed"`
	ActiveCheckMessage string  `json:"active_check_message"`
	ActiveCheckStatus  string  `json:"active_check_status,omitempty"`
	Degraded           bool    `json:"degraded"`
	BBox               [4]int  `json:"bbox"`
}

type NoFaceMessage struct {
	Type         string `json:"type"`
	FaceDetected bool   `json:"face_detected"`
	Message      string `json:"message"`
}

type PongMessage struct {
	Type string `json:"type"`
}

type ResetMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ModeMessage struct {
	Type               string `json:"type"`
	ActiveCheckEnabled bool   `json:"active_check_enabled"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewFrameMessage renders a frame outcome for the wire.
func NewFrameMessage(res *entity.FrameResult) interface{} {
	if !res.FaceDetected {
		return NoFaceMessage{
			Type:         "result",
			FaceDetected: false,
			Message:      res.Message,
		}
	}

	return ResultMessage{
		Type:               "result",
		FaceDetected:       true,
		IsReal:             res.IsReal,
		Confidence:         RoundConfidence(res.Confidence),
		ActiveCheckPassed:  res.ActiveCheckPassed,
		ActiveCheckMessage: res.ActiveCheckMessage,
		ActiveCheckStatus:  string(res.ActiveCheckStatus),
		Degraded:           res.Degraded,
		BBox:               res.BBox,
	}
}

func RoundConfidence(c float64) float64 {
	return math.Round(c*1000) / 1000
}

type HealthResponse struct {
	Status             string `json:"status"`
	ModelLoaded        bool   `json:"model_loaded"`
	Degraded           bool   `json:"degraded"`
	ActiveCheckEnabled bool   `json:"active_check_enabled"`
	Sessions           int    `json:"sessions"`
	Workers            int    `json:"workers"`
	AuditEnabled       bool   `json:"audit_enabled"`
}

type ToggleResponse struct {
	ActiveCheckEnabled bool   `json:"active_check_enabled"`
	Message            string `json:"message"`
}

type LogsQuery struct {
	Limit int `query:"limit" validate:"min=1,max=1000"`
}

type LogsResponse struct {
	Logs  []entity.InferenceLog `json:"logs"`
	Count int                   `json:"count"`
}
