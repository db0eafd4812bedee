package liveness

import (
	"FaceLiveness/pkg/response"
	"net/http"
)

const (
	KindFrameDecode     = "FRAME_DECODE_FAILED"
	KindInference       = "INFERENCE_FAILED"
	KindInvalidMessage  = "INVALID_MESSAGE"
	KindUnknownMessage  = "UNKNOWN_MESSAGE_TYPE"
	KindInternal        = "INTERNAL"
	KindInvalidLimit    = "INVALID_LIMIT"
	KindAuditDisabled   = "AUDIT_DISABLED"
	KindServiceStopping = "SERVICE_STOPPING"
)

var (
	ErrFrameDecode         = response.NewKindError(http.StatusBadRequest, KindFrameDecode, "Failed to decode frame")
	ErrInference           = response.NewKindError(http.StatusInternalServerError, KindInference, "Liveness inference failed")
	ErrInvalidMessage      = response.NewKindError(http.StatusBadRequest, KindInvalidMessage, "Invalid message")
	ErrUnknownMessageType  = response.NewKindError(http.StatusBadRequest, KindUnknownMessage, "Unknown message type")
	ErrInternalServerError = response.NewKindError(http.StatusInternalServerError, KindInternal, "internal server error")
	ErrInvalidLimit        = response.NewKindError(http.StatusBadRequest, KindInvalidLimit, "limit must be between 1 and 1000")
	ErrAuditDisabled       = response.NewKindError(http.StatusServiceUnavailable, KindAuditDisabled, "inference logging is disabled")
	ErrServiceStopping     = response.NewKindError(http.StatusServiceUnavailable, KindServiceStopping, "service is shutting down")
)

// Frame outcome messages for a frame without a usable face.
const (
	MessageNoFace        = "No face detected"
	MessageExtractFailed = "Failed to extract face"
)
