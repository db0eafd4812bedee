package operator

import (
	"FaceLiveness/pkg/response"
	"net/http"
)

var (
	ErrInvalidCredentials  = response.NewKindError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
	ErrOperatorNotFound    = response.NewKindError(http.StatusNotFound, "OPERATOR_NOT_FOUND", "operator not found")
	ErrInternalServerError = response.NewKindError(http.StatusInternalServerError, "INTERNAL", "internal server error")
)
