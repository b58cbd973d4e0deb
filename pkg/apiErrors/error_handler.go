package apiErrors

import (
	"encoding/json"
	"net/http"
)

const (
	// Authentication errors (1000-1999)
	ErrMissingToken = "AUTH_001"
	ErrInvalidToken = "AUTH_002"

	// Validation errors (2000-2999)
	ErrInvalidRequest = "VAL_001"
	ErrInvalidFormat  = "VAL_002"

	// Server errors (5000-5999)
	ErrInternalServer    = "SRV_001"
	ErrDatabaseOperation = "SRV_002"
	ErrModelUnavailable  = "SRV_003"
	ErrJobAlreadyRunning = "SRV_004"
)

var httpStatusMap = map[string]int{
	ErrMissingToken:      http.StatusUnauthorized,
	ErrInvalidToken:      http.StatusUnauthorized,
	ErrInvalidRequest:    http.StatusBadRequest,
	ErrInvalidFormat:     http.StatusBadRequest,
	ErrInternalServer:    http.StatusInternalServerError,
	ErrDatabaseOperation: http.StatusServiceUnavailable,
	ErrModelUnavailable:  http.StatusServiceUnavailable,
	ErrJobAlreadyRunning: http.StatusConflict,
}

// APIError is the standard error body returned by the API.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// WriteError writes the standardized error body with the mapped HTTP status.
func WriteError(w http.ResponseWriter, code string, message string, details any) {
	status, exists := httpStatusMap[code]
	if !exists {
		status = http.StatusInternalServerError
	}

	apiErr := APIError{
		Code:    code,
		Message: message,
		Details: details,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiErr)
}
