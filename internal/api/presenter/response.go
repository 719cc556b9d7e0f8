package presenter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/efs-sdk/accessmanager/internal/core"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Timestamp     time.Time `json:"timestamp"`
	Status        int       `json:"status"`
	Error         string    `json:"error"`
	ErrorCode     int       `json:"errorCode"`
	Message       string    `json:"message"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

// Text writes a plain text body, used for the tokens themselves.
func Text(w http.ResponseWriter, r *http.Request, body string, status int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if _, err := w.Write([]byte(body)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write response")
	}
}

// Error writes an error that has no domain error code.
func Error(w http.ResponseWriter, r *http.Request, msg string, status int) {
	JSON(w, r, ErrorResponse{
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Error:         http.StatusText(status),
		ErrorCode:     status,
		Message:       msg,
		CorrelationID: core.CorrelationID(r.Context()),
	}, status)
}

// Err maps err to its domain error and writes it. Unknown errors become
// UNKNOWN_ERROR and are logged with their cause, which is not sent to the client.
func Err(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())
	e := core.AsError(err)

	msg := e.Message
	if e.Detail != "" {
		msg += ": " + e.Detail
	}

	switch {
	case e.Status >= http.StatusInternalServerError:
		logger.Error().Err(err).Int("error_code", e.Code).Msg("request failed")
	default:
		logger.Warn().Err(err).Int("error_code", e.Code).Msg("request rejected")
	}

	JSON(w, r, ErrorResponse{
		Timestamp:     time.Now().UTC(),
		Status:        e.Status,
		Error:         e.Kind,
		ErrorCode:     e.Code,
		Message:       msg,
		CorrelationID: core.CorrelationID(r.Context()),
	}, e.Status)
}
