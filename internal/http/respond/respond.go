// Package respond writes JSON responses and maps domain errors onto HTTP
// status codes for every handler in the service.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/bridal-quote-platform/internal/booking"
	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string        `json:"error"`
	Details []FieldDetail `json:"details,omitempty"`
}

// FieldDetail describes one invalid field.
type FieldDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// JSON writes payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Status maps a domain error to its HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, booking.ErrInvalidDraft):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrOutOfRange), errors.Is(err, booking.ErrConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrSnapshotLocked):
		return http.StatusConflict
	case errors.Is(err, booking.ErrPaymentProvider):
		return http.StatusBadGateway
	case errors.Is(err, booking.ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as {"error", "details"}. Server-side failures are logged
// and their text is not echoed to the client.
func Error(w http.ResponseWriter, logger *logging.Logger, err error) {
	status := Status(err)
	body := ErrorBody{Error: message(status, err)}
	for _, fe := range booking.Fields(err) {
		body.Details = append(body.Details, FieldDetail{Field: fe.Field, Reason: fe.Reason})
	}
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", "error", err, "status", status)
	}
	JSON(w, status, body)
}

// BadRequest writes a 400 with a plain message.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, ErrorBody{Error: msg})
}

func message(status int, err error) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid booking details"
	case http.StatusUnprocessableEntity:
		if errors.Is(err, booking.ErrOutOfRange) {
			return "value out of range"
		}
		return "pricing is not available for this selection"
	case http.StatusNotFound:
		return "booking not found"
	case http.StatusConflict:
		return "booking pricing is locked"
	case http.StatusBadGateway:
		return "payment provider error"
	case http.StatusServiceUnavailable:
		return "booking storage unavailable, please retry"
	default:
		return "internal error"
	}
}
