package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/homebot/homebot-core/internal/auth"
	"github.com/homebot/homebot-core/internal/automation"
	"github.com/homebot/homebot-core/internal/device"
	"github.com/homebot/homebot-core/internal/identity"
	"github.com/homebot/homebot-core/internal/location"
	"github.com/homebot/homebot-core/internal/report"
	"github.com/homebot/homebot-core/internal/sensor"
)

// Error is the body of every error response. Stack is only filled in dev mode.
type Error struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// Messages shown to clients for domain errors whose sentinel text is not
// meant for end users.
const (
	msgRoomExists       = "Room already exists"
	msgRoomHasDevices   = "Cannot delete room with devices. Please move or delete devices first."
	msgInvalidDays      = "Invalid day(s) provided. Must be one of: mon, tue, wed, thu, fri, sat, sun"
	msgInternal         = "Internal server error"
	msgInvalidBody      = "Invalid JSON body"
	msgUnauthorized     = "Not authorized"
	msgInvalidLogin     = "Invalid email or password"
	msgDuplicateReading = "Sensor reading with this id already exists"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeList writes the {success, count, data} list envelope.
func writeList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(items),
		"data":    items,
	})
}

// writeData writes the {success, data} single-entity envelope.
func writeData(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, map[string]any{
		"success": true,
		"data":    v,
	})
}

// writeError writes an error body. detail becomes the stack in dev mode.
func (s *Server) writeError(w http.ResponseWriter, status int, message, detail string) {
	body := Error{Message: message}
	if s.cfg.DevMode {
		body.Stack = detail
	}
	writeJSON(w, status, body)
}

// writeBadRequest writes a 400 error response.
func (s *Server) writeBadRequest(w http.ResponseWriter, message string) {
	s.writeError(w, http.StatusBadRequest, message, "")
}

// writeDomainError maps err onto a status code and client message.
// Unexpected errors are logged and reported as 500.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classifyError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID(r),
			"error", err,
		)
	}
	s.writeError(w, status, message, errorChain(err))
}

// classifyError returns the HTTP status and client message for err.
func classifyError(err error) (int, string) {
	switch {
	// Errors that carry a fixed client message.
	case errors.Is(err, location.ErrRoomExists):
		return http.StatusBadRequest, msgRoomExists
	case errors.Is(err, location.ErrRoomHasDevices):
		return http.StatusBadRequest, msgRoomHasDevices
	case errors.Is(err, automation.ErrInvalidDay):
		return http.StatusBadRequest, msgInvalidDays
	case errors.Is(err, sensor.ErrDuplicateReading):
		return http.StatusConflict, msgDuplicateReading
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUserInactive):
		return http.StatusUnauthorized, msgInvalidLogin

	// Validation.
	case errors.Is(err, device.ErrInvalidDevice),
		errors.Is(err, device.ErrInvalidDeviceList),
		errors.Is(err, device.ErrInvalidGroup),
		errors.Is(err, device.ErrInvalidAction),
		errors.Is(err, location.ErrInvalidRoom),
		errors.Is(err, automation.ErrInvalidSchedule),
		errors.Is(err, sensor.ErrInvalidReading),
		errors.Is(err, sensor.ErrInvalidRange),
		errors.Is(err, identity.ErrInvalidUser),
		errors.Is(err, report.ErrInvalidFormat):
		return http.StatusBadRequest, err.Error()

	// Not found.
	case errors.Is(err, device.ErrDeviceNotFound):
		return http.StatusNotFound, "Device not found"
	case errors.Is(err, device.ErrGroupNotFound):
		return http.StatusNotFound, "Device group not found"
	case errors.Is(err, location.ErrRoomNotFound):
		return http.StatusNotFound, "Room not found"
	case errors.Is(err, automation.ErrScheduleNotFound):
		return http.StatusNotFound, "Schedule not found"
	case errors.Is(err, sensor.ErrReadingNotFound):
		return http.StatusNotFound, "Sensor data not found"
	case errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound, "User not found"

	// Conflicts.
	case errors.Is(err, auth.ErrUserExists), errors.Is(err, device.ErrDeviceExists):
		return http.StatusConflict, err.Error()
	}
	return http.StatusInternalServerError, msgInternal
}

// errorChain renders each layer of a wrapped error, outermost first.
func errorChain(err error) string {
	if err == nil {
		return ""
	}
	chain := err.Error()
	for inner := errors.Unwrap(err); inner != nil; inner = errors.Unwrap(inner) {
		chain += "\n\tcaused by: " + inner.Error()
	}
	return chain
}
