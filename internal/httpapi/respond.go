package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/muster/internal/muster/types"
)

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, details map[string]string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message, Details: details})
}

// respond writes v as protobuf when the client asks for it, JSON otherwise.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if !wantsProtobuf(r) {
		writeJSON(w, status, v)
		return
	}
	st, err := toStruct(v)
	if err != nil {
		s.logger.Error("protobuf encode failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error", nil)
		return
	}
	writeProto(w, status, st)
}

func statusFor(err error) (int, string) {
	switch types.KindOf(err) {
	case types.KindValidation:
		return http.StatusBadRequest, "validation_error"
	case types.KindNotFound:
		return http.StatusNotFound, "not_found"
	case types.KindConflict:
		return http.StatusConflict, "conflict"
	case types.KindBlockedBySimulation:
		return http.StatusConflict, "blocked_by_simulation"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeServiceError maps a domain error to its HTTP status. Internal errors
// are logged and reported generically.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, status, code, "unexpected server error", nil)
		return
	}

	var details map[string]string
	var e *types.Error
	if errors.As(err, &e) {
		details = e.Fields
	}
	writeError(w, status, code, err.Error(), details)
}
