package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BrandonDHaskell/muster/internal/muster/types"
)

func (s *Server) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, s.occupancy.Payload(r.Context()))
}

type evacuationBody struct {
	Targets   []string   `json:"targets"`
	Mode      string     `json:"mode"`
	Operator  string     `json:"operator"`
	Notes     string     `json:"notes"`
	Timestamp *time.Time `json:"timestamp"`
}

func (s *Server) handleEvacuation(w http.ResponseWriter, r *http.Request) {
	var body evacuationBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_body", "invalid request body", nil)
		return
	}

	mode, _ := types.ParseMode(body.Mode)
	req := types.EvacuationRequest{
		Targets:  body.Targets,
		Mode:     mode,
		Operator: strings.TrimSpace(body.Operator),
		Notes:    body.Notes,
	}
	if body.Timestamp != nil {
		req.Timestamp = *body.Timestamp
	}

	out, err := s.evacuations.Process(r.Context(), req)
	if err != nil {
		if out == nil {
			s.writeServiceError(w, r, err)
			return
		}
		// Failed outcomes still carry the occupancy snapshot.
		status, _ := statusFor(err)
		s.respond(w, r, status, out)
		return
	}
	s.respond(w, r, http.StatusOK, out)
}

func (s *Server) handleAccess(w http.ResponseWriter, r *http.Request) {
	var req types.AccessRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_body", "invalid request body", nil)
		return
	}

	res, err := s.access.Register(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, res)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	kind, ok := parseAuditKind(q.Get("kind"))
	if !ok {
		writeError(w, http.StatusBadRequest, "validation_error", "unknown audit kind",
			map[string]string{"kind": "kind must be one of: REAL_EVACUATION SIMULATED_EVACUATION LOG_ERROR"})
		return
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer", nil)
			return
		}
		limit = n
	}

	entries, err := s.audit.Recent(r.Context(), kind, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, map[string]any{
		"kind":    kind,
		"entries": entries,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.status.Check(r.Context())
	code := http.StatusOK
	if !st.OK {
		code = http.StatusServiceUnavailable
	}
	s.respond(w, r, code, st)
}

func parseAuditKind(s string) (types.AuditKind, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(types.AuditRealEvacuation), "REAL":
		return types.AuditRealEvacuation, true
	case string(types.AuditSimulatedEvacuation), "SIMULATED", "SIMULACRO":
		return types.AuditSimulatedEvacuation, true
	case string(types.AuditLogError), "ERROR", "ERRORS":
		return types.AuditLogError, true
	default:
		return "", false
	}
}
