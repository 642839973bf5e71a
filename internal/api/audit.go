package api

import (
	"net/http"
	"strconv"

	"github.com/tintworks/tintcore/internal/audit"
)

// handleListAudit returns audit entries, newest first.
//
// Query parameters: limit, offset, from, to (unix seconds),
// target_type, target (substring), result (substring).
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	filter, ok := auditFilterFrom(w, r)
	if !ok {
		return
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("audit query failed", "error", err)
		writeInternalError(w, "failed to query audit log")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleExportAudit streams matching audit entries as a CSV download.
// The same filters apply as for the JSON listing.
func (s *Server) handleExportAudit(w http.ResponseWriter, r *http.Request) {
	filter, ok := auditFilterFrom(w, r)
	if !ok {
		return
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("audit export query failed", "error", err)
		writeInternalError(w, "failed to query audit log")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="audit.csv"`)
	if err := audit.WriteCSV(w, result.Entries); err != nil {
		// Headers are gone; all we can do is log.
		s.logger.Error("audit export write failed", "error", err)
	}
}

// auditFilterFrom parses audit query parameters. On a malformed
// numeric parameter it writes a 400 and returns ok=false.
func auditFilterFrom(w http.ResponseWriter, r *http.Request) (audit.Filter, bool) {
	q := r.URL.Query()
	filter := audit.Filter{
		TargetType: q.Get("target_type"),
		Target:     q.Get("target"),
		Result:     q.Get("result"),
	}

	for _, p := range []struct {
		name string
		dst  *int64
	}{
		{"from", &filter.From},
		{"to", &filter.To},
	} {
		if raw := q.Get(p.name); raw != "" {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeBadRequest(w, p.name+" must be a unix timestamp")
				return audit.Filter{}, false
			}
			*p.dst = v
		}
	}

	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"limit", &filter.Limit},
		{"offset", &filter.Offset},
	} {
		if raw := q.Get(p.name); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				writeBadRequest(w, p.name+" must be an integer")
				return audit.Filter{}, false
			}
			*p.dst = v
		}
	}

	if filter.TargetType != "" &&
		filter.TargetType != audit.TargetPanel && filter.TargetType != audit.TargetGroup {
		writeBadRequest(w, "target_type must be 'panel' or 'group'")
		return audit.Filter{}, false
	}

	return filter, true
}
