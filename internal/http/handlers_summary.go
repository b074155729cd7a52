package http

import (
	"net/http"

	applog "walletnote/internal/log"
)

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, r, applog.OpSummary, err)
		return
	}
	ov, err := s.api.Overview(r.Context(), rng)
	if err != nil {
		writeError(w, r, applog.OpSummary, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOverviewJSON(ov))
}

func (s *Server) handleSummaryByCategory(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, r, applog.OpSummary, err)
		return
	}
	totals, err := s.api.SummaryByCategory(r.Context(), rng)
	if err != nil {
		writeError(w, r, applog.OpSummary, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"range":      toRangeJSON(rng),
		"categories": toCategoryTotalsJSON(totals),
	})
}

func (s *Server) handleSummaryByMonth(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, r, applog.OpSummary, err)
		return
	}
	totals, err := s.api.SummaryByMonth(r.Context(), rng)
	if err != nil {
		writeError(w, r, applog.OpSummary, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"range":  toRangeJSON(rng),
		"months": toMonthTotalsJSON(totals),
	})
}
