package http

import (
	"net/http"
	"strings"

	"walletnote/internal/core"
	applog "walletnote/internal/log"
)

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string][]string{"categories": core.Categories})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	data, err := decodeBody(w, r)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	e, err := parseExpense(data)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}

	stored, err := s.api.AddExpense(r.Context(), e)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toExpenseJSON(stored))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	items, err := s.api.ListExpenses(r.Context(), rng)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"range":    toRangeJSON(rng),
		"expenses": toExpensesJSON(items),
	})
}

func (s *Server) handleTotal(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, r, applog.OpTotal, err)
		return
	}
	total, err := s.api.TotalAmount(r.Context(), rng)
	if err != nil {
		writeError(w, r, applog.OpTotal, err)
		return
	}
	writeJSON(w, r, http.StatusOK, totalJSON{Range: toRangeJSON(rng), Total: amountJSON(total)})
}

// handleDeleteExpenses removes every record equal in value to the body.
func (s *Server) handleDeleteExpenses(w http.ResponseWriter, r *http.Request) {
	data, err := decodeBody(w, r)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	e, err := parseExpense(data)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}

	n, err := s.api.DeleteExpense(r.Context(), e)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Server) handleDeleteExpenseByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if err := s.api.DeleteExpenseByID(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
