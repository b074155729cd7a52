// This file holds the JSON shapes of the API and the mapping from domain
// errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"walletnote/internal/core"
	applog "walletnote/internal/log"
)

type expenseJSON struct {
	ID          string      `json:"id"`
	Date        core.Date   `json:"date"`
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Description string      `json:"description,omitempty"`
}

type categoryTotalJSON struct {
	Category string      `json:"category"`
	Total    json.Number `json:"total"`
}

type monthTotalJSON struct {
	Month string      `json:"month"`
	Total json.Number `json:"total"`
}

type rangeJSON struct {
	Start core.Date `json:"start"`
	End   core.Date `json:"end"`
}

type totalJSON struct {
	Range *rangeJSON  `json:"range"`
	Total json.Number `json:"total"`
}

type overviewJSON struct {
	Range      *rangeJSON          `json:"range"`
	Count      int                 `json:"count"`
	Total      json.Number         `json:"total"`
	ByCategory []categoryTotalJSON `json:"by_category"`
	ByMonth    []monthTotalJSON    `json:"by_month"`
}

type errorJSON struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func amountJSON(m core.Money) json.Number {
	return json.Number(m.String())
}

func toRangeJSON(rng *core.DateRange) *rangeJSON {
	if rng == nil {
		return nil
	}
	return &rangeJSON{Start: rng.Start, End: rng.End}
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:          e.ID,
		Date:        e.Date,
		Amount:      amountJSON(e.Amount),
		Category:    e.Category,
		Description: e.Description,
	}
}

func toExpensesJSON(items []core.Expense) []expenseJSON {
	out := make([]expenseJSON, 0, len(items))
	for _, e := range items {
		out = append(out, toExpenseJSON(e))
	}
	return out
}

func toCategoryTotalsJSON(totals []core.CategoryTotal) []categoryTotalJSON {
	out := make([]categoryTotalJSON, 0, len(totals))
	for _, t := range totals {
		out = append(out, categoryTotalJSON{Category: t.Category, Total: amountJSON(t.Total)})
	}
	return out
}

func toMonthTotalsJSON(totals []core.MonthTotal) []monthTotalJSON {
	out := make([]monthTotalJSON, 0, len(totals))
	for _, t := range totals {
		out = append(out, monthTotalJSON{Month: t.Month, Total: amountJSON(t.Total)})
	}
	return out
}

func toOverviewJSON(ov core.Overview) overviewJSON {
	return overviewJSON{
		Range:      toRangeJSON(ov.Range),
		Count:      ov.Count,
		Total:      amountJSON(ov.Total),
		ByCategory: toCategoryTotalsJSON(ov.ByCategory),
		ByMonth:    toMonthTotalsJSON(ov.ByMonth),
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Failed to encode response", "error", err)
	}
}

// writeError maps domain errors to status codes. Storage details are logged
// but never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)
	fields := applog.NewFields().WithOperation(op).WithError(err)

	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		logger.LogFields(ctx, slog.LevelDebug, "Request rejected", fields.WithErrorType(applog.ErrorTypeValidation))
		writeJSON(w, r, http.StatusBadRequest, errorJSON{Error: verr.Err.Error(), Field: verr.Field})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, r, http.StatusNotFound, errorJSON{Error: core.ErrNotFound.Error()})
	case errors.Is(err, core.ErrStorageUnavailable):
		logger.LogFields(ctx, slog.LevelError, "Storage unavailable", fields.WithErrorType(applog.ErrorTypeUnavailable))
		writeJSON(w, r, http.StatusServiceUnavailable, errorJSON{Error: core.ErrStorageUnavailable.Error()})
	case errors.Is(err, core.ErrStorageRead), errors.Is(err, core.ErrStorageWrite):
		logger.LogFields(ctx, slog.LevelError, "Storage operation failed", fields.WithErrorType(applog.ErrorTypeDatabase))
		writeJSON(w, r, http.StatusInternalServerError, errorJSON{Error: "storage error"})
	default:
		logger.LogFields(ctx, slog.LevelError, "Request failed", fields.WithErrorType(applog.ErrorTypeInternal))
		writeJSON(w, r, http.StatusInternalServerError, errorJSON{Error: "internal error"})
	}
}
