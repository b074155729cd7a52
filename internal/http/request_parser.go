// This file turns request bodies and query strings into validated domain
// values. Every rejection is a *core.ValidationError naming the field.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"walletnote/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

var errMalformedBody = errors.New("malformed JSON body")

// decodeBody reads a JSON object into a generic map. Numbers are kept as
// json.Number so amounts never pass through float64 on the way in.
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, core.Invalid("body", errors.New("request body too large"))
		}
		return nil, core.Invalid("body", errMalformedBody)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, core.Invalid("body", errMalformedBody)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil || data == nil {
		return nil, core.Invalid("body", errMalformedBody)
	}
	return data, nil
}

// parseExpense validates a {date, amount, category, description?} object.
func parseExpense(data map[string]any) (core.Expense, error) {
	date, err := core.ParseDate(stringValue(data["date"]))
	if err != nil {
		return core.Expense{}, err
	}

	amount, err := core.ParseMoney(stringValue(data["amount"]))
	if err != nil {
		return core.Expense{}, err
	}

	category := sanitizeInput(stringValue(data["category"]))
	if category == "" {
		return core.Expense{}, core.Invalid("category", core.ErrEmptyCategory)
	}
	if !core.IsKnownCategory(category) {
		return core.Expense{}, core.Invalid("category", core.ErrUnknownCategory)
	}

	e := core.Expense{
		Date:        date,
		Amount:      amount,
		Category:    category,
		Description: sanitizeInput(stringValue(data["description"])),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// parseRange reads the optional start/end query parameters.
func parseRange(r *http.Request) (*core.DateRange, error) {
	q := r.URL.Query()
	return core.ParseDateRange(q.Get("start"), q.Get("end"))
}

// stringValue converts a decoded JSON value to string. Absent and null
// values become "".
func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput strips control characters except tab and newlines, then
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		if r == 127 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
