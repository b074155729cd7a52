package core

import "strings"

// DateRange is an inclusive [Start, End] filter. A nil *DateRange means
// "no filter".
type DateRange struct {
	Start Date
	End   Date
}

// NewDateRange builds a validated range.
func NewDateRange(start, end Date) (*DateRange, error) {
	r := &DateRange{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// ParseDateRange parses optional YYYY-MM-DD bounds. Both empty yields a nil
// range; exactly one empty is rejected rather than silently widened.
func ParseDateRange(start, end string) (*DateRange, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, Invalid("range", ErrPartialRange)
	}
	s, err := ParseDate(start)
	if err != nil {
		return nil, Invalid("start", ErrInvalidDate)
	}
	e, err := ParseDate(end)
	if err != nil {
		return nil, Invalid("end", ErrInvalidDate)
	}
	return NewDateRange(s, e)
}

func (r *DateRange) Validate() error {
	if r == nil {
		return nil
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return Invalid("range", ErrPartialRange)
	}
	if r.End.Before(r.Start) {
		return Invalid("range", ErrInvertedRange)
	}
	return nil
}

// Contains reports whether d falls inside the range. A nil range contains
// every date.
func (r *DateRange) Contains(d Date) bool {
	if r == nil {
		return true
	}
	return !d.Before(r.Start) && !r.End.Before(d)
}

func (r *DateRange) String() string {
	if r == nil {
		return "all"
	}
	return r.Start.String() + ".." + r.End.String()
}
