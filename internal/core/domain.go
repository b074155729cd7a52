package core

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DateLayout is the wire and storage format of a calendar date.
	DateLayout = "2006-01-02"
	// MonthLayout is the aggregation bucket key format.
	MonthLayout = "2006-01"

	// MaxCategoryLength mirrors the VARCHAR(100) category column.
	MaxCategoryLength = 100
)

// Categories is the closed set of labels offered to users.
var Categories = []string{
	"Housing",
	"Food",
	"Transportation",
	"Entertainment",
	"School Tuition",
	"Medical",
	"Investment",
}

type (
	Date struct {
		time.Time
	}

	Expense struct {
		ID          string // synthetic identifier assigned by the store
		Date        Date
		Amount      Money
		Category    string
		Description string // empty means absent (stored as NULL)
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time component of t, keeping its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, Invalid("date", ErrInvalidDate)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return Invalid("date", ErrInvalidDate)
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MonthKey returns the "YYYY-MM" bucket the date falls in.
func (d Date) MonthKey() string {
	return d.Format(MonthLayout)
}

// Before reports whether d is an earlier calendar day than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsKnownCategory reports whether name is one of Categories.
func IsKnownCategory(name string) bool {
	name = strings.TrimSpace(name)
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// Normalized returns a copy with trimmed text fields and a date without
// time component.
func (e Expense) Normalized() Expense {
	e.Category = strings.TrimSpace(e.Category)
	e.Description = strings.TrimSpace(e.Description)
	if !e.Date.IsZero() {
		e.Date = DateOf(e.Date.Time)
	}
	return e
}

// HasDescription reports whether the optional description is present.
func (e Expense) HasDescription() bool {
	return strings.TrimSpace(e.Description) != ""
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	category := strings.TrimSpace(e.Category)
	if category == "" {
		return Invalid("category", ErrEmptyCategory)
	}
	if utf8.RuneCountInString(category) > MaxCategoryLength {
		return Invalid("category", ErrCategoryTooLong)
	}
	return nil
}

// SameValue reports whether e and o carry the same (date, amount, category,
// description) tuple. IDs are ignored. Amounts compare as stored floats.
func (e Expense) SameValue(o Expense) bool {
	a, b := e.Normalized(), o.Normalized()
	return a.Date.String() == b.Date.String() &&
		a.Amount.Float64() == b.Amount.Float64() &&
		a.Category == b.Category &&
		a.Description == b.Description
}
