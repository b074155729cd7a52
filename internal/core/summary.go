package core

// CategoryTotal is an amount aggregated by category.
type CategoryTotal struct {
	Category string
	Total    Money
}

// MonthTotal is an amount aggregated by "YYYY-MM" month.
type MonthTotal struct {
	Month string
	Total Money
}

// Overview is a compact summary of a record set.
type Overview struct {
	Range      *DateRange
	Count      int
	Total      Money
	ByCategory []CategoryTotal
	ByMonth    []MonthTotal
}
