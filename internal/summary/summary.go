// Package summary groups expense snapshots into sorted totals.
//
// Every function here is pure: it reads the slice it is given and never
// retains or mutates it.
package summary

import (
	"sort"

	"walletnote/internal/core"
)

// ByCategory sums amounts per category, largest total first. Categories
// with equal totals keep the order in which they were first seen.
func ByCategory(records []core.Expense) []core.CategoryTotal {
	index := make(map[string]int)
	out := make([]core.CategoryTotal, 0)
	for _, r := range records {
		i, ok := index[r.Category]
		if !ok {
			i = len(out)
			index[r.Category] = i
			out = append(out, core.CategoryTotal{Category: r.Category})
		}
		out[i].Total = out[i].Total.Add(r.Amount)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.GreaterThan(out[j].Total.Decimal)
	})
	return out
}

// ByMonth sums amounts per "YYYY-MM" bucket in chronological order.
func ByMonth(records []core.Expense) []core.MonthTotal {
	index := make(map[string]int)
	out := make([]core.MonthTotal, 0)
	for _, r := range records {
		key := r.Date.MonthKey()
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, core.MonthTotal{Month: key})
		}
		out[i].Total = out[i].Total.Add(r.Amount)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Month < out[j].Month
	})
	return out
}

// Total returns the grand total of records.
func Total(records []core.Expense) core.Money {
	var total core.Money
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}

// Overview bundles the total and both breakdowns of records.
func Overview(rng *core.DateRange, records []core.Expense) core.Overview {
	return core.Overview{
		Range:      rng,
		Count:      len(records),
		Total:      Total(records),
		ByCategory: ByCategory(records),
		ByMonth:    ByMonth(records),
	}
}
