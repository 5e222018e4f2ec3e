// Package model defines domain types for cashflow projections.
package model

import (
	"strings"
	"time"
)

// Entry is one categorized amount credited to or charged on a day.
type Entry struct {
	Category string
	Amount   float64
}

// DayRecord is one row of the ledger: a single calendar date.
type DayRecord struct {
	Date    time.Time
	Day     int
	Month   int
	Weekday string // English weekday name, e.g. "Monday"

	Balance float64

	Income      float64
	IncomeLabel string
	Expense     float64
	// ExpenseLabel is the comma-joined rendering of Charges, trailing
	// separator included ("Internet, Coca, ").
	ExpenseLabel string

	Credits []Entry
	Charges []Entry
}

// HasCharge reports whether a charge for category was applied on this day.
func (d DayRecord) HasCharge(category string) bool {
	for _, c := range d.Charges {
		if c.Category == category {
			return true
		}
	}
	return false
}

// JoinLabels renders entries the way the ledger displays them: each
// category followed by ", ".
func JoinLabels(entries []Entry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Category)
		b.WriteString(", ")
	}
	return b.String()
}

// ReductionSummary reports how reduction factors changed one variable category.
type ReductionSummary struct {
	Category        string
	Original        float64
	AdjustedAverage float64
	TotalReduced    float64
	Occurrences     int
}

// Recommendation is a piece of advice attached to a critical day.
type Recommendation struct {
	Date    time.Time
	Message string
}
