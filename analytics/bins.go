package analytics

import (
	"fmt"
	"strings"
	"time"
)

// Bin is the width of a histogram bucket
type Bin string

const (
	BinHour    Bin = "1H"
	BinDay     Bin = "1D"
	BinWeek    Bin = "1W"
	BinMonth   Bin = "1M"
	BinQuarter Bin = "3M"
)

// ParseBin maps a bin size name to a Bin. Unknown sizes fall back to BinDay.
func ParseBin(s string) Bin {
	switch b := Bin(strings.ToUpper(strings.TrimSpace(s))); b {
	case BinHour, BinDay, BinWeek, BinMonth, BinQuarter:
		return b
	}
	return BinDay
}

// Key returns the label of the bucket containing t
func (b Bin) Key(t time.Time) string {
	switch b {
	case BinHour:
		return t.Format("2006-01-02 15:00")
	case BinWeek:
		offset := (int(t.Weekday()) + 6) % 7
		return t.AddDate(0, 0, -offset).Format("2006-01-02")
	case BinMonth:
		return t.Format("2006-01")
	case BinQuarter:
		return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
	}
	return t.Format("2006-01-02")
}

// DateRange is an inclusive range of whole days
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses YYYY-MM-DD bounds. If either bound is empty the
// range is unbounded and nil is returned.
func ParseDateRange(start, end string) (*DateRange, error) {
	if start == "" || end == "" {
		return nil, nil
	}
	s, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return nil, fmt.Errorf("invalid start_date %q", start)
	}
	e, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return nil, fmt.Errorf("invalid end_date %q", end)
	}
	e = e.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	if e.Before(s) {
		return nil, fmt.Errorf("end_date %s is before start_date %s", end, start)
	}
	return &DateRange{Start: s, End: e}, nil
}

// Contains reports whether t falls within the range
func (r *DateRange) Contains(t time.Time) bool {
	return r == nil || (!t.Before(r.Start) && !t.After(r.End))
}
