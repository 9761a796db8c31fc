package domain

import (
	"fmt"
	"time"
)

const monthLayout = "2006-01"

// Calendar is the fixed sequence of billable months.
type Calendar struct {
	months []string
	index  map[string]int
}

// NewCalendar builds a calendar of n consecutive months starting at start (YYYY-MM).
func NewCalendar(start string, n int) (*Calendar, error) {
	t, err := time.Parse(monthLayout, start)
	if err != nil {
		return nil, fmt.Errorf("calendar start %q: %w", start, err)
	}
	if n <= 0 {
		return nil, fmt.Errorf("calendar length must be positive, got %d", n)
	}
	c := &Calendar{months: make([]string, n), index: make(map[string]int, n)}
	for i := 0; i < n; i++ {
		m := t.AddDate(0, i, 0).Format(monthLayout)
		c.months[i] = m
		c.index[m] = i
	}
	return c, nil
}

func (c *Calendar) Allowed(month string) bool {
	_, ok := c.index[month]
	return ok
}

// First is the month on which the signup discount may be spent.
func (c *Calendar) First() string { return c.months[0] }

func (c *Calendar) IsFirst(month string) bool { return month == c.months[0] }

func (c *Calendar) Months() []string {
	out := make([]string, len(c.months))
	copy(out, c.months)
	return out
}
