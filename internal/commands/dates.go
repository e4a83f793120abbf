package commands

import (
	"fmt"
	"strings"
	"time"

	"todd/internal/service"
)

// dueLayouts are accepted by --due.
var dueLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04",
}

// parseDue parses a --due value into the calendar day the user typed.
// A time of day, if given, is read in the local zone and then dropped.
func parseDue(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			day := service.CalendarDay(t)
			return &day, nil
		}
	}
	return nil, fmt.Errorf("invalid due date: %s (want YYYY-MM-DD)", s)
}

// optString is a string flag that records whether it was set.
type optString struct {
	value string
	set   bool
}

func (o *optString) String() string { return o.value }

func (o *optString) Set(s string) error {
	o.value = s
	o.set = true
	return nil
}
