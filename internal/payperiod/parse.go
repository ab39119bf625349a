package payperiod

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// dateLayouts are tried in order after ISO 8601
var dateLayouts = []string{
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
}

// ParseDate parses a calendar date, accepting ISO 8601 and a few common alternatives
func ParseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if d, err := civil.ParseDate(s); err == nil {
		return d, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseLabel maps a weekday label ("sun", "Sunday", "SUN") to its weekday
func ParseLabel(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return 0, false
	}
	for i, l := range labels {
		if strings.HasPrefix(s, l) && strings.HasPrefix(strings.ToLower(time.Weekday(i).String()), s) {
			return time.Weekday(i), true
		}
	}
	return 0, false
}
