// Package dates turns avito's free-text date phrases into absolute timestamps.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Epoch is the sentinel returned for empty or unparseable phrases. It sorts
// oldest, so unknown dates never outrank dated listings.
var Epoch = time.Unix(0, 0).UTC()

var dayMonthRegex = regexp.MustCompile(`(\d{1,2})\s+([а-яё]+)`)

// Genitive month names as they appear in listing cards ("5 марта").
var months = map[string]time.Month{
	"января":   time.January,
	"февраля":  time.February,
	"марта":    time.March,
	"апреля":   time.April,
	"мая":      time.May,
	"июня":     time.June,
	"июля":     time.July,
	"августа":  time.August,
	"сентября": time.September,
	"октября":  time.October,
	"ноября":   time.November,
	"декабря":  time.December,
}

// Parse resolves a date phrase against now. "сегодня" and "вчера" map to
// midnight of the respective day; "<day> <month>" maps to this year, rolled
// back one year when the result would land in the future (a card saying
// "31 декабря" in January was posted last year). Anything else maps to Epoch.
func Parse(text string, now time.Time) time.Time {
	if text == "" {
		return Epoch
	}
	lower := strings.ToLower(text)

	if strings.Contains(lower, "сегодня") {
		return midnight(now)
	}
	if strings.Contains(lower, "вчера") {
		return midnight(now.AddDate(0, 0, -1))
	}

	m := dayMonthRegex.FindStringSubmatch(lower)
	if m == nil {
		return Epoch
	}
	day, err := strconv.Atoi(m[1])
	if err != nil || day < 1 || day > 31 {
		return Epoch
	}
	month, ok := months[m[2]]
	if !ok {
		return Epoch
	}

	d := time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
	if d.After(now) {
		d = d.AddDate(-1, 0, 0)
	}
	return d
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
