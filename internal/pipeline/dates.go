package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// relativeDays maps relative date words to an offset from the reference day.
var relativeDays = map[string]int{
	"today":                    0,
	"今天":                       0,
	"今日":                       0,
	"yesterday":                -1,
	"昨天":                       -1,
	"昨日":                       -1,
	"day before yesterday":     -2,
	"the day before yesterday": -2,
	"前天":                       -2,
	"tomorrow":                 1,
	"明天":                       1,
}

var (
	fullDatePattern  = regexp.MustCompile(`^(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})$`)
	shortDatePattern = regexp.MustCompile(`^(\d{1,2})[-/](\d{1,2})$`)
)

// refDate returns the calendar day of ref in its own location.
func refDate(ref time.Time) civil.Date {
	return civil.DateOf(ref)
}

// resolveRelativeDate handles only the relative words.
func resolveRelativeDate(s string, ref time.Time) (string, bool) {
	offset, ok := relativeDays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", false
	}
	return refDate(ref).AddDays(offset).String(), true
}

// resolveDate turns model output into YYYY-MM-DD. Relative words resolve
// against ref, a month-day without a year takes ref's year.
func resolveDate(s string, ref time.Time) (string, error) {
	s = strings.TrimSpace(s)
	if d, ok := resolveRelativeDate(s, ref); ok {
		return d, nil
	}

	var year, month, day int
	if m := fullDatePattern.FindStringSubmatch(s); m != nil {
		year, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		day, _ = strconv.Atoi(m[3])
	} else if m := shortDatePattern.FindStringSubmatch(s); m != nil {
		year = ref.Year()
		month, _ = strconv.Atoi(m[1])
		day, _ = strconv.Atoi(m[2])
	} else {
		return "", fmt.Errorf("unrecognized date %q", s)
	}

	d := civil.Date{Year: year, Month: time.Month(month), Day: day}
	if !d.IsValid() {
		return "", fmt.Errorf("invalid calendar date %q", s)
	}
	return d.String(), nil
}
