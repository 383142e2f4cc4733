package exfix

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"k8s.io/klog/v2"
)

var (
	// ErrDateNotFound means no source yielded a usable date for a file.
	ErrDateNotFound = errors.New("no usable date in EXIF, filename, or path")

	// ErrInvalidManualDate means the user-supplied date matches no accepted
	// layout. It is fatal to the whole invocation.
	ErrInvalidManualDate = errors.New("unparseable manual date")
)

// A Pattern recognizes one textual date layout. The regexp's capture groups
// feed build, which assembles the candidate or rejects it as not a real
// calendar date.
type Pattern struct {
	Name  string
	Regex *regexp.Regexp
	Build func(groups []string) (time.Time, bool)
}

// dateSep separates date components in the wild: EXIF uses ':', filenames
// use '-', '_' or '/'.
const dateSep = `[:_\-/]`

// DefaultPatterns returns the scan patterns in priority order, most specific
// first. Only complete dates appear here: partial layouts such as a bare year
// would turn serial numbers into guesses.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Name:  "ymd-hms",
			Regex: regexp.MustCompile(`(\d{4})` + dateSep + `(\d{1,2})` + dateSep + `(\d{1,2})[_\-\sT](\d{1,2})[:\-](\d{1,2})[:\-](\d{1,2})`),
			Build: func(g []string) (time.Time, bool) {
				return calendarDate(atoi(g[1]), atoi(g[2]), atoi(g[3]), atoi(g[4]), atoi(g[5]), atoi(g[6]))
			},
		},
		{
			Name:  "ymd-hm",
			Regex: regexp.MustCompile(`(\d{4})` + dateSep + `(\d{1,2})` + dateSep + `(\d{1,2})[_\-\sT](\d{1,2})[:\-](\d{1,2})`),
			Build: func(g []string) (time.Time, bool) {
				return calendarDate(atoi(g[1]), atoi(g[2]), atoi(g[3]), atoi(g[4]), atoi(g[5]), 0)
			},
		},
		{
			Name:  "ymd",
			Regex: regexp.MustCompile(`(\d{4})` + dateSep + `(\d{1,2})` + dateSep + `(\d{1,2})`),
			Build: func(g []string) (time.Time, bool) {
				return calendarDate(atoi(g[1]), atoi(g[2]), atoi(g[3]), 0, 0, 0)
			},
		},
		{
			Name:  "dmy",
			Regex: regexp.MustCompile(`(\d{1,2})` + dateSep + `(\d{1,2})` + dateSep + `(\d{4})`),
			Build: func(g []string) (time.Time, bool) {
				return calendarDate(atoi(g[3]), atoi(g[2]), atoi(g[1]), 0, 0, 0)
			},
		},
		{
			Name:  "mdy",
			Regex: regexp.MustCompile(`(\d{1,2})` + dateSep + `(\d{1,2})` + dateSep + `(\d{4})`),
			Build: func(g []string) (time.Time, bool) {
				return calendarDate(atoi(g[3]), atoi(g[1]), atoi(g[2]), 0, 0, 0)
			},
		},
		{
			Name:  "compact-ymd",
			Regex: regexp.MustCompile(`(?:^|\D)(\d{4})(\d{2})(\d{2})(?:\D|$)`),
			Build: func(g []string) (time.Time, bool) {
				return calendarDate(atoi(g[1]), atoi(g[2]), atoi(g[3]), 0, 0, 0)
			},
		},
		{
			Name:  "day-monthname",
			Regex: regexp.MustCompile(`(\d{1,2})([A-Za-z]{3})(\d{2,4})`),
			Build: func(g []string) (time.Time, bool) {
				return monthNameDate(g[2], g[1], g[3])
			},
		},
		{
			Name:  "monthname-dy",
			Regex: regexp.MustCompile(`([A-Za-z]{3})[_\-\s](\d{1,2})[_\-\s](\d{2,4})`),
			Build: func(g []string) (time.Time, bool) {
				return monthNameDate(g[1], g[2], g[3])
			},
		},
	}
}

// Resolver turns heterogeneous text sources into a single validated capture
// date, or reports that none exists.
type Resolver struct {
	Patterns      []Pattern
	ManualLayouts []string
	MinYear       int
	MaxYear       int
}

// NewResolver builds a Resolver from a config.
func NewResolver(c *Config) *Resolver {
	return &Resolver{
		Patterns:      c.Patterns,
		ManualLayouts: c.ManualLayouts,
		MinYear:       c.MinYear,
		MaxYear:       c.MaxYear,
	}
}

// Resolve produces one validated date for a file. A non-empty manual string
// bypasses detection entirely. Otherwise the sources are scanned in trust
// order: EXIF text, then the filename (extension stripped), then the full
// path. Missing time-of-day defaults to midnight.
func (r *Resolver) Resolve(exifText, filename, path, manual string) (time.Time, error) {
	if manual != "" {
		return r.Manual(manual)
	}

	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	for _, src := range []struct{ name, text string }{
		{"exif", exifText},
		{"filename", stem},
		{"path", path},
	} {
		if t, ok := r.scan(src.text); ok {
			klog.V(1).Infof("date %s from %s", t.Format("2006-01-02 15:04:05"), src.name)
			return t, nil
		}
	}
	return time.Time{}, ErrDateNotFound
}

// Manual parses a user-supplied date against the accepted layouts, first
// match wins. Plausibility heuristics are skipped: an explicit date is taken
// at face value.
func (r *Resolver) Manual(s string) (time.Time, error) {
	for _, layout := range r.ManualLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidManualDate, s)
}

// scan finds the first candidate in text that is both a real calendar date
// and a plausible capture date. Patterns are tried in priority order, so a
// full datetime beats a looser layout in the same text; a candidate that
// fails validation is skipped rather than ending the scan.
func (r *Resolver) scan(text string) (time.Time, bool) {
	if text == "" {
		return time.Time{}, false
	}
	for _, p := range r.Patterns {
		for _, g := range p.Regex.FindAllStringSubmatch(text, -1) {
			t, ok := p.Build(g)
			if !ok {
				klog.V(2).Infof("%s match %q is not a calendar date", p.Name, g[0])
				continue
			}
			if !r.plausible(t) {
				klog.V(2).Infof("%s match %q rejected as implausible", p.Name, g[0])
				continue
			}
			return t, true
		}
	}
	return time.Time{}, false
}

// placeholderDates are factory-default sentinels some cameras stamp in place
// of a real capture date.
var placeholderDates = []time.Time{
	time.Date(1010, 1, 1, 0, 0, 0, 0, time.Local),
	time.Date(1970, 1, 1, 0, 0, 0, 0, time.Local),
	time.Date(1980, 1, 1, 0, 0, 0, 0, time.Local),
	time.Date(1999, 1, 1, 0, 0, 0, 0, time.Local),
	time.Date(2000, 1, 1, 0, 0, 0, 0, time.Local),
}

func (r *Resolver) plausible(t time.Time) bool {
	if t.Year() < r.MinYear || t.Year() > r.MaxYear {
		return false
	}
	for _, p := range placeholderDates {
		if t.Year() == p.Year() && t.Month() == p.Month() && t.Day() == p.Day() {
			return false
		}
	}
	return true
}

// calendarDate builds a time from components and rejects anything time.Date
// would normalize away, such as February 30th.
func calendarDate(y, mo, d, h, mi, s int) (time.Time, bool) {
	t := time.Date(y, time.Month(mo), d, h, mi, s, 0, time.Local)
	if t.Year() != y || t.Month() != time.Month(mo) || t.Day() != d {
		return time.Time{}, false
	}
	if t.Hour() != h || t.Minute() != mi || t.Second() != s {
		return time.Time{}, false
	}
	return t, true
}

// monthNameDate parses layouts like 25Jan23 or Jan-25-2023.
func monthNameDate(mon, day, year string) (time.Time, bool) {
	mon = strings.ToUpper(mon[:1]) + strings.ToLower(mon[1:])
	layout := "Jan-2-06"
	if len(year) == 4 {
		layout = "Jan-2-2006"
	}
	t, err := time.ParseInLocation(layout, fmt.Sprintf("%s-%s-%s", mon, day, year), time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
