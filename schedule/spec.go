// Package schedule parses handler update-time schedules and computes the most
// recent instant at which a refresh was due. Schedules describe recurring past
// events: an entry names a weekday (or "today"), one or more hours, and an
// optional timezone.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Always is the sentinel schedule string meaning "never trust cached content".
const Always = "always"

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Entry is a single parsed schedule triple. A nil Zone means the Spec's
// reference zone applies.
type Entry struct {
	Zone   *time.Location
	Hours  []int
	Day    time.Weekday
	HasDay bool
}

// Spec is an immutable, parsed update-time schedule.
type Spec struct {
	refZone *time.Location
	raw     []string
	entries []Entry
	always  bool
}

// Option configures schedule parsing.
type Option func(*Spec)

// WithZone sets the reference timezone used by entries that do not name one.
// The default is UTC.
func WithZone(loc *time.Location) Option {
	return func(s *Spec) {
		if loc != nil {
			s.refZone = loc
		}
	}
}

// Parse builds a Spec from schedule strings. Any entry equal to the Always
// sentinel makes the whole spec an always-refresh spec.
func Parse(entries []string, opts ...Option) (Spec, error) {
	s := Spec{refZone: time.UTC, raw: entries}
	for _, opt := range opts {
		opt(&s)
	}

	for _, raw := range entries {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.EqualFold(raw, Always) {
			s.always = true
			continue
		}
		entry, err := parseEntry(raw)
		if err != nil {
			return Spec{}, fmt.Errorf("parsing schedule entry %q: %w", raw, err)
		}
		s.entries = append(s.entries, entry)
	}
	return s, nil
}

// MustParse is a Parse that panics on malformed entries. Intended for tests
// and compiled-in defaults.
func MustParse(entries []string, opts ...Option) Spec {
	s, err := Parse(entries, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// parseEntry parses one "[day] hour[,hour...] [zone]" string.
func parseEntry(raw string) (Entry, error) {
	fields := strings.Fields(raw)
	var entry Entry

	i := 0
	if day, ok := parseDay(fields[0]); ok {
		entry.Day = day
		entry.HasDay = true
		i++
	} else if strings.EqualFold(fields[0], "today") {
		// "today" recurs every day, same as a day-less entry.
		i++
	}

	if i >= len(fields) {
		return Entry{}, fmt.Errorf("missing hours")
	}

	for _, h := range strings.Split(fields[i], ",") {
		hour, err := strconv.Atoi(strings.TrimSpace(h))
		if err != nil {
			return Entry{}, fmt.Errorf("invalid hour %q", h)
		}
		if hour < 0 || hour > 23 {
			return Entry{}, fmt.Errorf("hour %d out of range 0-23", hour)
		}
		entry.Hours = append(entry.Hours, hour)
	}
	i++

	if i < len(fields) {
		loc, err := time.LoadLocation(fields[i])
		if err != nil {
			return Entry{}, fmt.Errorf("invalid timezone %q: %w", fields[i], err)
		}
		entry.Zone = loc
		i++
	}

	if i < len(fields) {
		return Entry{}, fmt.Errorf("unexpected trailing field %q", fields[i])
	}
	return entry, nil
}

func parseDay(field string) (time.Weekday, bool) {
	key := strings.ToLower(field)
	if len(key) > 3 {
		key = key[:3]
	}
	day, ok := weekdays[key]
	return day, ok
}

// Always reports whether this spec carries the always-refresh sentinel.
func (s Spec) Always() bool {
	return s.always
}

// IsZero reports whether the spec has no entries and no sentinel.
func (s Spec) IsZero() bool {
	return !s.always && len(s.entries) == 0
}

// Entries returns the parsed schedule entries.
func (s Spec) Entries() []Entry {
	return s.entries
}

// String returns the original schedule strings joined for logging.
func (s Spec) String() string {
	return strings.Join(s.raw, "; ")
}
