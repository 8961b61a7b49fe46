package schedule

import "time"

// DueInstant returns the latest instant at or before now at which a refresh
// was due under this spec. It is the maximum candidate across every hour of
// every entry; a candidate that falls after now is re-resolved to the previous
// occurrence of its day (the previous week for named weekdays, yesterday
// otherwise).
//
// A zero spec has no due instant and returns the zero time, as does a spec
// carrying only the Always sentinel: the sentinel is a cache-policy statement,
// not a schedule, and callers check Always() before evaluating.
func (s Spec) DueInstant(now time.Time) time.Time {
	var due time.Time
	for _, entry := range s.entries {
		if cand := s.entryDue(entry, now); cand.After(due) {
			due = cand
		}
	}
	return due
}

func (s Spec) entryDue(entry Entry, now time.Time) time.Time {
	zone := entry.Zone
	if zone == nil {
		zone = s.refZone
	}
	local := now.In(zone)

	var best time.Time
	for _, hour := range entry.Hours {
		cand := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, zone)
		if entry.HasDay {
			// Step back to the most recent occurrence of the weekday.
			delta := (int(local.Weekday()) - int(entry.Day) + 7) % 7
			cand = cand.AddDate(0, 0, -delta)
			if cand.After(now) {
				cand = cand.AddDate(0, 0, -7)
			}
		} else if cand.After(now) {
			cand = cand.AddDate(0, 0, -1)
		}
		if cand.After(best) {
			best = cand
		}
	}
	return best
}
