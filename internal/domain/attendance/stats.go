package attendance

import (
	"fmt"
)

// DateCount is the number of completions recorded for one date.
type DateCount struct {
	Date  string
	Count int
}

// MemberMisses lists the dates a roster member did not complete.
type MemberMisses struct {
	Member Member
	Dates  []string
}

// Count returns the number of missed dates.
func (m MemberMisses) Count() int { return len(m.Dates) }

// Report is the aggregated view of a chat over a date range.
//
// Attendance is judged against active dates only: dates in the range with at
// least one completion. A range with no active dates is vacuously satisfied by
// every roster member, which NoData flags for presentation.
type Report struct {
	Dates         []string
	TotalMembers  int
	PerDateCounts []DateCount
	Average       float64
	ActiveDates   []string

	FullAttendance    []Member
	AnyAttendance     []Member
	NeverAttended     []Member
	NotFullAttendance []Member
	Missed            []MemberMisses

	// NoData is set when the range is non-empty but holds no completions.
	NoData bool
}

// AverageString renders the mean completions per date to one decimal place.
func (r Report) AverageString() string {
	return fmt.Sprintf("%.1f", r.Average)
}

// Empty reports whether there was nothing to aggregate.
func (r Report) Empty() bool {
	return len(r.Dates) == 0 || r.TotalMembers == 0
}

// BuildReport aggregates completion sets for roster over dates (ascending).
// Missing entries in sets count as empty. Ids outside the roster contribute to
// per-date counts but never appear in member lists.
func BuildReport(roster []Member, dates []string, sets map[string]IDSet, coll *Collator) Report {
	if coll == nil {
		coll = NewCollator(DefaultLocale)
	}

	members := make([]Member, len(roster))
	copy(members, roster)
	coll.SortMembers(members)

	r := Report{
		Dates:             append([]string(nil), dates...),
		TotalMembers:      len(members),
		PerDateCounts:     make([]DateCount, 0, len(dates)),
		ActiveDates:       []string{},
		FullAttendance:    []Member{},
		AnyAttendance:     []Member{},
		NeverAttended:     []Member{},
		NotFullAttendance: []Member{},
		Missed:            []MemberMisses{},
	}
	if len(dates) == 0 {
		return r
	}

	total := 0
	for _, d := range dates {
		n := sets[d].Len()
		r.PerDateCounts = append(r.PerDateCounts, DateCount{Date: d, Count: n})
		total += n
		if n > 0 {
			r.ActiveDates = append(r.ActiveDates, d)
		}
	}
	r.Average = float64(total) / float64(len(dates))
	r.NoData = len(r.ActiveDates) == 0

	for _, m := range members {
		missed := make([]string, 0)
		for _, d := range r.ActiveDates {
			if !sets[d].Has(m.ID) {
				missed = append(missed, d)
			}
		}
		r.Missed = append(r.Missed, MemberMisses{Member: m, Dates: missed})

		if len(missed) == 0 {
			r.FullAttendance = append(r.FullAttendance, m)
		} else {
			r.NotFullAttendance = append(r.NotFullAttendance, m)
		}

		if r.NoData || len(missed) < len(r.ActiveDates) {
			r.AnyAttendance = append(r.AnyAttendance, m)
		} else {
			r.NeverAttended = append(r.NeverAttended, m)
		}
	}

	return r
}
