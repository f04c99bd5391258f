package grade

import (
	"math"
	"sort"
	"strconv"

	"github.com/mwalimu/shule/core/student"
)

// RankUngraded is the rank sentinel for students with no recorded grades.
const RankUngraded = "—"

// SubjectAverage returns the mean of the quarters that have a recorded value,
// rounded to two decimals. ok is false when no quarter is recorded; missing
// quarters are excluded, not zero-filled.
func SubjectAverage(qs QuarterScores) (avg float64, ok bool) {
	vals := qs.recorded()
	if len(vals) == 0 {
		return 0, false
	}
	var sum int
	for _, v := range vals {
		sum += v
	}
	return round2(float64(sum) / float64(len(vals))), true
}

// CompositeAverage is the mean of per-subject averages over the given
// subjects (all of grades' subjects when nil). Subjects with no recorded
// value contribute nothing. A fully ungraded student gets 0, not "unset":
// the stored average column and the ranking both treat 0 as "ungraded".
func CompositeAverage(grades SubjectGrades, subjects []string) float64 {
	if subjects == nil {
		subjects = make([]string, 0, len(grades))
		for subject := range grades {
			subjects = append(subjects, subject)
		}
	}

	var sum float64
	var n int
	for _, subject := range subjects {
		if avg, ok := SubjectAverage(grades[subject]); ok {
			sum += avg
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return round2(sum / float64(n))
}

// Standing is one row of a class ranking.
type Standing struct {
	Student   student.Student `json:"student"`
	Average   float64         `json:"average"`
	Rank      int             `json:"rank,omitempty"` // 0 when ungraded
	RankLabel string          `json:"rank_label"`
}

// Rank orders entries by composite average descending and assigns dense ranks
// 1..N. Ties keep their input order and get distinct rank numbers; that is a
// known simplification, not competition ranking. Ungraded entries (average 0)
// trail the graded ones under the RankUngraded sentinel.
func Rank(entries []Standing) []Standing {
	ranked := make([]Standing, len(entries))
	copy(ranked, entries)

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Average > ranked[j].Average })

	pos := 1
	for i := range ranked {
		if ranked[i].Average == 0 {
			ranked[i].Rank = 0
			ranked[i].RankLabel = RankUngraded
			continue
		}
		ranked[i].Rank = pos
		ranked[i].RankLabel = strconv.Itoa(pos)
		pos++
	}
	return ranked
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
