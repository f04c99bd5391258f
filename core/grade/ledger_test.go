package grade

import (
	"testing"

	"github.com/mwalimu/shule/core/student"
)

func intp(n int) *int { return &n }

func TestSubjectAverage(t *testing.T) {
	tests := []struct {
		name   string
		qs     QuarterScores
		want   float64
		wantOk bool
	}{
		{"no quarters", QuarterScores{}, 0, false},
		{"one quarter", QuarterScores{Q2: intp(88)}, 88, true},
		{"two quarters", QuarterScores{Q1: intp(85), Q2: intp(90)}, 87.5, true},
		{"all quarters", QuarterScores{Q1: intp(85), Q2: intp(90), Q3: intp(81), Q4: intp(84)}, 85, true},
		{"repeating decimal rounds", QuarterScores{Q1: intp(85), Q2: intp(90), Q3: intp(81)}, 85.33, true},
		{"zero is a score, not a gap", QuarterScores{Q1: intp(0)}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SubjectAverage(tt.qs)
			if got != tt.want || ok != tt.wantOk {
				t.Errorf("SubjectAverage() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOk)
			}
		})
	}
}

func TestCompositeAverage(t *testing.T) {
	grades := SubjectGrades{
		"Math":    {Q1: intp(85), Q2: intp(90)}, // 87.5
		"Science": {Q1: intp(80)},               // 80
		"English": {},                           // no recorded quarters
	}

	if got := CompositeAverage(grades, nil); got != 83.75 {
		t.Errorf("CompositeAverage(all) = %v, want 83.75 (English excluded)", got)
	}
	if got := CompositeAverage(grades, []string{"Math"}); got != 87.5 {
		t.Errorf("CompositeAverage(Math) = %v, want 87.5", got)
	}
	if got := CompositeAverage(grades, []string{"English"}); got != 0 {
		t.Errorf("CompositeAverage(English) = %v, want 0", got)
	}
	if got := CompositeAverage(SubjectGrades{}, nil); got != 0 {
		t.Errorf("CompositeAverage(empty) = %v, want 0", got)
	}
}

func TestQuarterScores_Merge(t *testing.T) {
	stored := QuarterScores{Q1: intp(85), Q3: intp(78)}
	merged := stored.Merge(QuarterScores{Q2: intp(90)})

	if merged.Q1 == nil || *merged.Q1 != 85 {
		t.Error("Merge() dropped Q1")
	}
	if merged.Q2 == nil || *merged.Q2 != 90 {
		t.Error("Merge() did not apply Q2")
	}
	if merged.Q3 == nil || *merged.Q3 != 78 {
		t.Error("Merge() dropped Q3")
	}

	// an incoming quarter overwrites the stored one
	merged = stored.Merge(QuarterScores{Q1: intp(95)})
	if merged.Q1 == nil || *merged.Q1 != 95 {
		t.Error("Merge() did not overwrite Q1")
	}
}

func TestRank(t *testing.T) {
	stu := func(id string) student.Student { return student.Student{ID: id} }

	entries := []Standing{
		{Student: stu("b"), Average: 85},
		{Student: stu("ungraded"), Average: 0},
		{Student: stu("a"), Average: 92},
		{Student: stu("c"), Average: 85}, // tie with b; input order kept
	}
	ranked := Rank(entries)

	wantOrder := []string{"a", "b", "c", "ungraded"}
	for i, id := range wantOrder {
		if ranked[i].Student.ID != id {
			t.Fatalf("Rank() order[%d] = %s, want %s", i, ranked[i].Student.ID, id)
		}
	}

	wantRanks := []int{1, 2, 3, 0}
	wantLabels := []string{"1", "2", "3", RankUngraded}
	for i := range ranked {
		if ranked[i].Rank != wantRanks[i] {
			t.Errorf("Rank()[%d].Rank = %d, want %d", i, ranked[i].Rank, wantRanks[i])
		}
		if ranked[i].RankLabel != wantLabels[i] {
			t.Errorf("Rank()[%d].RankLabel = %s, want %s", i, ranked[i].RankLabel, wantLabels[i])
		}
	}

	// input slice untouched
	if entries[0].Rank != 0 || entries[0].Student.ID != "b" {
		t.Error("Rank() mutated its input")
	}
}
