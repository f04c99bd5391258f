package grade

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mwalimu/shule/core"
)

// Quarter selectors accepted in an update request.
const (
	QuarterAll = "all"
	Q1         = "q1"
	Q2         = "q2"
	Q3         = "q3"
	Q4         = "q4"
)

// QuarterScores holds a subject's per-quarter scores. A nil quarter is
// "not recorded" and is excluded from averages, never treated as zero.
type QuarterScores struct {
	Q1 *int `json:"q1,omitempty"`
	Q2 *int `json:"q2,omitempty"`
	Q3 *int `json:"q3,omitempty"`
	Q4 *int `json:"q4,omitempty"`
}

func (qs QuarterScores) IsEmpty() bool {
	return qs.Q1 == nil && qs.Q2 == nil && qs.Q3 == nil && qs.Q4 == nil
}

// recorded returns the values of the quarters that have one.
func (qs QuarterScores) recorded() []int {
	vals := make([]int, 0, 4)
	for _, q := range []*int{qs.Q1, qs.Q2, qs.Q3, qs.Q4} {
		if q != nil {
			vals = append(vals, *q)
		}
	}
	return vals
}

// Merge overlays other's recorded quarters onto qs: editing Q2 must not
// erase Q1/Q3/Q4.
func (qs QuarterScores) Merge(other QuarterScores) QuarterScores {
	if other.Q1 != nil {
		qs.Q1 = other.Q1
	}
	if other.Q2 != nil {
		qs.Q2 = other.Q2
	}
	if other.Q3 != nil {
		qs.Q3 = other.Q3
	}
	if other.Q4 != nil {
		qs.Q4 = other.Q4
	}
	return qs
}

// SubjectGrades maps a subject name to its quarter scores.
type SubjectGrades map[string]QuarterScores

func (sg SubjectGrades) clone() SubjectGrades {
	out := make(SubjectGrades, len(sg))
	for subject, qs := range sg {
		out[subject] = qs
	}
	return out
}

// ScoreValue is the tagged union a grade payload carries per subject: either a
// bare number (a single quarter's score) or a {q1..q4} object. It is
// normalized to QuarterScores at the boundary before any ledger computation.
type ScoreValue struct {
	Single   *int
	Quarters QuarterScores
}

func (sv *ScoreValue) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		sv.Single = &n
		return nil
	}
	return json.Unmarshal(b, &sv.Quarters)
}

func (sv ScoreValue) MarshalJSON() ([]byte, error) {
	if sv.Single != nil {
		return json.Marshal(*sv.Single)
	}
	return json.Marshal(sv.Quarters)
}

// Normalize resolves the union into QuarterScores. A bare number needs a
// concrete quarter selector; "all" only makes sense with the object form.
func (sv ScoreValue) Normalize(quarter string) (QuarterScores, error) {
	if sv.Single == nil {
		return sv.Quarters, nil
	}

	qs := QuarterScores{}
	switch quarter {
	case Q1:
		qs.Q1 = sv.Single
	case Q2:
		qs.Q2 = sv.Single
	case Q3:
		qs.Q3 = sv.Single
	case Q4:
		qs.Q4 = sv.Single
	default:
		return QuarterScores{}, fmt.Errorf("a bare score needs a quarter, got %q", quarter)
	}
	return qs, nil
}

// RevisionState tracks when a student's grade set was last saved,
// the anchor of the rolling edit window.
type RevisionState struct {
	LastEditAt *time.Time `json:"last_grade_edit_at,omitempty"`
}

// UpdateRequest is a grade-update submission for one student.
type UpdateRequest struct {
	Quarter     string                `json:"quarter" validate:"required,quarter"`
	Subjects    map[string]ScoreValue `json:"grades" validate:"required,min=1"`
	RequestedAt time.Time             `json:"requested_at"` // client timestamp, audit only; the lock uses the server clock
}

func (ur *UpdateRequest) Validate(validate *validator.Validate) error {
	ur.Quarter = core.CleanString(ur.Quarter, true /* lower */)
	if err := validate.Struct(ur); err != nil {
		return err
	}

	for subject, sv := range ur.Subjects {
		if core.CleanString(subject) == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "grades", Error: "empty subject name"})
		}
		qs, err := sv.Normalize(ur.Quarter)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: subject, Error: err.Error()})
		}
		for _, score := range qs.recorded() {
			if score < 0 || score > 100 {
				return core.NewValidationError(nil, core.FieldError{Field: subject, Error: "scores must be within [0, 100]"})
			}
		}
	}
	return nil
}
