package student

import (
	"time"

	"github.com/mwalimu/shule/core"
)

// Student is a roster entry. The roster is owned by the enrollment side of the
// app; the attendance and grade engines reference students and never mutate them.
type Student struct {
	ID         string    `json:"id"`
	LRN        string    `json:"lrn"` // Learner Reference Number, printed on the QR card
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	FullName   string    `json:"full_name"`
	GradeLevel string    `json:"grade_level"`
	Section    string    `json:"section"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

// GetFilter selects a single student. Identifier matches either ID or LRN,
// whichever a scanned QR payload happens to carry.
type GetFilter struct {
	ID         string
	LRN        string
	Identifier string
}

type QueryFilter struct {
	Search     string `query:"search"`
	GradeLevel string `query:"grade_level"`
	Section    string `query:"section"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.GradeLevel == "" && qf.Section == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.GradeLevel = core.CleanString(qf.GradeLevel)
	qf.Section = core.CleanString(qf.Section)
}
