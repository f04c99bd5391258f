// Package sqlxrepos implements the domain repositories on PostgreSQL via sqlx.
package sqlxrepos

import (
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/mwalimu/shule/core"
	"github.com/mwalimu/shule/core/attendance"
	"github.com/mwalimu/shule/core/grade"
	"github.com/mwalimu/shule/core/student"
	"github.com/mwalimu/shule/core/user"
)

type Repositories struct {
	Student    student.Repository
	Attendance attendance.Repository
	Grade      grade.Repository
	User       user.Repository
}

func NewRepositories(db *sqlx.DB) Repositories {
	return Repositories{
		Student:    NewStudentRepository(db),
		Attendance: NewAttendanceRepository(db),
		Grade:      NewGradeRepository(db),
		User:       NewUserRepository(db),
	}
}

// ext resolves the executor for a call: the caller's transaction when one was
// passed, the pool otherwise.
func ext(db *sqlx.DB, exec []core.DBExecutor) sqlx.ExtContext {
	if len(exec) > 0 && exec[0] != nil {
		if e, ok := exec[0].(sqlx.ExtContext); ok {
			return e
		}
	}
	return db
}

// orderBy renders an ORDER BY clause from the requested ordering. Fields are
// resolved against the repository's orderable columns and unknown fields are
// dropped, so client-supplied ordering never reaches the SQL text itself.
func orderBy(ordering []core.DBOrdering, columns map[string]string, dflt string) string {
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := columns[ord.Field]
		if !ok {
			continue
		}
		ord.Field = col
		parts = append(parts, ord.String())
	}
	if len(parts) == 0 {
		return dflt
	}
	return strings.Join(parts, ", ")
}
