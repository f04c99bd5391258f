package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/shule/core"
	"github.com/mwalimu/shule/core/student"
)

const studentColumns = `id, lrn, first_name, last_name, full_name, grade_level, section, status, created_at, updated_at`

type studentModel struct {
	ID         string      `db:"id"`
	LRN        null.String `db:"lrn"`
	FirstName  string      `db:"first_name"`
	LastName   string      `db:"last_name"`
	FullName   string      `db:"full_name"`
	GradeLevel null.String `db:"grade_level"`
	Section    null.String `db:"section"`
	Status     null.String `db:"status"`
	CreatedAt  null.Time   `db:"created_at"`
	UpdatedAt  null.Time   `db:"updated_at"`
}

func (m studentModel) student() student.Student {
	return student.Student{
		ID:         m.ID,
		LRN:        m.LRN.String,
		FirstName:  m.FirstName,
		LastName:   m.LastName,
		FullName:   m.FullName,
		GradeLevel: m.GradeLevel.String,
		Section:    m.Section.String,
		Status:     m.Status.String,
		CreatedAt:  m.CreatedAt.Time,
		UpdatedAt:  m.UpdatedAt.Time,
	}
}

func nullTime(t time.Time) null.Time {
	return null.NewTime(t, !t.IsZero())
}

var studentOrderColumns = map[string]string{
	"lrn":         "lrn",
	"first_name":  "first_name",
	"last_name":   "last_name",
	"full_name":   "full_name",
	"grade_level": "grade_level",
	"section":     "section",
	"status":      "status",
	"created_at":  "created_at",
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) GetStudent(ctx context.Context, filter student.GetFilter, exec ...core.DBExecutor) (student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM student WHERE `
	var arg string
	switch {
	case filter.ID != "":
		query += `id = $1`
		arg = filter.ID
	case filter.LRN != "":
		query += `lrn = $1`
		arg = filter.LRN
	case filter.Identifier != "":
		query += `(id = $1 OR lrn = $1)`
		arg = filter.Identifier
	default:
		return student.Student{}, errors.New("empty student filter")
	}

	var m studentModel
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &m, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "getting student")
	}
	return m.student(), nil
}

func (repo *studentRepository) QueryStudents(
	ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor,
) ([]student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM student`

	var conds []string
	var args []interface{}
	if filter != nil && !filter.IsEmpty() {
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			conds = append(conds, fmt.Sprintf("(full_name ILIKE $%d OR lrn ILIKE $%d)", len(args), len(args)))
		}
		if filter.GradeLevel != "" {
			args = append(args, filter.GradeLevel)
			conds = append(conds, fmt.Sprintf("grade_level = $%d", len(args)))
		}
		if filter.Section != "" {
			args = append(args, filter.Section)
			conds = append(conds, fmt.Sprintf("section = $%d", len(args)))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY " + orderBy(ordering, studentOrderColumns, "full_name ASC")

	var ms []studentModel
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &ms, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}

	students := make([]student.Student, len(ms))
	for i, m := range ms {
		students[i] = m.student()
	}
	return students, nil
}
