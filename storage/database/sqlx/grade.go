package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/shule/core"
	"github.com/mwalimu/shule/core/grade"
	"github.com/mwalimu/shule/core/student"
)

// gradeModel reads the grade columns stored on the student row.
type gradeModel struct {
	studentModel
	Grades     null.JSON    `db:"grades"`
	Average    null.Float64 `db:"average"`
	LastEditAt null.Time    `db:"last_grade_edit_at"`
}

func (m gradeModel) subjectGrades() (grade.SubjectGrades, error) {
	grades := grade.SubjectGrades{}
	if m.Grades.Valid {
		if err := json.Unmarshal(m.Grades.JSON, &grades); err != nil {
			return nil, errors.Wrap(err, "decoding grades")
		}
	}
	return grades, nil
}

func (m gradeModel) revisionState() grade.RevisionState {
	var state grade.RevisionState
	if m.LastEditAt.Valid {
		t := m.LastEditAt.Time
		state.LastEditAt = &t
	}
	return state
}

type gradeRepository struct {
	db *sqlx.DB
}

var _ grade.Repository = (*gradeRepository)(nil)

func NewGradeRepository(db *sqlx.DB) grade.Repository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) GetStudentGrades(ctx context.Context, studentID string, exec ...core.DBExecutor) (grade.SubjectGrades, grade.RevisionState, error) {
	query := `SELECT grades, last_grade_edit_at FROM student WHERE id = $1`

	var m gradeModel
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &m, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, grade.RevisionState{}, student.ErrNotFound
		}
		return nil, grade.RevisionState{}, errors.Wrap(err, "getting grades")
	}

	grades, err := m.subjectGrades()
	if err != nil {
		return nil, grade.RevisionState{}, err
	}
	return grades, m.revisionState(), nil
}

func (repo *gradeRepository) SaveStudentGrades(
	ctx context.Context, studentID string, grades grade.SubjectGrades, average float64, editedAt time.Time, exec ...core.DBExecutor,
) error {
	b, err := json.Marshal(grades)
	if err != nil {
		return errors.Wrap(err, "encoding grades")
	}

	res, err := ext(repo.db, exec).ExecContext(ctx,
		`UPDATE student SET grades = $1, average = $2, last_grade_edit_at = $3, updated_at = $3 WHERE id = $4`,
		b, average, editedAt, studentID,
	)
	if err != nil {
		return errors.Wrap(err, "saving grades")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.ErrNotFound
	}
	return nil
}

func (repo *gradeRepository) QueryStudentGrades(ctx context.Context, exec ...core.DBExecutor) ([]grade.StudentGrades, error) {
	query := `SELECT ` + studentColumns + `, grades, average, last_grade_edit_at FROM student ORDER BY full_name ASC`

	var ms []gradeModel
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &ms, query); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}

	all := make([]grade.StudentGrades, len(ms))
	for i, m := range ms {
		grades, err := m.subjectGrades()
		if err != nil {
			return nil, err
		}
		all[i] = grade.StudentGrades{
			Student:    m.student(),
			Grades:     grades,
			Average:    m.Average.Float64,
			LastEditAt: m.revisionState().LastEditAt,
		}
	}
	return all, nil
}
