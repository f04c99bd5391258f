package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/mwalimu/shule/core"
	"github.com/mwalimu/shule/core/grade"
	"github.com/mwalimu/shule/core/student"
)

type gradeRepository struct {
	db *DB
}

var _ grade.Repository = (*gradeRepository)(nil)

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) GetStudentGrades(_ context.Context, studentID string, _ ...core.DBExecutor) (grade.SubjectGrades, grade.RevisionState, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if _, ok := repo.db.students[studentID]; !ok {
		return nil, grade.RevisionState{}, student.ErrNotFound
	}

	row := repo.db.grades[studentID]
	return copyGrades(row.grades), grade.RevisionState{LastEditAt: row.lastEditAt}, nil
}

func (repo *gradeRepository) SaveStudentGrades(
	_ context.Context, studentID string, grades grade.SubjectGrades, average float64, editedAt time.Time, _ ...core.DBExecutor,
) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[studentID]; !ok {
		return student.ErrNotFound
	}

	repo.db.grades[studentID] = gradeRow{
		grades:     copyGrades(grades),
		average:    average,
		lastEditAt: &editedAt,
	}
	return nil
}

func (repo *gradeRepository) QueryStudentGrades(_ context.Context, _ ...core.DBExecutor) ([]grade.StudentGrades, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	all := make([]grade.StudentGrades, 0, len(repo.db.students))
	for id, stu := range repo.db.students {
		row := repo.db.grades[id]
		all = append(all, grade.StudentGrades{
			Student:    stu,
			Grades:     copyGrades(row.grades),
			Average:    row.average,
			LastEditAt: row.lastEditAt,
		})
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Student.FullName < all[j].Student.FullName })
	return all, nil
}

func copyGrades(grades grade.SubjectGrades) grade.SubjectGrades {
	out := make(grade.SubjectGrades, len(grades))
	for subject, qs := range grades {
		out[subject] = qs
	}
	return out
}
