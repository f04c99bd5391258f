package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/mwalimu/shule/core"
	"github.com/mwalimu/shule/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) GetStudent(_ context.Context, filter student.GetFilter, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, stu := range repo.db.students {
		switch {
		case filter.ID != "":
			if stu.ID == filter.ID {
				return stu, nil
			}
		case filter.LRN != "":
			if stu.LRN == filter.LRN {
				return stu, nil
			}
		case filter.Identifier != "":
			if stu.ID == filter.Identifier || stu.LRN == filter.Identifier {
				return stu, nil
			}
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(
	_ context.Context, filter *student.QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor,
) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]student.Student, 0, len(repo.db.students))
	for _, stu := range repo.db.students {
		if filter != nil && !filter.IsEmpty() {
			if filter.Search != "" {
				search := strings.ToLower(filter.Search)
				if !strings.Contains(strings.ToLower(stu.FullName), search) &&
					!strings.Contains(strings.ToLower(stu.LRN), search) {
					continue
				}
			}
			if filter.GradeLevel != "" && stu.GradeLevel != filter.GradeLevel {
				continue
			}
			if filter.Section != "" && stu.Section != filter.Section {
				continue
			}
		}
		students = append(students, stu)
	}

	sort.Slice(students, func(i, j int) bool { return students[i].FullName < students[j].FullName })
	return students, nil
}
