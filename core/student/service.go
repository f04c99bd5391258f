package student

import (
	"context"
	"errors"

	"github.com/mwalimu/shule/core"
)

var ErrNotFound = errors.New("student not found")

type (
	Repository interface {
		GetStudent(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Student.FullName or Student.LRN.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
	}

	Service interface {
		GetByIdentifier(ctx context.Context, identifier string) (Student, error)
		GetByID(ctx context.Context, id string) (Student, error)
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Student, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) GetByIdentifier(ctx context.Context, identifier string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{Identifier: core.CleanString(identifier)})
}

func (svc *service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{ID: id})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Student, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryStudents(ctx, filter, ordering)
}
