package grade

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/mwalimu/shule/core"
	"github.com/mwalimu/shule/core/student"
	"github.com/mwalimu/shule/core/user"
)

var (
	// errors
	ErrLocked = errors.New("grades are locked; the edit window has expired")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		// GetStudentGrades returns the stored per-subject scores and revision
		// state; an empty map and zero state when the student has none yet.
		GetStudentGrades(ctx context.Context, studentID string, exec ...core.DBExecutor) (SubjectGrades, RevisionState, error)
		// SaveStudentGrades persists the full merged grade map, the recomputed
		// composite average and the new edit anchor in one write.
		SaveStudentGrades(ctx context.Context, studentID string, grades SubjectGrades, average float64, editedAt time.Time, exec ...core.DBExecutor) error
		// QueryStudentGrades returns every student's stored grade map.
		QueryStudentGrades(ctx context.Context, exec ...core.DBExecutor) ([]StudentGrades, error)
	}

	// StudentGrades is a student's full grade sheet as read back by callers.
	StudentGrades struct {
		Student    student.Student `json:"student"`
		Grades     SubjectGrades   `json:"grades"`
		Average    float64         `json:"average"`
		LastEditAt *time.Time      `json:"last_grade_edit_at,omitempty"`
		Window     Window          `json:"edit_window"`
	}

	// Outcome of an update submission.
	UpdateOutcome string

	UpdateResult struct {
		Outcome              UpdateOutcome `json:"outcome"`
		Average              float64       `json:"average,omitempty"`
		Grades               SubjectGrades `json:"grades,omitempty"`
		Window               Window        `json:"edit_window"`
		Reason               string        `json:"reason,omitempty"`
		UnauthorizedSubjects []string      `json:"unauthorized_subjects,omitempty"`
	}

	Service interface {
		Update(ctx context.Context, studentID string, req UpdateRequest, actor user.User) (UpdateResult, error)
		StudentGrades(ctx context.Context, studentID string) (StudentGrades, error)
		Rankings(ctx context.Context) ([]Standing, error)
	}

	service struct {
		repo    Repository
		stuRepo student.Repository
		window  time.Duration
		log     core.Logger
	}
)

const (
	UpdateApplied      UpdateOutcome = "applied"
	UpdateLocked       UpdateOutcome = "locked"
	UpdateUnauthorized UpdateOutcome = "unauthorized"
)

var _ Service = (*service)(nil)

func NewService(repo Repository, stuRepo student.Repository, conf *core.Config, log core.Logger) Service {
	return &service{
		repo:    repo,
		stuRepo: stuRepo,
		window:  conf.Grades.EditWindow,
		log:     log,
	}
}

// Update validates and applies a grade-update request.
//
// The edit window is a hard gate: a locked grade set is never written. Subject
// teachers get all-or-nothing authorization: one unassigned subject in the
// payload rejects the whole request. Submitted quarters merge into the stored
// map; the composite average is recomputed over the merged map and persisted
// together with the new edit anchor.
func (svc *service) Update(ctx context.Context, studentID string, req UpdateRequest, actor user.User) (UpdateResult, error) {
	stu, err := svc.stuRepo.GetStudent(ctx, student.GetFilter{ID: studentID})
	if err != nil {
		return UpdateResult{}, err // student.ErrNotFound passes through
	}

	stored, state, err := svc.repo.GetStudentGrades(ctx, stu.ID)
	if err != nil {
		return UpdateResult{}, pkgerrors.Wrap(err, "reading stored grades")
	}

	now := nowFunc().UTC()
	window := CheckWindow(state.LastEditAt, now, svc.window)
	if !window.Open() {
		return UpdateResult{Outcome: UpdateLocked, Window: window, Reason: ErrLocked.Error()}, nil
	}

	if actor.IsSubjectTeacher() {
		var unauthorized []string
		for subject := range req.Subjects {
			if !actor.TeachesSubject(subject) {
				unauthorized = append(unauthorized, subject)
			}
		}
		if len(unauthorized) > 0 {
			return UpdateResult{
				Outcome:              UpdateUnauthorized,
				Window:               window,
				UnauthorizedSubjects: unauthorized,
			}, nil
		}
	}

	merged := stored.clone()
	for subject, sv := range req.Subjects {
		qs, err := sv.Normalize(req.Quarter)
		if err != nil {
			return UpdateResult{}, core.NewValidationError(err, core.FieldError{Field: subject, Error: err.Error()})
		}
		merged[subject] = merged[subject].Merge(qs)
	}

	average := CompositeAverage(merged, nil)
	if err := svc.repo.SaveStudentGrades(ctx, stu.ID, merged, average, now); err != nil {
		return UpdateResult{}, pkgerrors.Wrap(err, "saving grades")
	}
	svc.log.Info("grades updated",
		map[string]interface{}{"student_id": stu.ID, "average": average, "editor_id": actor.ID})

	return UpdateResult{
		Outcome: UpdateApplied,
		Average: average,
		Grades:  merged,
		Window:  CheckWindow(&now, now, svc.window),
	}, nil
}

func (svc *service) StudentGrades(ctx context.Context, studentID string) (StudentGrades, error) {
	stu, err := svc.stuRepo.GetStudent(ctx, student.GetFilter{ID: studentID})
	if err != nil {
		return StudentGrades{}, err
	}

	grades, state, err := svc.repo.GetStudentGrades(ctx, stu.ID)
	if err != nil {
		return StudentGrades{}, pkgerrors.Wrap(err, "reading stored grades")
	}

	return StudentGrades{
		Student:    stu,
		Grades:     grades,
		Average:    CompositeAverage(grades, nil),
		LastEditAt: state.LastEditAt,
		Window:     CheckWindow(state.LastEditAt, nowFunc().UTC(), svc.window),
	}, nil
}

// Rankings recomputes the dense class ordering from stored grades; ranks are
// never persisted.
func (svc *service) Rankings(ctx context.Context) ([]Standing, error) {
	all, err := svc.repo.QueryStudentGrades(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying grades")
	}

	entries := make([]Standing, 0, len(all))
	for _, sg := range all {
		entries = append(entries, Standing{
			Student: sg.Student,
			Average: CompositeAverage(sg.Grades, nil),
		})
	}
	return Rank(entries), nil
}
