package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/mwalimu/shule/core"
	"github.com/mwalimu/shule/core/student"
)

var (
	// errors
	ErrNotFound        = errors.New("attendance record not found")
	ErrAlreadyRecorded = errors.New("attendance already recorded for today")

	// ErrDuplicateRecord is returned by Repository.CreateRecord when the
	// (student, date) uniqueness constraint rejects an insert. The service maps
	// it to a Rejected result, never to a server error: two racing scans must
	// converge on the same outcome as a sequential double scan.
	ErrDuplicateRecord = errors.New("attendance record already exists for this date")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		// CreateRecord inserts a new record; ErrDuplicateRecord if one already
		// exists for (Record.StudentID, Record.Date).
		CreateRecord(ctx context.Context, rec Record, exec ...core.DBExecutor) (Record, error)
		// ReplaceRecord atomically removes any existing record for
		// (Record.StudentID, Record.Date) and inserts rec in its place.
		ReplaceRecord(ctx context.Context, rec Record, exec ...core.DBExecutor) (Record, error)
		GetRecordForDate(ctx context.Context, studentID string, date time.Time, exec ...core.DBExecutor) (Record, error)
		// QueryRecords applies AND operation on available QueryFilter fields.
		QueryRecords(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Record, error)
	}

	// Outcome of a scan submission.
	Outcome string

	// Result is what a scan submission resolves to. On OutcomeRejected, Record
	// is the pre-existing entry for the day, returned so the caller can show
	// "already recorded" with the original status and time.
	Result struct {
		Outcome Outcome `json:"outcome"`
		Record  Record  `json:"record"`
		Reason  string  `json:"reason,omitempty"`
	}

	Service interface {
		Record(ctx context.Context, scan NewScan) (Result, error)
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Record, error)
		Today(ctx context.Context) ([]Record, error)
		StudentHistory(ctx context.Context, studentID string) ([]Record, error)
	}

	service struct {
		repo       Repository
		stuRepo    student.Repository
		classifier *Classifier
		log        core.Logger
	}
)

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
)

var _ Service = (*service)(nil)

func NewService(repo Repository, stuRepo student.Repository, classifier *Classifier, log core.Logger) Service {
	return &service{
		repo:       repo,
		stuRepo:    stuRepo,
		classifier: classifier,
		log:        log,
	}
}

// Record turns a scan into an attendance entry for (student, date).
//
// State machine per (student, date): no record -> insert; existing record +
// self-scan -> reject with the existing record; existing record (any origin) +
// teacher entry -> replace. The date resets the state implicitly since it is
// part of the key.
func (svc *service) Record(ctx context.Context, scan NewScan) (Result, error) {
	stu, err := svc.stuRepo.GetStudent(ctx, student.GetFilter{Identifier: scan.StudentIdentifier})
	if err != nil {
		return Result{}, err // student.ErrNotFound passes through
	}

	rec, err := svc.buildRecord(stu, scan)
	if err != nil {
		return Result{}, err
	}

	// A teacher entry supersedes whatever is there for the day.
	if scan.Origin == OriginTeacherEntry {
		created, err := svc.repo.ReplaceRecord(ctx, rec)
		if err != nil {
			return Result{}, pkgerrors.Wrap(err, "replacing attendance record")
		}
		svc.log.Info("attendance overridden by teacher entry",
			map[string]interface{}{"student_id": stu.ID, "date": created.Date.Format("2006-01-02"), "teacher_id": scan.TeacherID})
		return Result{Outcome: OutcomeAccepted, Record: created}, nil
	}

	created, err := svc.repo.CreateRecord(ctx, rec)
	switch err {
	case nil:
		return Result{Outcome: OutcomeAccepted, Record: created}, nil
	case ErrDuplicateRecord:
		existing, gerr := svc.repo.GetRecordForDate(ctx, stu.ID, rec.Date)
		if gerr != nil {
			return Result{}, pkgerrors.Wrap(gerr, "fetching existing attendance record")
		}
		return Result{Outcome: OutcomeRejected, Record: existing, Reason: ErrAlreadyRecorded.Error()}, nil
	default:
		return Result{}, pkgerrors.Wrap(err, "creating attendance record")
	}
}

func (svc *service) buildRecord(stu student.Student, scan NewScan) (Record, error) {
	ts := scan.Timestamp
	if ts.IsZero() {
		ts = nowFunc()
	}

	date := DateOf(ts)
	if scan.Date != "" {
		var err error
		if date, err = time.ParseInLocation("2006-01-02", scan.Date, time.UTC); err != nil {
			return Record{}, core.NewValidationError(err, core.FieldError{Field: "date", Error: "invalid date"})
		}
	}

	period := scan.Period
	if period == "" {
		period = PeriodOf(ts)
	}
	status := scan.Status
	if status == "" {
		status = svc.classifier.Classify(ts, period)
	}
	clock := scan.Time
	if clock == "" {
		clock = ts.Format("15:04:05")
	}

	return Record{
		ID:          uuid.New().String(),
		StudentID:   stu.ID,
		StudentName: stu.FullName,
		GradeLevel:  stu.GradeLevel,
		Section:     stu.Section,
		Date:        date,
		Time:        clock,
		Timestamp:   ts,
		Status:      status,
		Period:      period,
		Origin:      scan.Origin,
		TeacherID:   scan.TeacherID,
		TeacherName: scan.TeacherName,
		Location:    scan.Location,
		DeviceInfo:  scan.DeviceInfo,
		QRData:      scan.QRData,
		CreatedAt:   nowFunc().UTC(),
	}, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, filter, ordering)
}

func (svc *service) Today(ctx context.Context) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, &QueryFilter{Date: DateOf(nowFunc())}, nil)
}

func (svc *service) StudentHistory(ctx context.Context, studentID string) ([]Record, error) {
	return svc.repo.QueryRecords(
		ctx,
		&QueryFilter{StudentID: studentID},
		[]core.DBOrdering{{Field: "date", Ascending: false}},
	)
}
