package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/shule/core"
	"github.com/mwalimu/shule/core/attendance"
)

const (
	// joined with student for the denormalized name/grade/section fields
	attendanceSelect = `
SELECT r.id, r.student_id, r.date, r."time", r.ts, r.status, r.period, r.origin,
       r.teacher_id, r.teacher_name, r.location, r.device_info, r.qr_data, r.created_at,
       s.full_name, s.grade_level, s.section
FROM attendance_record r
JOIN student s ON s.id = r.student_id`

	attendanceInsert = `
INSERT INTO attendance_record (id, student_id, date, "time", ts, status, period, origin,
                               teacher_id, teacher_name, location, device_info, qr_data, created_at)
VALUES (:id, :student_id, :date, :time, :ts, :status, :period, :origin,
        :teacher_id, :teacher_name, :location, :device_info, :qr_data, :created_at)`
)

type attendanceModel struct {
	ID          string      `db:"id"`
	StudentID   string      `db:"student_id"`
	Date        time.Time   `db:"date"`
	Time        null.String `db:"time"`
	TS          null.Time   `db:"ts"`
	Status      string      `db:"status"`
	Period      string      `db:"period"`
	Origin      string      `db:"origin"`
	TeacherID   null.String `db:"teacher_id"`
	TeacherName null.String `db:"teacher_name"`
	Location    null.String `db:"location"`
	DeviceInfo  null.JSON   `db:"device_info"`
	QRData      null.String `db:"qr_data"`
	CreatedAt   null.Time   `db:"created_at"`

	// joined student columns, never written
	StudentName string      `db:"full_name"`
	GradeLevel  null.String `db:"grade_level"`
	Section     null.String `db:"section"`
}

func newAttendanceModel(rec attendance.Record) (attendanceModel, error) {
	m := attendanceModel{
		ID:          rec.ID,
		StudentID:   rec.StudentID,
		Date:        rec.Date,
		Time:        null.NewString(rec.Time, rec.Time != ""),
		TS:          nullTime(rec.Timestamp),
		Status:      string(rec.Status),
		Period:      string(rec.Period),
		Origin:      string(rec.Origin),
		TeacherID:   null.NewString(rec.TeacherID, rec.TeacherID != ""),
		TeacherName: null.NewString(rec.TeacherName, rec.TeacherName != ""),
		Location:    null.NewString(rec.Location, rec.Location != ""),
		QRData:      null.NewString(rec.QRData, rec.QRData != ""),
		CreatedAt:   nullTime(rec.CreatedAt),
	}
	if rec.DeviceInfo != nil {
		b, err := json.Marshal(rec.DeviceInfo)
		if err != nil {
			return attendanceModel{}, errors.Wrap(err, "encoding device info")
		}
		m.DeviceInfo = null.JSONFrom(b)
	}
	return m, nil
}

func (m attendanceModel) record() (attendance.Record, error) {
	rec := attendance.Record{
		ID:          m.ID,
		StudentID:   m.StudentID,
		StudentName: m.StudentName,
		GradeLevel:  m.GradeLevel.String,
		Section:     m.Section.String,
		Date:        m.Date,
		Time:        m.Time.String,
		Timestamp:   m.TS.Time,
		Status:      attendance.Status(m.Status),
		Period:      attendance.Period(m.Period),
		Origin:      attendance.Origin(m.Origin),
		TeacherID:   m.TeacherID.String,
		TeacherName: m.TeacherName.String,
		Location:    m.Location.String,
		QRData:      m.QRData.String,
		CreatedAt:   m.CreatedAt.Time,
	}
	if m.DeviceInfo.Valid {
		if err := json.Unmarshal(m.DeviceInfo.JSON, &rec.DeviceInfo); err != nil {
			return attendance.Record{}, errors.Wrap(err, "decoding device info")
		}
	}
	return rec, nil
}

// attendanceOrderColumns maps orderable filter fields to SQL columns.
var attendanceOrderColumns = map[string]string{
	"date":         "r.date",
	"time":         `r."time"`,
	"timestamp":    "r.ts",
	"status":       "r.status",
	"period":       "r.period",
	"origin":       "r.origin",
	"student_name": "s.full_name",
	"grade_level":  "s.grade_level",
	"section":      "s.section",
	"created_at":   "r.created_at",
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) CreateRecord(ctx context.Context, rec attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	m, err := newAttendanceModel(rec)
	if err != nil {
		return attendance.Record{}, err
	}
	if _, err = sqlx.NamedExecContext(ctx, ext(repo.db, exec), attendanceInsert, m); err != nil {
		if isUniqueViolation(err, "attendance_record_student_date_key") {
			return attendance.Record{}, attendance.ErrDuplicateRecord
		}
		return attendance.Record{}, errors.Wrap(err, "inserting attendance record")
	}
	return rec, nil
}

func (repo *attendanceRepository) ReplaceRecord(ctx context.Context, rec attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	if len(exec) > 0 && exec[0] != nil {
		// caller-managed transaction
		return rec, repo.replaceIn(ctx, ext(repo.db, exec), rec)
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "beginning transaction")
	}
	if err = repo.replaceIn(ctx, tx, rec); err != nil {
		_ = tx.Rollback()
		return attendance.Record{}, err
	}
	if err = tx.Commit(); err != nil {
		return attendance.Record{}, errors.Wrap(err, "committing transaction")
	}
	return rec, nil
}

func (repo *attendanceRepository) replaceIn(ctx context.Context, e sqlx.ExtContext, rec attendance.Record) error {
	m, err := newAttendanceModel(rec)
	if err != nil {
		return err
	}
	if _, err = e.ExecContext(ctx,
		`DELETE FROM attendance_record WHERE student_id = $1 AND date = $2`, rec.StudentID, rec.Date,
	); err != nil {
		return errors.Wrap(err, "deleting attendance record")
	}
	if _, err = sqlx.NamedExecContext(ctx, e, attendanceInsert, m); err != nil {
		return errors.Wrap(err, "inserting attendance record")
	}
	return nil
}

func (repo *attendanceRepository) GetRecordForDate(ctx context.Context, studentID string, date time.Time, exec ...core.DBExecutor) (attendance.Record, error) {
	query := attendanceSelect + ` WHERE r.student_id = $1 AND r.date = $2`

	var m attendanceModel
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &m, query, studentID, date); err != nil {
		if err == sql.ErrNoRows {
			return attendance.Record{}, attendance.ErrNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "getting attendance record")
	}
	return m.record()
}

func (repo *attendanceRepository) QueryRecords(
	ctx context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor,
) ([]attendance.Record, error) {
	query := attendanceSelect

	var conds []string
	var args []interface{}
	if filter != nil && !filter.IsEmpty() {
		if !filter.Date.IsZero() {
			args = append(args, filter.Date)
			conds = append(conds, fmt.Sprintf("r.date = $%d", len(args)))
		}
		if filter.StudentID != "" {
			args = append(args, filter.StudentID)
			conds = append(conds, fmt.Sprintf("r.student_id = $%d", len(args)))
		}
		if filter.GradeLevel != "" {
			args = append(args, filter.GradeLevel)
			conds = append(conds, fmt.Sprintf("s.grade_level = $%d", len(args)))
		}
		if filter.Section != "" {
			args = append(args, filter.Section)
			conds = append(conds, fmt.Sprintf("s.section = $%d", len(args)))
		}
		if filter.Period != "" {
			args = append(args, string(filter.Period))
			conds = append(conds, fmt.Sprintf("r.period = $%d", len(args)))
		}
		if filter.Status != "" {
			args = append(args, string(filter.Status))
			conds = append(conds, fmt.Sprintf("r.status = $%d", len(args)))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY " + orderBy(ordering, attendanceOrderColumns, "r.ts DESC")

	var ms []attendanceModel
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &ms, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}

	records := make([]attendance.Record, len(ms))
	for i, m := range ms {
		rec, err := m.record()
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return records, nil
}

func isUniqueViolation(err error, constraint string) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == "23505" && pqErr.Constraint == constraint
}
