package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/mwalimu/shule/core"
	"github.com/mwalimu/shule/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) CreateRecord(_ context.Context, rec attendance.Record, _ ...core.DBExecutor) (attendance.Record, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := attendanceKey(rec.StudentID, rec.Date)
	if _, exists := repo.db.attendance[key]; exists {
		return attendance.Record{}, attendance.ErrDuplicateRecord
	}
	repo.db.attendance[key] = rec
	return rec, nil
}

func (repo *attendanceRepository) ReplaceRecord(_ context.Context, rec attendance.Record, _ ...core.DBExecutor) (attendance.Record, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.attendance[attendanceKey(rec.StudentID, rec.Date)] = rec
	return rec, nil
}

func (repo *attendanceRepository) GetRecordForDate(_ context.Context, studentID string, date time.Time, _ ...core.DBExecutor) (attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	rec, ok := repo.db.attendance[attendanceKey(studentID, date)]
	if !ok {
		return attendance.Record{}, attendance.ErrNotFound
	}
	return rec, nil
}

func (repo *attendanceRepository) QueryRecords(
	_ context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor,
) ([]attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	records := make([]attendance.Record, 0, len(repo.db.attendance))
	for _, rec := range repo.db.attendance {
		if filter != nil && !filter.IsEmpty() {
			if !filter.Date.IsZero() && !rec.Date.Equal(filter.Date) {
				continue
			}
			if filter.StudentID != "" && rec.StudentID != filter.StudentID {
				continue
			}
			if filter.GradeLevel != "" && rec.GradeLevel != filter.GradeLevel {
				continue
			}
			if filter.Section != "" && rec.Section != filter.Section {
				continue
			}
			if filter.Period != "" && rec.Period != filter.Period {
				continue
			}
			if filter.Status != "" && rec.Status != filter.Status {
				continue
			}
		}
		records = append(records, rec)
	}

	byDate := len(ordering) > 0 && ordering[0].Field == "date" && !ordering[0].Ascending
	sort.Slice(records, func(i, j int) bool {
		if byDate {
			return records[i].Date.After(records[j].Date)
		}
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records, nil
}
