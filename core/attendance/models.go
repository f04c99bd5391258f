package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mwalimu/shule/core"
)

// Statuses derived from the scan time (see Classifier).
type Status string

const (
	StatusPresent Status = "Present"
	StatusLate    Status = "Late"
	StatusAbsent  Status = "Absent"
)

// Periods of a school day.
type Period string

const (
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
)

// Origin records who created an attendance entry. A student's own scan may not
// overwrite an existing record for the day; a teacher entry may.
type Origin string

const (
	OriginSelfScan     Origin = "self-scan"
	OriginTeacherEntry Origin = "teacher-entry"
)

// Record is one attendance entry. At most one exists per (student, date);
// the storage layer enforces this with a uniqueness constraint.
type Record struct {
	ID          string            `json:"id"`
	StudentID   string            `json:"student_id"`
	StudentName string            `json:"student_name"`
	GradeLevel  string            `json:"grade_level"`
	Section     string            `json:"section"`
	Date        time.Time         `json:"date"` // civil date, midnight UTC
	Time        string            `json:"time"` // wall clock at scan, "15:04:05"
	Timestamp   time.Time         `json:"timestamp"`
	Status      Status            `json:"status"`
	Period      Period            `json:"period"`
	Origin      Origin            `json:"origin"`
	TeacherID   string            `json:"teacher_id,omitempty"`
	TeacherName string            `json:"teacher_name,omitempty"`
	Location    string            `json:"location,omitempty"`
	DeviceInfo  map[string]string `json:"device_info,omitempty"`
	QRData      string            `json:"qr_data,omitempty"`
	CreatedAt   time.Time         `json:"created_at"` // UTC
}

// DateOf truncates t to its civil date (midnight UTC).
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PeriodOf derives the school period from the scan's wall clock.
func PeriodOf(t time.Time) Period {
	if t.Hour() < 12 {
		return PeriodMorning
	}
	return PeriodAfternoon
}

// NewScan contains the information submitted to record attendance,
// either from a QR self-scan or a teacher's manual entry.
type NewScan struct {
	StudentIdentifier string            `json:"student_id" validate:"required"`
	Date              string            `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time              string            `json:"time"`
	Timestamp         time.Time         `json:"timestamp"`
	Status            Status            `json:"status" validate:"omitempty,oneof=Present Late Absent"`
	Period            Period            `json:"period" validate:"omitempty,period"`
	Origin            Origin            `json:"origin" validate:"omitempty,oneof=self-scan teacher-entry"`
	TeacherID         string            `json:"teacher_id" validate:"required_if=Origin teacher-entry"`
	TeacherName       string            `json:"teacher_name"`
	Location          string            `json:"location"`
	DeviceInfo        map[string]string `json:"device_info"`
	QRData            string            `json:"qr_data"`
}

func (ns *NewScan) Validate(validate *validator.Validate) error {
	ns.StudentIdentifier = core.CleanString(ns.StudentIdentifier)
	ns.Location = core.CleanString(ns.Location)
	if ns.Origin == "" {
		ns.Origin = OriginSelfScan
	}
	return validate.Struct(ns)
}

// QueryFilter narrows attendance queries. Date is a civil date (midnight UTC);
// transports carry it as a "2006-01-02" string and parse it before building
// the filter.
type QueryFilter struct {
	Date       time.Time `query:"-"`
	StudentID  string    `query:"student_id"`
	GradeLevel string    `query:"grade_level"`
	Section    string    `query:"section"`
	Period     Period    `query:"period"`
	Status     Status    `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Date.IsZero() && qf.StudentID == "" && qf.GradeLevel == "" &&
		qf.Section == "" && qf.Period == "" && qf.Status == ""
}
