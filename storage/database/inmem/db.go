// Package inmemdb implements the domain repositories on in-memory maps.
// It backs unit tests and local runs without a database.
package inmemdb

import (
	"sync"
	"time"

	"github.com/mwalimu/shule/core/attendance"
	"github.com/mwalimu/shule/core/grade"
	"github.com/mwalimu/shule/core/student"
	"github.com/mwalimu/shule/core/user"
)

type gradeRow struct {
	grades     grade.SubjectGrades
	average    float64
	lastEditAt *time.Time
}

type DB struct {
	mu         sync.RWMutex
	students   map[string]student.Student   // key: student ID
	attendance map[string]attendance.Record // key: student ID + "|" + date
	grades     map[string]gradeRow          // key: student ID
	users      map[string]user.User         // key: user ID
}

func New() *DB {
	db := new(DB)
	db.Reset()
	return db
}

func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.students = make(map[string]student.Student)
	db.attendance = make(map[string]attendance.Record)
	db.grades = make(map[string]gradeRow)
	db.users = make(map[string]user.User)
}

// AddStudent seeds a roster entry.
func (db *DB) AddStudent(stu student.Student) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.students[stu.ID] = stu
}

func attendanceKey(studentID string, date time.Time) string {
	return studentID + "|" + date.Format("2006-01-02")
}
