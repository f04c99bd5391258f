// Package testutil provides shared fixtures for tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/mwalimu/shule/core"
	"github.com/mwalimu/shule/core/student"
	"github.com/mwalimu/shule/core/user"
	inmemdb "github.com/mwalimu/shule/storage/database/inmem"
)

// NopLogger drops everything. Keeps test output clean.
type NopLogger struct{}

var _ core.Logger = (*NopLogger)(nil)

func (NopLogger) Debug(msg string, args ...interface{}) {}
func (NopLogger) Info(msg string, args ...interface{})  {}
func (NopLogger) Warn(msg string, args ...interface{})  {}
func (NopLogger) Error(msg string, args ...interface{}) {}
func (NopLogger) Fatal(msg string, args ...interface{}) {}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  &isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateStudent(t *testing.T, db *inmemdb.DB, id, lrn, firstName, lastName, gradeLevel, section string) student.Student {
	t.Helper()

	now := time.Now().UTC()
	stu := student.Student{
		ID:         id,
		LRN:        lrn,
		FirstName:  firstName,
		LastName:   lastName,
		FullName:   firstName + " " + lastName,
		GradeLevel: gradeLevel,
		Section:    section,
		Status:     "enrolled",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	db.AddStudent(stu)
	return stu
}
