package grade_test

import (
	"context"
	"testing"
	"time"

	"github.com/mwalimu/shule/core"
	"github.com/mwalimu/shule/core/grade"
	"github.com/mwalimu/shule/core/student"
	"github.com/mwalimu/shule/core/user"
	inmemdb "github.com/mwalimu/shule/storage/database/inmem"
	testutil "github.com/mwalimu/shule/tests"
)

func intp(n int) *int { return &n }

func setup(t *testing.T) (grade.Service, grade.Repository, *inmemdb.DB) {
	t.Helper()

	db := inmemdb.New()
	repo := inmemdb.NewGradeRepository(db)
	conf := &core.Config{Grades: core.GradesConfig{EditWindow: 24 * time.Hour}}
	svc := grade.NewService(repo, inmemdb.NewStudentRepository(db), conf, testutil.NopLogger{})
	return svc, repo, db
}

func adviser() user.User {
	return user.User{ID: "tch-1", Name: "Mr. Santos", Roles: []string{user.RoleTeacherAdviser}}
}

func subjectTeacher(subjects ...string) user.User {
	return user.User{ID: "tch-2", Name: "Ms. Lim", Roles: []string{user.RoleTeacherSubject}, Subjects: subjects}
}

func TestService_Update_unknownStudent(t *testing.T) {
	svc, _, _ := setup(t)

	_, err := svc.Update(context.Background(), "nope", grade.UpdateRequest{
		Quarter:  grade.Q1,
		Subjects: map[string]grade.ScoreValue{"Math": {Single: intp(85)}},
	}, adviser())
	if err != student.ErrNotFound {
		t.Errorf("Update() error = %v, want %v", err, student.ErrNotFound)
	}
}

func TestService_Update_mergePreservesOtherQuarters(t *testing.T) {
	svc, _, db := setup(t)
	ctx := context.Background()
	stu := testutil.CreateStudent(t, db, "stu-1", "123456789012", "Ana", "Reyes", "Grade 8", "Sampaguita")

	res, err := svc.Update(ctx, stu.ID, grade.UpdateRequest{
		Quarter: grade.Q1,
		Subjects: map[string]grade.ScoreValue{
			"Math":    {Single: intp(85)},
			"Science": {Single: intp(90)},
		},
	}, adviser())
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if res.Outcome != grade.UpdateApplied {
		t.Fatalf("Update() outcome = %s, want applied", res.Outcome)
	}
	if res.Average != 87.5 {
		t.Errorf("Update() average = %v, want 87.5", res.Average)
	}
	if res.Window.State != grade.WindowEditable {
		t.Errorf("Update() window = %s, want editable", res.Window.State)
	}

	// a q2 submission for Math must not erase q1, nor touch Science
	res, err = svc.Update(ctx, stu.ID, grade.UpdateRequest{
		Quarter:  grade.Q2,
		Subjects: map[string]grade.ScoreValue{"Math": {Single: intp(90)}},
	}, adviser())
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	math := res.Grades["Math"]
	if math.Q1 == nil || *math.Q1 != 85 {
		t.Error("Update() erased Math q1")
	}
	if math.Q2 == nil || *math.Q2 != 90 {
		t.Error("Update() did not set Math q2")
	}
	sci := res.Grades["Science"]
	if sci.Q1 == nil || *sci.Q1 != 90 {
		t.Error("Update() touched Science")
	}
	if res.Average != 88.75 { // Math 87.5, Science 90
		t.Errorf("Update() average = %v, want 88.75", res.Average)
	}
}

func TestService_Update_lockedWindow(t *testing.T) {
	svc, repo, db := setup(t)
	ctx := context.Background()
	stu := testutil.CreateStudent(t, db, "stu-1", "123456789012", "Ana", "Reyes", "Grade 8", "Sampaguita")

	// anchor an edit 25h in the past
	stored := grade.SubjectGrades{"Math": {Q1: intp(85)}}
	editedAt := time.Now().UTC().Add(-25 * time.Hour)
	if err := repo.SaveStudentGrades(ctx, stu.ID, stored, 85, editedAt); err != nil {
		t.Fatalf("SaveStudentGrades() failed: %v", err)
	}

	res, err := svc.Update(ctx, stu.ID, grade.UpdateRequest{
		Quarter:  grade.Q1,
		Subjects: map[string]grade.ScoreValue{"Math": {Single: intp(95)}},
	}, adviser())
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if res.Outcome != grade.UpdateLocked {
		t.Fatalf("Update() outcome = %s, want locked", res.Outcome)
	}
	if res.Window.State != grade.WindowLocked {
		t.Errorf("Update() window = %s, want locked", res.Window.State)
	}

	// nothing was written
	grades, _, err := repo.GetStudentGrades(ctx, stu.ID)
	if err != nil {
		t.Fatalf("GetStudentGrades() failed: %v", err)
	}
	if *grades["Math"].Q1 != 85 {
		t.Error("Update() wrote through a locked window")
	}
}

func TestService_Update_editableNearLimit(t *testing.T) {
	svc, repo, db := setup(t)
	ctx := context.Background()
	stu := testutil.CreateStudent(t, db, "stu-1", "123456789012", "Ana", "Reyes", "Grade 8", "Sampaguita")

	editedAt := time.Now().UTC().Add(-23 * time.Hour)
	if err := repo.SaveStudentGrades(ctx, stu.ID, grade.SubjectGrades{"Math": {Q1: intp(85)}}, 85, editedAt); err != nil {
		t.Fatalf("SaveStudentGrades() failed: %v", err)
	}

	res, err := svc.Update(ctx, stu.ID, grade.UpdateRequest{
		Quarter:  grade.Q1,
		Subjects: map[string]grade.ScoreValue{"Math": {Single: intp(95)}},
	}, adviser())
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if res.Outcome != grade.UpdateApplied {
		t.Errorf("Update() outcome = %s, want applied with the window still open", res.Outcome)
	}
}

// a subject teacher gets all-or-nothing authorization: one unassigned subject
// in the payload rejects the whole request
func TestService_Update_subjectTeacherScope(t *testing.T) {
	svc, repo, db := setup(t)
	ctx := context.Background()
	stu := testutil.CreateStudent(t, db, "stu-1", "123456789012", "Ana", "Reyes", "Grade 8", "Sampaguita")

	res, err := svc.Update(ctx, stu.ID, grade.UpdateRequest{
		Quarter: grade.Q1,
		Subjects: map[string]grade.ScoreValue{
			"Math":    {Single: intp(85)},
			"Science": {Single: intp(90)},
		},
	}, subjectTeacher("Math"))
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if res.Outcome != grade.UpdateUnauthorized {
		t.Fatalf("Update() outcome = %s, want unauthorized", res.Outcome)
	}
	if len(res.UnauthorizedSubjects) != 1 || res.UnauthorizedSubjects[0] != "Science" {
		t.Errorf("Update() unauthorized subjects = %v, want [Science]", res.UnauthorizedSubjects)
	}

	// nothing was written, not even the authorized Math
	grades, _, err := repo.GetStudentGrades(ctx, stu.ID)
	if err != nil {
		t.Fatalf("GetStudentGrades() failed: %v", err)
	}
	if len(grades) != 0 {
		t.Errorf("Update() wrote %v despite the rejection", grades)
	}

	// scoped to assigned subjects only, it goes through; matching is case-insensitive
	res, err = svc.Update(ctx, stu.ID, grade.UpdateRequest{
		Quarter:  grade.Q1,
		Subjects: map[string]grade.ScoreValue{"math": {Single: intp(85)}},
	}, subjectTeacher("Math"))
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if res.Outcome != grade.UpdateApplied {
		t.Errorf("Update() outcome = %s, want applied", res.Outcome)
	}
}

func TestService_StudentGrades(t *testing.T) {
	svc, repo, db := setup(t)
	ctx := context.Background()
	stu := testutil.CreateStudent(t, db, "stu-1", "123456789012", "Ana", "Reyes", "Grade 8", "Sampaguita")

	// fresh student: unlocked, empty sheet
	sheet, err := svc.StudentGrades(ctx, stu.ID)
	if err != nil {
		t.Fatalf("StudentGrades() failed: %v", err)
	}
	if sheet.Window.State != grade.WindowUnlocked {
		t.Errorf("StudentGrades() window = %s, want unlocked", sheet.Window.State)
	}
	if len(sheet.Grades) != 0 || sheet.Average != 0 {
		t.Errorf("StudentGrades() = %+v, want an empty sheet", sheet)
	}

	editedAt := time.Now().UTC().Add(-time.Hour)
	stored := grade.SubjectGrades{"Math": {Q1: intp(85), Q2: intp(90)}}
	if err := repo.SaveStudentGrades(ctx, stu.ID, stored, 87.5, editedAt); err != nil {
		t.Fatalf("SaveStudentGrades() failed: %v", err)
	}

	sheet, err = svc.StudentGrades(ctx, stu.ID)
	if err != nil {
		t.Fatalf("StudentGrades() failed: %v", err)
	}
	if sheet.Average != 87.5 {
		t.Errorf("StudentGrades() average = %v, want 87.5", sheet.Average)
	}
	if sheet.Window.State != grade.WindowEditable || sheet.Window.HoursRemaining != 23 {
		t.Errorf("StudentGrades() window = %+v, want editable with 23h left", sheet.Window)
	}
}

func TestService_Rankings(t *testing.T) {
	svc, repo, db := setup(t)
	ctx := context.Background()
	a := testutil.CreateStudent(t, db, "stu-a", "123456789012", "Ana", "Reyes", "Grade 8", "Sampaguita")
	b := testutil.CreateStudent(t, db, "stu-b", "123456789013", "Ben", "Cruz", "Grade 8", "Sampaguita")
	c := testutil.CreateStudent(t, db, "stu-c", "123456789014", "Carla", "Diaz", "Grade 8", "Sampaguita")

	now := time.Now().UTC()
	if err := repo.SaveStudentGrades(ctx, a.ID, grade.SubjectGrades{"Math": {Q1: intp(85)}}, 85, now); err != nil {
		t.Fatalf("SaveStudentGrades() failed: %v", err)
	}
	if err := repo.SaveStudentGrades(ctx, b.ID, grade.SubjectGrades{"Math": {Q1: intp(92)}}, 92, now); err != nil {
		t.Fatalf("SaveStudentGrades() failed: %v", err)
	}
	// c stays ungraded

	standings, err := svc.Rankings(ctx)
	if err != nil {
		t.Fatalf("Rankings() failed: %v", err)
	}
	if len(standings) != 3 {
		t.Fatalf("Rankings() len = %d, want 3", len(standings))
	}
	if standings[0].Student.ID != b.ID || standings[0].Rank != 1 {
		t.Errorf("Rankings()[0] = %+v, want %s at rank 1", standings[0], b.ID)
	}
	if standings[1].Student.ID != a.ID || standings[1].Rank != 2 {
		t.Errorf("Rankings()[1] = %+v, want %s at rank 2", standings[1], a.ID)
	}
	if standings[2].Student.ID != c.ID || standings[2].RankLabel != grade.RankUngraded {
		t.Errorf("Rankings()[2] = %+v, want ungraded %s", standings[2], c.ID)
	}
}
