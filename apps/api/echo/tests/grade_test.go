package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/mwalimu/shule/core/grade"
	"github.com/mwalimu/shule/core/user"
	inmemdb "github.com/mwalimu/shule/storage/database/inmem"
	testutil "github.com/mwalimu/shule/tests"
)

func intp(n int) *int { return &n }

func Test_gradeApi_update(t *testing.T) {
	app, db := setup(t)

	stu := testutil.CreateStudent(t, db, "stu-1", "123456789012", "Ana", "Reyes", "Grade 8", "Sampaguita")

	adviser := createUser(t, "Mr. Santos", "santos", "S3cr3tpass", []string{user.RoleTeacherAdviser}, "")
	mathTeacher := createUser(t, "Ms. Lim", "mslim1", "S3cr3tpass", []string{user.RoleTeacherSubject}, "", "Math")
	anaUsr := createUser(t, "Ana Reyes", "ana", "S3cr3tpass", []string{user.RoleStudent}, stu.ID)

	adviserToken := getToken(t, adviser)
	mathToken := getToken(t, mathTeacher)
	anaToken := getToken(t, anaUsr)

	put := func(t *testing.T, token string, req grade.UpdateRequest) (*grade.UpdateResult, int) {
		t.Helper()
		r, rec := newAuthRequest(http.MethodPut, "/v1/students/"+stu.ID+"/grades", token, marchallObj(t, req))
		app.ServeHTTP(rec, r)
		if rec.Code != http.StatusOK {
			return nil, rec.Code
		}
		var res grade.UpdateResult
		unmarchallObj(t, rec, &res)
		return &res, rec.Code
	}

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPut, "/v1/students/"+stu.ID+"/grades", []byte(`{}`))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("students cannot edit grades", func(t *testing.T) {
		if _, code := put(t, anaToken, grade.UpdateRequest{
			Quarter:  grade.Q1,
			Subjects: map[string]grade.ScoreValue{"Math": {Single: intp(85)}},
		}); code != http.StatusForbidden {
			t.Errorf("update code = %d, want 403", code)
		}
	})

	t.Run("adviser edit applied", func(t *testing.T) {
		res, code := put(t, adviserToken, grade.UpdateRequest{
			Quarter: grade.Q1,
			Subjects: map[string]grade.ScoreValue{
				"Math":    {Single: intp(85)},
				"Science": {Single: intp(90)},
			},
		})
		if code != http.StatusOK {
			t.Fatalf("update code = %d, want 200", code)
		}
		if res.Outcome != grade.UpdateApplied {
			t.Fatalf("update outcome = %s, want applied", res.Outcome)
		}
		if res.Average != 87.5 {
			t.Errorf("update average = %v, want 87.5", res.Average)
		}
	})

	t.Run("subject teacher out of scope", func(t *testing.T) {
		res, code := put(t, mathToken, grade.UpdateRequest{
			Quarter:  grade.Q2,
			Subjects: map[string]grade.ScoreValue{"Science": {Single: intp(88)}},
		})
		if code != http.StatusOK {
			t.Fatalf("update code = %d, want 200", code)
		}
		if res.Outcome != grade.UpdateUnauthorized {
			t.Fatalf("update outcome = %s, want unauthorized", res.Outcome)
		}
		if len(res.UnauthorizedSubjects) != 1 || res.UnauthorizedSubjects[0] != "Science" {
			t.Errorf("update unauthorized subjects = %v, want [Science]", res.UnauthorizedSubjects)
		}
	})

	t.Run("student reads their own grades", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/"+stu.ID+"/grades", anaToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("retrieve code = %d, want 200", rec.Code)
		}
		var sheet grade.StudentGrades
		unmarchallObj(t, rec, &sheet)
		if sheet.Average != 87.5 {
			t.Errorf("retrieve average = %v, want 87.5", sheet.Average)
		}
		if sheet.Window.State != grade.WindowEditable {
			t.Errorf("retrieve window = %s, want editable", sheet.Window.State)
		}
	})

	t.Run("locked window rejects the edit", func(t *testing.T) {
		repo := inmemdb.NewGradeRepository(db)
		ctx := context.Background()
		grades, _, err := repo.GetStudentGrades(ctx, stu.ID)
		if err != nil {
			t.Fatalf("GetStudentGrades() failed: %v", err)
		}
		editedAt := time.Now().UTC().Add(-25 * time.Hour)
		if err := repo.SaveStudentGrades(ctx, stu.ID, grades, 87.5, editedAt); err != nil {
			t.Fatalf("SaveStudentGrades() failed: %v", err)
		}

		res, code := put(t, adviserToken, grade.UpdateRequest{
			Quarter:  grade.Q1,
			Subjects: map[string]grade.ScoreValue{"Math": {Single: intp(95)}},
		})
		if code != http.StatusOK {
			t.Fatalf("update code = %d, want 200", code)
		}
		if res.Outcome != grade.UpdateLocked {
			t.Fatalf("update outcome = %s, want locked", res.Outcome)
		}

		// the stored Math q1 is untouched
		grades, _, err = repo.GetStudentGrades(ctx, stu.ID)
		if err != nil {
			t.Fatalf("GetStudentGrades() failed: %v", err)
		}
		if *grades["Math"].Q1 != 85 {
			t.Error("update wrote through a locked window")
		}
	})

	t.Run("unknown student is a 404", func(t *testing.T) {
		body := marchallObj(t, grade.UpdateRequest{
			Quarter:  grade.Q1,
			Subjects: map[string]grade.ScoreValue{"Math": {Single: intp(85)}},
		})
		req, rec := newAuthRequest(http.MethodPut, "/v1/students/nope/grades", adviserToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("update code = %d, want 404", rec.Code)
		}
	})
}

func Test_gradeApi_rankings(t *testing.T) {
	app, db := setup(t)

	a := testutil.CreateStudent(t, db, "stu-a", "123456789012", "Ana", "Reyes", "Grade 8", "Sampaguita")
	b := testutil.CreateStudent(t, db, "stu-b", "123456789013", "Ben", "Cruz", "Grade 8", "Sampaguita")
	testutil.CreateStudent(t, db, "stu-c", "123456789014", "Carla", "Diaz", "Grade 8", "Sampaguita")

	repo := inmemdb.NewGradeRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()
	if err := repo.SaveStudentGrades(ctx, a.ID, grade.SubjectGrades{"Math": {Q1: intp(85)}}, 85, now); err != nil {
		t.Fatalf("SaveStudentGrades() failed: %v", err)
	}
	if err := repo.SaveStudentGrades(ctx, b.ID, grade.SubjectGrades{"Math": {Q1: intp(92)}}, 92, now); err != nil {
		t.Fatalf("SaveStudentGrades() failed: %v", err)
	}

	teacher := createUser(t, "Mr. Santos", "santos", "S3cr3tpass", []string{user.RoleTeacherAdviser}, "")
	student := createUser(t, "Ana Reyes", "ana", "S3cr3tpass", []string{user.RoleStudent}, a.ID)

	t.Run("teacher only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/rankings", getToken(t, student))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("dense ranking with an ungraded tail", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/rankings", getToken(t, teacher))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("rankings code = %d, want 200", rec.Code)
		}
		var standings []grade.Standing
		unmarchallObj(t, rec, &standings)
		if len(standings) != 3 {
			t.Fatalf("rankings len = %d, want 3", len(standings))
		}
		if standings[0].Student.ID != b.ID || standings[0].RankLabel != "1" {
			t.Errorf("rankings[0] = %+v, want %s at rank 1", standings[0], b.ID)
		}
		if standings[1].Student.ID != a.ID || standings[1].RankLabel != "2" {
			t.Errorf("rankings[1] = %+v, want %s at rank 2", standings[1], a.ID)
		}
		if standings[2].Rank != 0 || standings[2].RankLabel != grade.RankUngraded {
			t.Errorf("rankings[2] = %+v, want the ungraded marker", standings[2])
		}
	})
}
