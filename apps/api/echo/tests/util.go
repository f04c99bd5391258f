package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/mwalimu/shule/apps/api/echo"
	"github.com/mwalimu/shule/core"
	"github.com/mwalimu/shule/core/attendance"
	"github.com/mwalimu/shule/core/grade"
	"github.com/mwalimu/shule/core/student"
	"github.com/mwalimu/shule/core/user"
	inmemdb "github.com/mwalimu/shule/storage/database/inmem"
	testutil "github.com/mwalimu/shule/tests"
)

var (
	conf    *core.Config
	usrRepo user.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func setup(t *testing.T) (Server, *inmemdb.DB) {
	t.Helper()

	conf = &core.Config{
		AppName:   "Shule",
		Env:       "TEST",
		TestMode:  true,
		SecretKey: "t3st-s3cr3t",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 2 * time.Hour,
		},
		Attendance: core.AttendanceConfig{
			MorningLateAt:     "08:00",
			MorningAbsentAt:   "10:00",
			AfternoonLateAt:   "14:00",
			AfternoonAbsentAt: "15:00",
		},
		Grades: core.GradesConfig{EditWindow: 24 * time.Hour},
	}

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator(enLocale.Locale())
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	db := inmemdb.New()
	usrRepo = inmemdb.NewUserRepository(db)

	classifier, err := attendance.NewClassifier(conf.Attendance)
	if err != nil {
		t.Fatalf("NewClassifier() failed: %v", err)
	}
	stuRepo := inmemdb.NewStudentRepository(db)
	logger := testutil.NopLogger{}

	return NewServer(
		&Options{
			Conf:           conf,
			Logger:         logger,
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
			UserSvc:        user.NewService(usrRepo),
			StudentSvc:     student.NewService(stuRepo),
			AttendanceSvc:  attendance.NewService(inmemdb.NewAttendanceRepository(db), stuRepo, classifier, logger),
			GradeSvc:       grade.NewService(inmemdb.NewGradeRepository(db), stuRepo, conf, logger),
		},
	), db
}

// createUser persists a user and applies the roster link and subject
// assignments the repo constructor does not take.
func createUser(t *testing.T, name, uname, pwd string, roles []string, studentID string, subjects ...string) user.User {
	t.Helper()
	usr := testutil.CreateUser(t, usrRepo, name, uname, uname+"@test.ph", pwd, roles, true)
	if studentID != "" || len(subjects) > 0 {
		usr.StudentID = studentID
		usr.Subjects = subjects
		var err error
		if usr, err = usrRepo.UpdateUser(context.Background(), usr); err != nil {
			t.Fatalf("UpdateUser() failed: %v", err)
		}
	}
	return usr
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(conf, GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarchallObj(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("unmarchallObj() failed: %v (body: %s)", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
