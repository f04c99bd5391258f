package tests

import (
	"context"
	"net/http"
	"testing"

	echoapi "github.com/mwalimu/shule/apps/api/echo"
	"github.com/mwalimu/shule/core/user"
)

func Test_userApi_login(t *testing.T) {
	app, _ := setup(t)

	createUser(t, "Admin", "admin", "S3cr3tpass", []string{user.RoleAdmin}, "")
	inactive := createUser(t, "Gone", "gone", "S3cr3tpass", nil, "")
	inactive.IsActive = new(bool)
	if _, err := usrRepo.UpdateUser(context.Background(), inactive); err != nil {
		t.Fatalf("UpdateUser() failed: %v", err)
	}

	tests := []httpTest{
		{
			name: "empty payload", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown user", body: marchallObj(t, echoapi.LoginRequest{Username: "lol", Password: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: marchallObj(t, echoapi.LoginRequest{Username: "admin", Password: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: marchallObj(t, echoapi.LoginRequest{Username: "gone", Password: "S3cr3tpass"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("successful login", func(t *testing.T) {
		body := marchallObj(t, echoapi.LoginRequest{Username: "admin", Password: "S3cr3tpass"})
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("login code = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
		}
		var res echoapi.LoginResponse
		unmarchallObj(t, rec, &res)
		if res.Token == "" {
			t.Error("login returned an empty token")
		}

		// the token works
		req, rec = newAuthRequest(http.MethodGet, "/v1/users/me", res.Token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("me code = %d, want 200", rec.Code)
		}
	})
}

func Test_userApi_adminEndpoints(t *testing.T) {
	app, _ := setup(t)

	admin := createUser(t, "Admin", "admin", "S3cr3tpass", []string{user.RoleAdminOwner}, "")
	teacher := createUser(t, "Mr. Santos", "santos", "S3cr3tpass", []string{user.RoleTeacherAdviser}, "")
	adminToken := getToken(t, admin)
	teacherToken := getToken(t, teacher)

	tests := []httpTest{
		{
			name: "query: auth required", method: http.MethodGet, path: "/v1/users",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "query: admin required", method: http.MethodGet, path: "/v1/users", token: teacherToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "roles: admin required", method: http.MethodGet, path: "/v1/users/roles", token: teacherToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "roles", method: http.MethodGet, path: "/v1/users/roles", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("query returns all users", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users", adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("query code = %d, want 200", rec.Code)
		}
		var users []user.User
		unmarchallObj(t, rec, &users)
		if len(users) != 2 {
			t.Errorf("query len = %d, want 2", len(users))
		}
	})

	t.Run("register a subject teacher", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{
			Name:            "Ms. Lim",
			Username:        "mslim1",
			Email:           "mslim@test.ph",
			Password:        "S3cr3tpass",
			PasswordConfirm: "S3cr3tpass",
			Roles:           []string{user.RoleTeacherSubject},
			Subjects:        []string{"Math"},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("register code = %d, want 201 (body: %s)", rec.Code, rec.Body.String())
		}
		var usr user.User
		unmarchallObj(t, rec, &usr)
		if !usr.IsSubjectTeacher() || !usr.TeachesSubject("Math") {
			t.Errorf("register = %+v, want a Math subject teacher", usr)
		}
	})

	t.Run("teacher cannot register users", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", teacherToken, []byte(`{}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("register code = %d, want 403", rec.Code)
		}
	})
}
