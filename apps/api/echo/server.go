package echoapi

import (
	"context"
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/mwalimu/shule/core"
	"github.com/mwalimu/shule/core/attendance"
	"github.com/mwalimu/shule/core/grade"
	"github.com/mwalimu/shule/core/student"
	"github.com/mwalimu/shule/core/user"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool

		UserSvc       user.Service
		StudentSvc    student.Service
		AttendanceSvc attendance.Service
		GradeSvc      grade.Service

		// Shutdown is called when a request hits an unrecoverable error
		// (eg. a poisoned DB handle) and the app should restart.
		Shutdown func()
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.Shutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	auth := newJWTAuth(conf)
	jwt := auth.middleware()

	v1 := s.app.Group("/v1")
	registerUserAPI(v1, jwt, auth, s.opts.UserSvc, s.opts.Validate, s.opts.Translator)
	registerStudentAPI(v1, jwt, s.opts.StudentSvc, s.opts.UserSvc)
	registerAttendanceAPI(v1, jwt, s.opts.AttendanceSvc, s.opts.UserSvc, s.opts.Validate)
	registerGradeAPI(v1, jwt, s.opts.GradeSvc, s.opts.UserSvc, s.opts.Validate)
}

func (s *server) Start() {
	addr := fmt.Sprintf(":%d", s.opts.Conf.Server.Port)
	s.app.Logger.Fatal(s.app.Start(addr))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, fmt.Sprintf("Welcome to %s API!", s.opts.Conf.AppName))
}
