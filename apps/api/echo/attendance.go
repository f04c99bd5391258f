package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimu/shule/core"
	"github.com/mwalimu/shule/core/attendance"
	"github.com/mwalimu/shule/core/student"
	"github.com/mwalimu/shule/core/user"
)

type attendanceApi struct {
	svc      attendance.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc attendance.Service, userSvc user.Service, validate *validator.Validate) {
	api := attendanceApi{svc: svc, userSvc: userSvc, validate: validate}

	ag := g.Group("/attendance", jwt)
	ag.POST("", api.record)
	ag.GET("", api.query, teacherMiddleware())
	ag.GET("/today", api.today, teacherMiddleware())

	g.GET("/students/:id/attendance", api.studentHistory, jwt, teacherOrSelfStudentMiddleware())
}

// Handlers

// record accepts a QR self-scan or a teacher's manual entry. The scan outcome
// (accepted or rejected with the existing record) is always a 200; rejection
// is a domain result, not a transport error.
func (api *attendanceApi) record(ctx echo.Context) error {
	var data attendance.NewScan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewScan")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if data.Origin == attendance.OriginTeacherEntry && !(claims.IsTeacher || claims.IsAdmin) {
		return errHttpForbidden
	}
	// a student account can only scan for itself
	if claims.IsStudent && !(claims.IsTeacher || claims.IsAdmin) {
		if claims.StudentID == "" || claims.StudentID != data.StudentIdentifier {
			return errHttpForbidden
		}
	}

	res, err := api.svc.Record(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "recording attendance")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	// the binder has no time.Time support for query params
	if raw := ctx.QueryParam("date"); raw != "" {
		date, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "date", Error: "invalid date"})
		}
		filter.Date = date
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	records, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying attendance records")
	}
	if records == nil {
		records = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) today(ctx echo.Context) error {
	records, err := api.svc.Today(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying today's attendance")
	}
	if records == nil {
		records = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) studentHistory(ctx echo.Context) error {
	records, err := api.svc.StudentHistory(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying student attendance history")
	}
	if records == nil {
		records = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}
