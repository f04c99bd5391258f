package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimu/shule/core/grade"
	"github.com/mwalimu/shule/core/student"
	"github.com/mwalimu/shule/core/user"
)

type gradeApi struct {
	svc      grade.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerGradeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc grade.Service, userSvc user.Service, validate *validator.Validate) {
	api := gradeApi{svc: svc, userSvc: userSvc, validate: validate}

	g.PUT("/students/:id/grades", api.update, jwt, teacherMiddleware())
	g.GET("/students/:id/grades", api.retrieve, jwt, teacherOrSelfStudentMiddleware())
	g.GET("/rankings", api.rankings, jwt, teacherMiddleware())
}

// Handlers

// update submits a grade revision. A locked or unauthorized outcome is a 200
// with the outcome in the body; the edit window and subject assignments are
// domain rules, not transport errors.
func (api *gradeApi) update(ctx echo.Context) error {
	var data grade.UpdateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data, actor)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating grades")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *gradeApi) retrieve(ctx echo.Context) error {
	sheet, err := api.svc.StudentGrades(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "reading grades")
	}
	return ctx.JSON(http.StatusOK, sheet)
}

func (api *gradeApi) rankings(ctx echo.Context) error {
	standings, err := api.svc.Rankings(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing rankings")
	}
	if standings == nil {
		standings = []grade.Standing{}
	}
	return ctx.JSON(http.StatusOK, standings)
}
