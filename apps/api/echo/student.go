package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lehine87/educanvas/core/student"
	"github.com/lehine87/educanvas/core/user"
)

type studentApi struct {
	deps ServerDeps
}

// registerStudentAPI wires the student roster endpoints. Write access mirrors
// the page policies: staff and admins may modify, everyone active may read.
func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := studentApi{deps: deps}

	writeRoles := roleMiddleware(user.RolePlatformAdmin, user.RoleTenantAdmin, user.RoleStaff)

	sg := g.Group("/students", jwt)
	sg.GET("", api.query)
	sg.POST("", api.create, writeRoles)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update, writeRoles)
	sg.DELETE("/:id", api.destroy, writeRoles)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsPlatformAdmin() {
		data.TenantID = ctxUsr.TenantID.String
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	std, err := api.deps.StudentSvc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsPlatformAdmin() {
		filter.TenantID = ctxUsr.TenantID.String
	}
	sorting := new(SortOrder)
	sorting.Bind(ctx)

	students, err := api.deps.StudentSvc.Filter(*filter, sorting.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	std, err := api.getTenantStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) update(ctx echo.Context) error {
	std, err := api.getTenantStudent(ctx)
	if err != nil {
		return err
	}

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	std, err = api.deps.StudentSvc.Update(std.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	std, err := api.getTenantStudent(ctx)
	if err != nil {
		return err
	}
	if err := api.deps.StudentSvc.Delete(std.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// getTenantStudent fetches the requested student, hiding records outside the
// caller's tenant.
func (api *studentApi) getTenantStudent(ctx echo.Context) (student.Student, error) {
	std, err := api.deps.StudentSvc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return student.Student{}, errHttpNotFound
		}
		return student.Student{}, errors.Wrap(err, "finding student by ID")
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsPlatformAdmin() && std.TenantID != ctxUsr.TenantID.String {
		return student.Student{}, errHttpNotFound
	}
	return std, nil
}
