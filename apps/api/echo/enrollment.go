package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sgescola/sge/core/auth"
	"github.com/sgescola/sge/core/cache"
	"github.com/sgescola/sge/core/enrollment"
)

type enrollmentApi struct {
	svc      enrollment.Service
	cache    *cache.Store
	validate *validator.Validate
}

func registerEnrollmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := enrollmentApi{
		svc:      deps.EnrolSvc,
		cache:    deps.Cache,
		validate: deps.Validate,
	}

	ig := g.Group("/inscritos", jwt)
	ig.GET("", api.queryCandidates, permissionMiddleware(auth.PermViewInscritos))
	ig.GET("/:id", api.retrieveCandidate, permissionMiddleware(auth.PermViewInscritos))
	ig.POST("", api.createCandidate, permissionMiddleware(auth.PermManageInscritos))
	ig.PUT("/:id", api.updateCandidate, permissionMiddleware(auth.PermManageInscritos))
	ig.DELETE("/:id", api.destroyCandidate, permissionMiddleware(auth.PermManageInscritos))

	mg := g.Group("/matriculas", jwt)
	mg.GET("", api.queryEnrollments, permissionMiddleware(auth.PermViewMatriculas))
	mg.GET("/:id", api.retrieveEnrollment, permissionMiddleware(auth.PermViewMatriculas))
	mg.POST("", api.enroll, permissionMiddleware(auth.PermCreateMatricula))
	mg.POST("/:id/confirm", api.confirmEnrollment, permissionMiddleware(auth.PermManageMatriculas))
	mg.POST("/:id/cancel", api.cancelEnrollment, permissionMiddleware(auth.PermManageMatriculas))
	mg.POST("/:id/turma/:turmaID", api.assignTurma, permissionMiddleware(auth.PermAssignTurma))

	tg := g.Group("/turmas", jwt)
	tg.GET("", api.queryTurmas, permissionMiddleware(auth.PermViewTurmas))
	tg.POST("", api.createTurma, permissionMiddleware(auth.PermManageTurmas))
}

// invalidateStats drops every cached dashboard aggregate; the next read
// refetches.
func (api *enrollmentApi) invalidateStats() {
	api.cache.Invalidate(dashboardKeyPrefix)
}

func (api *enrollmentApi) trapNotFound(err error, msg string) error {
	switch errors.Cause(err) {
	case enrollment.ErrCandidateNotFound, enrollment.ErrEnrollmentNotFound, enrollment.ErrTurmaNotFound:
		return errHttpNotFound
	}
	return errors.Wrap(err, msg)
}

// Handlers

func (api *enrollmentApi) createCandidate(ctx echo.Context) error {
	var data enrollment.NewCandidate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCandidate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cand, err := api.svc.CreateCandidate(data)
	if err != nil {
		return errors.Wrap(err, "creating inscrito")
	}
	api.invalidateStats()
	return ctx.JSON(http.StatusCreated, cand)
}

func (api *enrollmentApi) queryCandidates(ctx echo.Context) error {
	filter := new(enrollment.CandidateFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []enrollment.Candidate{})
	}

	cands, err := api.svc.FilterCandidates(*filter)
	if err != nil {
		return errors.Wrap(err, "querying inscritos")
	}
	if cands == nil {
		cands = []enrollment.Candidate{}
	}
	return ctx.JSON(http.StatusOK, cands)
}

func (api *enrollmentApi) retrieveCandidate(ctx echo.Context) error {
	cand, err := api.svc.GetCandidate(ctx.Param("id"))
	if err != nil {
		return api.trapNotFound(err, "getting inscrito")
	}
	return ctx.JSON(http.StatusOK, cand)
}

func (api *enrollmentApi) updateCandidate(ctx echo.Context) error {
	var data enrollment.UpdateCandidate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCandidate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cand, err := api.svc.UpdateCandidate(ctx.Param("id"), data)
	if err != nil {
		return api.trapNotFound(err, "updating inscrito")
	}
	api.invalidateStats()
	return ctx.JSON(http.StatusOK, cand)
}

func (api *enrollmentApi) destroyCandidate(ctx echo.Context) error {
	if _, err := api.svc.GetCandidate(ctx.Param("id")); err != nil {
		return api.trapNotFound(err, "getting inscrito")
	}
	if err := api.svc.DeleteCandidates(ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting inscrito")
	}
	api.invalidateStats()
	return ctx.NoContent(http.StatusNoContent)
}

func (api *enrollmentApi) enroll(ctx echo.Context) error {
	var data enrollment.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	enr, err := api.svc.Enroll(data)
	if err != nil {
		return api.trapNotFound(err, "creating matrícula")
	}
	api.invalidateStats()
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *enrollmentApi) queryEnrollments(ctx echo.Context) error {
	filter := new(enrollment.EnrollmentFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []enrollment.Enrollment{})
	}

	enrs, err := api.svc.FilterEnrollments(*filter)
	if err != nil {
		return errors.Wrap(err, "querying matrículas")
	}
	if enrs == nil {
		enrs = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *enrollmentApi) retrieveEnrollment(ctx echo.Context) error {
	enr, err := api.svc.GetEnrollment(ctx.Param("id"))
	if err != nil {
		return api.trapNotFound(err, "getting matrícula")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) confirmEnrollment(ctx echo.Context) error {
	enr, err := api.svc.ConfirmEnrollment(ctx.Param("id"))
	if err != nil {
		return api.trapNotFound(err, "confirming matrícula")
	}
	api.invalidateStats()
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) cancelEnrollment(ctx echo.Context) error {
	enr, err := api.svc.CancelEnrollment(ctx.Param("id"))
	if err != nil {
		return api.trapNotFound(err, "cancelling matrícula")
	}
	api.invalidateStats()
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) assignTurma(ctx echo.Context) error {
	enr, err := api.svc.AssignTurma(ctx.Param("id"), ctx.Param("turmaID"))
	if err != nil {
		return api.trapNotFound(err, "assigning turma")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) createTurma(ctx echo.Context) error {
	var data enrollment.NewTurma
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTurma")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	turma, err := api.svc.CreateTurma(data)
	if err != nil {
		return errors.Wrap(err, "creating turma")
	}
	return ctx.JSON(http.StatusCreated, turma)
}

func (api *enrollmentApi) queryTurmas(ctx echo.Context) error {
	var params struct {
		AnoLetivo int `query:"ano_letivo"`
	}
	if err := ctx.Bind(&params); err != nil {
		return ctx.JSON(http.StatusOK, []enrollment.Turma{})
	}

	turmas, err := api.svc.QueryTurmas(params.AnoLetivo)
	if err != nil {
		return errors.Wrap(err, "querying turmas")
	}
	if turmas == nil {
		turmas = []enrollment.Turma{}
	}
	return ctx.JSON(http.StatusOK, turmas)
}
