package echoapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sgescola/sge/core/auth"
	"github.com/sgescola/sge/core/cache"
	"github.com/sgescola/sge/core/enrollment"
)

const dashboardKeyPrefix = "dashboard:"

func dashboardStatsKey(anoLetivo int) string {
	return dashboardKeyPrefix + "stats:" + strconv.Itoa(anoLetivo)
}

type dashboardApi struct {
	svc   enrollment.Service
	cache *cache.Store
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := dashboardApi{
		svc:   deps.EnrolSvc,
		cache: deps.Cache,
	}

	dg := g.Group("/dashboard", jwt)
	dg.GET("/stats", api.stats, permissionMiddleware(auth.PermViewDashboard))
}

// stats serves the cached dashboard aggregates for a school year. Cached
// data is returned immediately while a background revalidation runs;
// ?refresh=1 forces a foreground refetch instead.
func (api *dashboardApi) stats(ctx echo.Context) error {
	anoLetivo, err := strconv.Atoi(ctx.QueryParam("ano_letivo"))
	if err != nil || anoLetivo <= 0 {
		anoLetivo = time.Now().Year()
	}
	forced := ctx.QueryParam("refresh") == "1"

	key := dashboardStatsKey(anoLetivo)
	fetch := func(fctx context.Context) (interface{}, error) {
		return api.svc.DashboardStats(anoLetivo)
	}

	var res cache.Result
	if forced {
		res, err = api.cache.Refresh(ctx.Request().Context(), key, false)
		if errors.Cause(err) == cache.ErrUnknownKey {
			res, err = api.cache.GetOrFetch(ctx.Request().Context(), key, fetch, false)
		}
	} else {
		res, err = api.cache.GetOrFetch(ctx.Request().Context(), key, fetch, true)
	}
	if err != nil && res.Data == nil {
		return errors.Wrap(err, "fetching dashboard stats")
	}

	resp := StatsResponse{
		Data:      res.Data,
		UpdatedAt: res.UpdatedAt,
		Loading:   res.Loading,
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	return ctx.JSON(http.StatusOK, resp)
}
