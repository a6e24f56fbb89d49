package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sgescola/sge/core/auth"
)

// permissionMiddleware lets the request through only when the resolver
// grants the permission to the claims-derived user.
func permissionMiddleware(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			usr := claims.resolvedUser()
			if auth.Resolve(&usr, permission) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
