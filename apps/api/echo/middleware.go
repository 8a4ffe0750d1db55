package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/flowtaskhq/flowtask/core"
)

// authMiddleware authenticates requests with an access JWT.
// Refresh tokens are rejected even though they carry the same signature.
func authMiddleware(conf *core.Config) echo.MiddlewareFunc {
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return jwt(func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.TokenType != tokenTypeAccess {
				return errUnauthorized
			}
			return next(ctx)
		})
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}
			return errHTTPForbidden
		}
	}
}
