package middleware

import (
	"strings"

	"welllink-api/core/constants"
	"welllink-api/core/controller"
	"welllink-api/core/errors"
	"welllink-api/core/utils"

	"github.com/labstack/echo/v4"
)

type Middleware struct {
	jwtSecret string
}

func New(jwtSecret string) *Middleware {
	return &Middleware{jwtSecret: jwtSecret}
}

// AuthMiddleware validates the Bearer token and stores its claims in the
// request context under constants.ContextTokenData.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return controller.NewErrorResponse(401, errors.ErrMissingAuthorizationHeader, "Missing Authorization header")
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return controller.NewErrorResponse(401, errors.ErrInvalidTokenFormat, "Authorization header must be a Bearer token")
			}

			claims, err := utils.ParseToken(parts[1], m.jwtSecret)
			if err != nil {
				return controller.NewErrorResponse(401, errors.ErrUnauthorized, "Invalid or expired token")
			}

			c.Set(constants.ContextTokenData, claims)
			return next(c)
		}
	}
}

// RequestID assigns a short id to every request for log correlation.
func (m *Middleware) RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(constants.HeaderRequestID)
			if id == "" {
				id = utils.GenerateID()
			}
			c.Response().Header().Set(constants.HeaderRequestID, id)
			return next(c)
		}
	}
}
