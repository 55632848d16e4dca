// Package middleware holds the echo middleware that turns a validated bearer
// token into a policy.Subject.
package middleware

import (
	"net/http"
	"strings"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"jobtracker/internal/auth"
	apperrors "jobtracker/internal/errors"
	"jobtracker/internal/policy"
)

// ClaimsKey is the echo context key the validated claims are stored under.
const ClaimsKey = "user"

// JWT requires a valid access token on every request it guards.
func JWT(jwtService *auth.JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:     ClaimsKey,
		TokenLookup:    "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: parseToken(jwtService),
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
				Error: apperrors.ErrUnauthorized.Error(),
				Code:  "UNAUTHORIZED",
			})
		},
	})
}

// OptionalJWT reads an access token when one is sent and lets anonymous
// requests through. An invalid token is treated as no token.
func OptionalJWT(jwtService *auth.JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:             ClaimsKey,
		TokenLookup:            "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc:         parseToken(jwtService),
		ContinueOnIgnoredError: true,
		ErrorHandler: func(c echo.Context, err error) error {
			return nil
		},
	})
}

func parseToken(jwtService *auth.JWTService) func(echo.Context, string) (interface{}, error) {
	return func(_ echo.Context, token string) (interface{}, error) {
		return jwtService.ValidateToken(strings.TrimSpace(token))
	}
}

// SubjectFrom returns the caller behind the request. Requests without
// validated claims yield the anonymous subject.
func SubjectFrom(c echo.Context) policy.Subject {
	claims, ok := c.Get(ClaimsKey).(*auth.Claims)
	if !ok || claims == nil {
		return policy.Subject{}
	}
	return policy.Subject{
		UserID: claims.UserID,
		Email:  claims.Email,
		Roles:  claims.Roles,
	}
}

// RequireRole rejects callers that hold none of roles. It must run after JWT.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			subject := SubjectFrom(c)
			if subject.Anonymous() {
				return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
					Error: apperrors.ErrUnauthorized.Error(),
					Code:  "UNAUTHORIZED",
				})
			}
			for _, role := range roles {
				if subject.HasRole(role) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, apperrors.ErrorResponse{
				Error: apperrors.ErrForbidden.Error(),
				Code:  "FORBIDDEN",
			})
		}
	}
}
