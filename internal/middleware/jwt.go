package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/utils"
)

// Context keys set by the JWT middleware.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// JWTAuth validates a Bearer access token and stores the caller's id
// (uint64) and role in the context under "user_id" and "role".
func JWTAuth(secret string) echo.MiddlewareFunc {
	return jwtAuth(secret, "")
}

// JWTAuthQuery is JWTAuth for websocket upgrades: browsers cannot set
// headers on the handshake, so the token may also arrive as ?<param>=.
func JWTAuthQuery(secret, param string) echo.MiddlewareFunc {
	return jwtAuth(secret, param)
}

func jwtAuth(secret, queryParam string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearer(c.Request().Header.Get("Authorization"))
			if raw == "" && queryParam != "" {
				raw = strings.TrimSpace(c.QueryParam(queryParam))
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(ctxUserID, claims.UserID)
			c.Set(ctxRole, claims.Role)
			return next(c)
		}
	}
}

func bearer(header string) string {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(raw)
}
