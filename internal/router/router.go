package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
)

// RegisterRoutes registers the probes. /readyz pings the database.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
}

// RegisterAuth registers login and token routes under /v1/auth and the
// authenticated /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)              // rotates the refresh token
	g.POST("/refresh-access", a.RefreshAccess) // keeps it
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStaff, model.RoleAdmin))
}

// RegisterPublic registers the anonymous catalogue and booking routes.
// Catalogue reads go through cache; availability and booking are rate
// limited and never cached.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache, limit echo.MiddlewareFunc) {
	cache, limit = orNoop(cache), orNoop(limit)
	g := e.Group("/v1")
	g.GET("/locations", p.ListLocations, cache)
	g.GET("/locations/:id", p.GetLocation, cache)
	g.GET("/locations/:id/tables", p.ListTables, cache)
	g.GET("/locations/:id/availability", p.Availability, limit)
	g.POST("/reservations", p.CreateReservation, limit)
}

// RegisterStaff registers the reservation desk and the live board for
// STAFF and ADMIN accounts.
func RegisterStaff(e *echo.Echo, s *handler.StaffHandler, b *handler.BoardHandler, jwtSecret string) {
	roles := middleware.RequireRole(model.RoleStaff, model.RoleAdmin)

	g := e.Group("/v1/staff")
	desk := g.Group("/reservations", middleware.JWTAuth(jwtSecret), roles)
	desk.GET("", s.List)
	desk.POST("", s.Create)
	desk.GET("/:id", s.Get)
	desk.PATCH("/:id", s.Update)
	desk.PATCH("/:id/status", s.ChangeStatus)

	if b != nil {
		g.GET("/ws", b.Serve, middleware.JWTAuthQuery(jwtSecret, "token"), roles)
	}
}

// RegisterAdmin registers ADMIN-only catalogue management, account
// creation and hard deletes.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, s *handler.StaffHandler, auth *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin))

	g.POST("/users", auth.CreateUser)
	g.DELETE("/reservations/:id", s.Delete)

	g.POST("/locations", a.CreateLocation)
	g.PUT("/locations/:id", a.UpdateLocation)
	g.PUT("/locations/:id/hours", a.SetHours)
	g.POST("/locations/:id/tables", a.CreateTable)
	g.PUT("/tables/:id", a.UpdateTable)
	g.DELETE("/tables/:id", a.DeactivateTable)
}

func orNoop(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	if mw == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return mw
}
