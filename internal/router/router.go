package router // router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/bookable/internal/handler"
    "github.com/iliyamo/bookable/internal/metrics"
    "github.com/iliyamo/bookable/internal/middleware"
    "github.com/iliyamo/bookable/internal/model"
)

// RegisterRoutes registers the health endpoints and, when enabled, the Prometheus
// scrape endpoint.  db may be nil, in which case /readyz is not mounted.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, withMetrics bool) {
    e.GET("/healthz", handler.Health)
    if db != nil {
        e.GET("/readyz", handler.Ready(db))
    }
    if withMetrics {
        e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
    }
}

// RegisterAuth registers authentication routes.  Session operations live
// under /v1/auth and need no token; /v1/me requires one.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    // Rotates the refresh token.
    g.POST("/refresh", a.Refresh)
    // Issues a new access token and keeps the refresh token.
    g.POST("/refresh-access", a.RefreshAccess)
    g.POST("/logout", a.Logout)

    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.Use(middleware.RequireRole(model.RoleAdmin, model.RoleCustomer))
    auth.GET("/me", a.Me)

    // Alias kept outside the protected group: logout only needs the
    // refresh token in the body.
    e.POST("/v1/logout", a.Logout)
}

// RegisterPublic registers the guest browse endpoints.  cache wraps the
// listings; pass nil to serve them uncached.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
    var mw []echo.MiddlewareFunc
    if cache != nil {
        mw = append(mw, cache)
    }
    e.GET("/v1/categories", p.ListCategories, mw...)
    e.GET("/v1/tags", p.ListTags, mw...)
    e.GET("/v1/items", p.ListItems, mw...)
    e.GET("/v1/items/:id", p.GetItem, mw...)

    // Envelope endpoints: {"success":bool,"data"|"error":...}.
    e.GET("/v1/items/:id/price", p.Price)
    e.GET("/v1/items/:id/availability", p.Availability)
    e.POST("/v1/items/:id/validate", p.Validate)
}
