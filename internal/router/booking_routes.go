package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/bookable/internal/handler"
    "github.com/iliyamo/bookable/internal/middleware"
    "github.com/iliyamo/bookable/internal/model"
)

// RegisterBookings registers the booking lifecycle under /v1.  Customers
// act on their own bookings; administrators may act on any.  Ownership and
// the admin-only transitions are enforced by the booking service.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(model.RoleAdmin, model.RoleCustomer),
    )
    g.POST("/bookings", h.Create)
    g.GET("/my-bookings", h.Mine)
    g.GET("/bookings/:id", h.Get)
    g.PATCH("/bookings/:id", h.Update)
    g.DELETE("/bookings/:id", h.Delete)

    g.POST("/bookings/:id/confirm", h.Confirm)
    g.POST("/bookings/:id/cancel", h.Cancel)
    g.POST("/bookings/:id/done", h.Done)
    g.POST("/bookings/:id/duplicate", h.Duplicate)
}
