package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/bookable/internal/handler"
    "github.com/iliyamo/bookable/internal/middleware"
    "github.com/iliyamo/bookable/internal/model"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, b *handler.BookingHandler, jwtSecret string) {
    g := e.Group(
        "/v1/admin",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(model.RoleAdmin),
    )

    // ---- Categories ----
    g.GET("/categories", a.ListCategories)
    g.POST("/categories", a.CreateCategory)
    g.GET("/categories/:id", a.GetCategory)
    g.PATCH("/categories/:id", a.UpdateCategory)
    g.PUT("/categories/:id", a.UpdateCategory)
    g.DELETE("/categories/:id", a.DeleteCategory)

    // ---- Tags ----
    g.GET("/tags", a.ListTags)
    g.POST("/tags", a.CreateTag)
    g.PATCH("/tags/:id", a.UpdateTag)
    g.PUT("/tags/:id", a.UpdateTag)
    g.DELETE("/tags/:id", a.DeleteTag)

    // ---- Items ----
    g.GET("/items", a.ListItems)
    g.POST("/items", a.CreateItem)
    g.GET("/items/:id", a.GetItem)
    g.PATCH("/items/:id", a.UpdateItem)
    g.PUT("/items/:id", a.UpdateItem)
    g.DELETE("/items/:id", a.DeleteItem)
    g.POST("/items/:id/archive", a.Archive)
    g.POST("/items/:id/unarchive", a.Unarchive)
    g.POST("/items/:id/publish", a.Publish)
    g.POST("/items/:id/unpublish", a.Unpublish)
    g.GET("/items/:id/bookings", a.ItemBookings)

    // ---- Bookings ----
    g.GET("/bookings", b.AdminList)
    g.POST("/bookings/:id/promote", b.Promote)
}
