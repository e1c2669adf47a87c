package handler // administrator catalog endpoints

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/bookable/internal/model"
    "github.com/iliyamo/bookable/internal/service"
)

// AdminHandler serves the administrator catalog endpoints under /v1/admin.
type AdminHandler struct {
    Catalog  *service.CatalogService // categories, tags and items
    Bookings *service.BookingService // per-item booking listings
}

func NewAdminHandler(catalog *service.CatalogService, bookings *service.BookingService) *AdminHandler {
    return &AdminHandler{Catalog: catalog, Bookings: bookings}
}

// ---- Categories ----

func (h *AdminHandler) ListCategories(c echo.Context) error {
    out, err := h.Catalog.ListCategories(c.Request().Context(), true) // include inactive categories
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

func (h *AdminHandler) CreateCategory(c echo.Context) error {
    var in service.CategoryInput         // name, code, description, active
    if err := c.Bind(&in); err != nil { // reject malformed JSON early
        return badRequest(c, "invalid body")
    }
    out, err := h.Catalog.CreateCategory(c.Request().Context(), actorOf(c), in)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusCreated, out) // 201 with the stored category
}

func (h *AdminHandler) GetCategory(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    out, err := h.Catalog.GetCategory(c.Request().Context(), id)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) UpdateCategory(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    var in service.CategoryInput
    if err := c.Bind(&in); err != nil {
        return badRequest(c, "invalid body")
    }
    out, err := h.Catalog.UpdateCategory(c.Request().Context(), actorOf(c), id, in)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) DeleteCategory(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    if err := h.Catalog.DeleteCategory(c.Request().Context(), actorOf(c), id); err != nil { // 409 while items still use it
        return fail(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// ---- Tags ----

func (h *AdminHandler) ListTags(c echo.Context) error {
    out, err := h.Catalog.ListTags(c.Request().Context(), true) // include inactive tags
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

func (h *AdminHandler) CreateTag(c echo.Context) error {
    var in service.TagInput
    if err := c.Bind(&in); err != nil {
        return badRequest(c, "invalid body")
    }
    out, err := h.Catalog.CreateTag(c.Request().Context(), actorOf(c), in) // names are unique
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusCreated, out)
}

func (h *AdminHandler) UpdateTag(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    var in service.TagInput
    if err := c.Bind(&in); err != nil {
        return badRequest(c, "invalid body")
    }
    out, err := h.Catalog.UpdateTag(c.Request().Context(), actorOf(c), id, in)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) DeleteTag(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    if err := h.Catalog.DeleteTag(c.Request().Context(), actorOf(c), id); err != nil {
        return fail(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// ---- Items ----

// ListItems handles GET /v1/admin/items; archived and unpublished items are
// included unless filtered out with active= or published=.
func (h *AdminHandler) ListItems(c echo.Context) error {
    f, err := itemFilter(c, true) // admin filters: active, published
    if err != nil {
        return badRequest(c, err.Error())
    }
    page, err := h.Catalog.ListItems(c.Request().Context(), f, false)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, page)
}

func (h *AdminHandler) GetItem(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    d, err := h.Catalog.GetItem(c.Request().Context(), id, false) // archived and unpublished items too
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, d)
}

func (h *AdminHandler) CreateItem(c echo.Context) error {
    var in service.ItemInput
    if err := c.Bind(&in); err != nil {
        return badRequest(c, "invalid body")
    }
    out, err := h.Catalog.CreateItem(c.Request().Context(), actorOf(c), in) // capacity 0 means unlimited
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusCreated, out)
}

func (h *AdminHandler) UpdateItem(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    var in service.ItemInput
    if err := c.Bind(&in); err != nil {
        return badRequest(c, "invalid body")
    }
    out, err := h.Catalog.UpdateItem(c.Request().Context(), actorOf(c), id, in) // capacity may not drop below reserved seats
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) DeleteItem(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    if err := h.Catalog.DeleteItem(c.Request().Context(), actorOf(c), id); err != nil {
        return fail(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// setFlag runs one of the archive/publish toggles for the item in :id.
func (h *AdminHandler) setFlag(c echo.Context, set func(context.Context, service.Actor, uint64, bool) (model.CatalogItem, error), v bool) error {
    id, err := idParam(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    out, err := set(c.Request().Context(), actorOf(c), id, v) // SetItemActive or SetItemPublished
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) Archive(c echo.Context) error {
    return h.setFlag(c, h.Catalog.SetItemActive, false) // hidden from guests, history kept
}

func (h *AdminHandler) Unarchive(c echo.Context) error {
    return h.setFlag(c, h.Catalog.SetItemActive, true)
}

func (h *AdminHandler) Publish(c echo.Context) error {
    return h.setFlag(c, h.Catalog.SetItemPublished, true)
}

func (h *AdminHandler) Unpublish(c echo.Context) error {
    return h.setFlag(c, h.Catalog.SetItemPublished, false)
}

// ItemBookings handles GET /v1/admin/items/:id/bookings.
func (h *AdminHandler) ItemBookings(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    f, err := bookingFilter(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    f.ItemID = id // the path wins over any item_id query parameter
    page, err := h.Bookings.List(c.Request().Context(), actorOf(c), f)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, page)
}
