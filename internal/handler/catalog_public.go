package handler // guest catalog endpoints

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/bookable/internal/model"
    "github.com/iliyamo/bookable/internal/service"
)

// PublicHandler serves the unauthenticated catalog: listings, item detail
// and the price, availability and validate queries.
type PublicHandler struct {
    Catalog *service.CatalogService // read side only
}

func NewPublicHandler(catalog *service.CatalogService) *PublicHandler {
    return &PublicHandler{Catalog: catalog}
}

// ListCategories handles GET /v1/categories.
func (h *PublicHandler) ListCategories(c echo.Context) error {
    out, err := h.Catalog.ListCategories(c.Request().Context(), false) // active categories only
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out}) // wrapped so the list can grow fields later
}

// ListTags handles GET /v1/tags.
func (h *PublicHandler) ListTags(c echo.Context) error {
    out, err := h.Catalog.ListTags(c.Request().Context(), false) // active tags only
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// itemFilter reads the listing query parameters shared by the public and
// admin listings: category, tag, q, from, to, page, page_size and, for
// admins, active and published.
func itemFilter(c echo.Context, admin bool) (model.ItemFilter, error) {
    var f model.ItemFilter
    var err error
    if f.CategoryID, err = queryUint(c, "category"); err != nil {
        return f, err
    }
    if f.TagID, err = queryUint(c, "tag"); err != nil {
        return f, err
    }
    if f.StartFrom, err = queryTime(c, "from"); err != nil {
        return f, err
    }
    if f.StartTo, err = queryTime(c, "to"); err != nil {
        return f, err
    }
    if f.Page, err = queryInt(c, "page", 1); err != nil {
        return f, err
    }
    if f.PageSize, err = queryInt(c, "page_size", 0); err != nil {
        return f, err
    }
    f.Query = c.QueryParam("q") // substring match on the item name
    if admin { // guests never see archived or unpublished items
        if f.Active, err = queryBool(c, "active"); err != nil {
            return f, err
        }
        if f.Published, err = queryBool(c, "published"); err != nil {
            return f, err
        }
        if f.CompanyID, err = queryUint(c, "company"); err != nil {
            return f, err
        }
    }
    return f, nil
}

// ListItems handles GET /v1/items.  Only active, published items are listed.
func (h *PublicHandler) ListItems(c echo.Context) error {
    f, err := itemFilter(c, false)
    if err != nil {
        return badRequest(c, err.Error())
    }
    page, err := h.Catalog.ListItems(c.Request().Context(), f, true) // publicOnly
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, page)
}

// GetItem handles GET /v1/items/:id.
func (h *PublicHandler) GetItem(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    d, err := h.Catalog.GetItem(c.Request().Context(), id, true) // 404 for hidden items
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, d)
}

// Price handles GET /v1/items/:id/price?quantity=&date=.
func (h *PublicHandler) Price(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return failEnvelope(c, service.Validation(service.CodeInvalidInput, err.Error()))
    }
    qty, err := queryInt(c, "quantity", 1)
    if err != nil {
        return failEnvelope(c, service.Validation(service.CodeInvalidQuantity, err.Error()))
    }
    date, err := queryTime(c, "date")
    if err != nil {
        return failEnvelope(c, service.Validation(service.CodeInvalidInput, err.Error()))
    }
    q, err := h.Catalog.Quote(c.Request().Context(), id, qty, date)
    if err != nil {
        return failEnvelope(c, err)
    }
    return ok(c, q)
}

// Availability handles GET /v1/items/:id/availability?quantity=.
func (h *PublicHandler) Availability(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return failEnvelope(c, service.Validation(service.CodeInvalidInput, err.Error()))
    }
    qty, err := queryInt(c, "quantity", 1)
    if err != nil {
        return failEnvelope(c, service.Validation(service.CodeInvalidQuantity, err.Error()))
    }
    av, err := h.Catalog.CheckAvailability(c.Request().Context(), id, qty)
    if err != nil {
        return failEnvelope(c, err)
    }
    return ok(c, av)
}

// Validate handles POST /v1/items/:id/validate.  It checks the contact
// data a guest would submit with a booking for the item.
func (h *PublicHandler) Validate(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return failEnvelope(c, service.Validation(service.CodeInvalidInput, err.Error()))
    }
    var in service.CustomerData
    if err := c.Bind(&in); err != nil {
        return failEnvelope(c, service.Validation(service.CodeInvalidInput, "invalid body"))
    }
    if _, err := h.Catalog.GetItem(c.Request().Context(), id, true); err != nil {
        return failEnvelope(c, err)
    }
    if err := service.ValidateCustomer(in); err != nil {
        return failEnvelope(c, err)
    }
    return ok(c, echo.Map{"valid": true})
}
