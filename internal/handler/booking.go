package handler // booking endpoints for customers and administrators

import (
    "net/http" // status codes
    "strings"  // splits the state filter

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/bookable/internal/model"
    "github.com/iliyamo/bookable/internal/service"
)

// BookingHandler exposes the booking lifecycle to authenticated users.
type BookingHandler struct {
    Bookings *service.BookingService // lifecycle operations, authorization included
}

func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
    return &BookingHandler{Bookings: bookings}
}

type createBookingReq struct {
    service.CreateBookingInput
    // Confirm defaults to true: the booking is confirmed (or waitlisted)
    // in the same request.  false leaves it as a draft.
    Confirm *bool `json:"confirm"`
}

// bookingFilter reads state (comma separated), from, to, page, page_size
// and, for admin listings, item_id and customer_id.
func bookingFilter(c echo.Context) (model.BookingFilter, error) {
    var f model.BookingFilter                                       // zero value lists everything the caller may see
    for _, raw := range strings.Split(c.QueryParam("state"), ",") { // state=confirmed,waitlisted
        if raw = strings.TrimSpace(raw); raw != "" {
            f.States = append(f.States, model.BookingState(raw)) // unknown states are rejected by the service
        }
    }
    var err error
    if f.From, err = queryTime(c, "from"); err != nil {
        return f, err
    }
    if f.To, err = queryTime(c, "to"); err != nil {
        return f, err
    }
    if f.Page, err = queryInt(c, "page", 1); err != nil {
        return f, err
    }
    if f.PageSize, err = queryInt(c, "page_size", 0); err != nil { // 0 picks the configured default
        return f, err
    }
    itemID, err := queryUint(c, "item_id") // nil when absent
    if err != nil {
        return f, err
    }
    if itemID != nil {
        f.ItemID = *itemID
    }
    customerID, err := queryUint(c, "customer_id")
    if err != nil {
        return f, err
    }
    if customerID != nil {
        f.CustomerID = *customerID
    }
    return f, nil
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
    var req createBookingReq             // item_id, quantity, booking_date, notes, confirm
    if err := c.Bind(&req); err != nil { // malformed JSON
        return badRequest(c, "invalid body")
    }
    ctx := c.Request().Context() // carries the correlation id and trace span
    var (
        b   model.Booking
        err error
    )
    if req.Confirm != nil && !*req.Confirm {
        b, err = h.Bookings.Create(ctx, actorOf(c), req.CreateBookingInput) // stays a draft
    } else {
        b, err = h.Bookings.Book(ctx, actorOf(c), req.CreateBookingInput) // confirmed or waitlisted
    }
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusCreated, b) // 201 with the stored booking
}

// Mine handles GET /v1/my-bookings.
func (h *BookingHandler) Mine(c echo.Context) error {
    f, err := bookingFilter(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    f.ItemID, f.CustomerID = 0, 0 // customers only ever see their own bookings
    page, err := h.Bookings.ListMine(c.Request().Context(), actorOf(c), f)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, page)
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    v, err := h.Bookings.Get(c.Request().Context(), actorOf(c), id) // 403 for someone else's booking
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, v)
}

// Update handles PATCH /v1/bookings/:id.
func (h *BookingHandler) Update(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    var in service.UpdateBookingInput // absent fields stay untouched
    if err := c.Bind(&in); err != nil {
        return badRequest(c, "invalid body")
    }
    b, err := h.Bookings.Update(c.Request().Context(), actorOf(c), id, in)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, b)
}

// Delete handles DELETE /v1/bookings/:id.
func (h *BookingHandler) Delete(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    if err := h.Bookings.Delete(c.Request().Context(), actorOf(c), id); err != nil {
        return fail(c, err)
    }
    return c.NoContent(http.StatusNoContent) // nothing to return after removal
}

// Confirm handles POST /v1/bookings/:id/confirm.
func (h *BookingHandler) Confirm(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    b, err := h.Bookings.Confirm(c.Request().Context(), actorOf(c), id)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, b)
}

// Cancel handles POST /v1/bookings/:id/cancel.  The response lists any
// waitlisted booking promoted into the freed seats.
func (h *BookingHandler) Cancel(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    res, err := h.Bookings.Cancel(c.Request().Context(), actorOf(c), id) // may promote the waitlist head
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, res)
}

// Done handles POST /v1/bookings/:id/done.
func (h *BookingHandler) Done(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    b, err := h.Bookings.Done(c.Request().Context(), actorOf(c), id) // administrators only
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, b)
}

// Duplicate handles POST /v1/bookings/:id/duplicate.
func (h *BookingHandler) Duplicate(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    b, err := h.Bookings.Duplicate(c.Request().Context(), actorOf(c), id) // new draft copying the source
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusCreated, b)
}

// AdminList handles GET /v1/admin/bookings.
func (h *BookingHandler) AdminList(c echo.Context) error {
    f, err := bookingFilter(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    page, err := h.Bookings.List(c.Request().Context(), actorOf(c), f)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, page)
}

// Promote handles POST /v1/admin/bookings/:id/promote.
func (h *BookingHandler) Promote(c echo.Context) error {
    id, err := idParam(c)
    if err != nil {
        return badRequest(c, err.Error())
    }
    res, err := h.Bookings.Promote(c.Request().Context(), actorOf(c), id) // may overbook; see res.Overbooked
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, res)
}
