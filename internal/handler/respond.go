package handler

import (
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/bookable/internal/logging"
    "github.com/iliyamo/bookable/internal/middleware"
    "github.com/iliyamo/bookable/internal/service"
)

// errorBody is the JSON shape of every error answered by the API.
type errorBody struct {
    Code    string `json:"code"`
    Message string `json:"message"`
}

// envelope is the uniform answer of the price, availability and validate
// endpoints.
type envelope struct {
    Success bool       `json:"success"`
    Data    any        `json:"data,omitempty"`
    Error   *errorBody `json:"error,omitempty"`
}

func statusOf(k service.Kind) int {
    switch k {
    case service.KindValidation:
        return http.StatusBadRequest
    case service.KindNotFound:
        return http.StatusNotFound
    case service.KindPermissionDenied:
        return http.StatusForbidden
    case service.KindConflict:
        return http.StatusConflict
    default:
        return http.StatusInternalServerError
    }
}

// describe converts err into a status and a client safe body.  Internal
// failures are logged with their cause and answered with a generic message.
func describe(c echo.Context, err error) (int, errorBody) {
    se := service.AsError(err)
    status := statusOf(se.Kind)
    if se.Kind == service.KindInternal {
        logging.FromContext(c.Request().Context()).WithError(err).WithFields(logrus.Fields{
            "route": c.Path(),
        }).Error("internal error")
        return status, errorBody{Code: service.CodeInternal, Message: "internal error"}
    }
    return status, errorBody{Code: se.Code, Message: se.Message}
}

// fail writes err as {"error":{"code","message"}}.
func fail(c echo.Context, err error) error {
    status, body := describe(c, err)
    return c.JSON(status, echo.Map{"error": body})
}

// badRequest answers a malformed request.
func badRequest(c echo.Context, msg string) error {
    return fail(c, service.Validation(service.CodeInvalidInput, msg))
}

// ok writes the success envelope.
func ok(c echo.Context, data any) error {
    return c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

// failEnvelope writes err inside the envelope.
func failEnvelope(c echo.Context, err error) error {
    status, body := describe(c, err)
    return c.JSON(status, envelope{Success: false, Error: &body})
}

// actorOf builds the service actor from the claims JWTAuth stored.
func actorOf(c echo.Context) service.Actor {
    id, _ := c.Get(middleware.CtxUserID).(uint64)
    role, _ := c.Get(middleware.CtxRole).(string)
    return service.Actor{UserID: id, Role: role}
}

// idParam parses the :id path parameter.
func idParam(c echo.Context) (uint64, error) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return 0, errors.New("invalid id")
    }
    return id, nil
}

func queryInt(c echo.Context, name string, def int) (int, error) {
    raw := strings.TrimSpace(c.QueryParam(name))
    if raw == "" {
        return def, nil
    }
    n, err := strconv.Atoi(raw)
    if err != nil {
        return 0, errors.New("invalid " + name)
    }
    return n, nil
}

func queryUint(c echo.Context, name string) (*uint64, error) {
    raw := strings.TrimSpace(c.QueryParam(name))
    if raw == "" {
        return nil, nil
    }
    n, err := strconv.ParseUint(raw, 10, 64)
    if err != nil {
        return nil, errors.New("invalid " + name)
    }
    return &n, nil
}

func queryBool(c echo.Context, name string) (*bool, error) {
    raw := strings.TrimSpace(c.QueryParam(name))
    if raw == "" {
        return nil, nil
    }
    b, err := strconv.ParseBool(raw)
    if err != nil {
        return nil, errors.New("invalid " + name)
    }
    return &b, nil
}

// queryTime accepts RFC 3339 timestamps and plain YYYY-MM-DD dates (UTC
// midnight).
func queryTime(c echo.Context, name string) (*time.Time, error) {
    raw := strings.TrimSpace(c.QueryParam(name))
    if raw == "" {
        return nil, nil
    }
    return parseTime(raw, name)
}

func parseTime(raw, name string) (*time.Time, error) {
    if t, err := time.Parse(time.RFC3339, raw); err == nil {
        t = t.UTC()
        return &t, nil
    }
    if t, err := time.Parse(time.DateOnly, raw); err == nil {
        return &t, nil
    }
    return nil, errors.New("invalid " + name + ", expected RFC 3339 or YYYY-MM-DD")
}
