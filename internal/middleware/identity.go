package middleware

// identity.go defines helpers shared across middleware files for naming the
// caller of a request.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// userID returns the authenticated user's id as a string, or "anon" when
// JWTAuth has not run for the request.
func userID(c echo.Context) string {
    if v, ok := c.Get(CtxUserID).(uint64); ok && v != 0 {
        return strconv.FormatUint(v, 10)
    }
    return "anon"
}
