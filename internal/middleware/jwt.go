package middleware // middleware provides shared request processing for handlers

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/bookable/internal/logging"
    "github.com/iliyamo/bookable/internal/utils"
)

// Context keys set by JWTAuth.  user_id holds a uint64, role a string.
const (
    CtxUserID = "user_id"
    CtxRole   = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores the token's subject and role in the echo context under CtxUserID
// and CtxRole.  The request logger gains a user_id field.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get(echo.HeaderAuthorization)
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            id, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            c.Set(CtxUserID, id.UserID)
            c.Set(CtxRole, id.Role)

            req := c.Request()
            entry := logging.FromContext(req.Context()).WithField("user_id", id.UserID)
            c.SetRequest(req.WithContext(logging.ToContext(req.Context(), entry)))
            return next(c)
        }
    }
}
