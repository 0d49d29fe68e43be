package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/blog-platform/internal/utils" // pure access token verification
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the verified principal into the request context.  The provided
// secret must match the one used when issuing tokens.  Verification is purely
// local — the refresh token store is never consulted, so an admin grant or an
// account deletion only becomes visible once the access token expires or the
// client refreshes.  This middleware should wrap protected routes so that
// handlers can read the identity via `c.Get("user_id")` (uuid.UUID) and
// `c.Get("is_admin")` (bool).
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // Read the Authorization header.  A valid header should start
            // with "Bearer " followed by the JWT.  If it doesn't, respond
            // with 401 Unauthorized indicating that authentication is
            // required.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            // Remove the "Bearer " prefix to obtain the raw token string.
            raw := strings.TrimPrefix(auth, "Bearer ")

            // Delegate to the token verifier.  It checks the HMAC signature
            // and the expiry and parses the subject into a UUID; any failure
            // collapses into a single error so the response does not reveal
            // which check rejected the token.
            p, err := utils.VerifyAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            // Store the verified identity in the context for handlers and
            // downstream middleware.
            c.Set("user_id", p.UserID)
            c.Set("is_admin", p.IsAdmin)
            return next(c)
        }
    }
}

// RequireAdmin returns a middleware that rejects requests whose verified
// principal lacks the admin flag.  It assumes JWTAuth ran earlier in the
// chain and stored "is_admin" in the context; a missing or mistyped value
// is treated as not-admin.
func RequireAdmin() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            isAdmin, ok := c.Get("is_admin").(bool)
            if !ok || !isAdmin {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
