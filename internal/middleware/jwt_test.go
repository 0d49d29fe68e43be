package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/blog-platform/internal/utils"
)

const mwSecret = "middleware-test-secret"

func runProtected(t *testing.T, authHeader string, mws ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"user_id":  c.Get("user_id"),
			"is_admin": c.Get("is_admin"),
		})
	}
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h(c))
	return rec
}

func TestJWTAuthMissingHeader(t *testing.T) {
	rec := runProtected(t, "", JWTAuth(mwSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthNotBearer(t *testing.T) {
	rec := runProtected(t, "Basic dXNlcjpwYXNz", JWTAuth(mwSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthBadToken(t *testing.T) {
	rec := runProtected(t, "Bearer not.a.token", JWTAuth(mwSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	at, err := utils.NewAccessToken("some other secret", uuid.New(), false, 15)
	require.NoError(t, err)
	rec := runProtected(t, "Bearer "+at.Token, JWTAuth(mwSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthInjectsPrincipal(t *testing.T) {
	uid := uuid.New()
	at, err := utils.NewAccessToken(mwSecret, uid, true, 15)
	require.NoError(t, err)

	rec := runProtected(t, "Bearer "+at.Token, JWTAuth(mwSecret))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), uid.String())
	assert.Contains(t, rec.Body.String(), `"is_admin":true`)
}

func TestRequireAdminForbidsNonAdmin(t *testing.T) {
	at, err := utils.NewAccessToken(mwSecret, uuid.New(), false, 15)
	require.NoError(t, err)

	rec := runProtected(t, "Bearer "+at.Token, JWTAuth(mwSecret), RequireAdmin())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	at, err := utils.NewAccessToken(mwSecret, uuid.New(), true, 15)
	require.NoError(t, err)

	rec := runProtected(t, "Bearer "+at.Token, JWTAuth(mwSecret), RequireAdmin())
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdminWithoutJWTAuth(t *testing.T) {
	// No principal in context at all: treated as not-admin.
	rec := runProtected(t, "", RequireAdmin())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
