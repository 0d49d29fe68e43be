package handler

import (
	"context"  // provides context with cancellation for service calls
	"errors"   // sentinel error matching
	"log"      // server-side detail for internal failures
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"     // timeouts and timestamp formatting

	"github.com/google/uuid"      // parsing user ids from the URL and context
	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/blog-platform/internal/service" // session service orchestration
)

// AuthHandler is the thin HTTP layer over the session service: it binds
// request bodies, delegates, and maps the service error taxonomy onto
// HTTP statuses.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(a *service.AuthService) *AuthHandler { return &AuthHandler{Auth: a} }

// ----- DTOs -----

type registerReq struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	ConsentAt       string `json:"consentAt"`
	DeviceID        string `json:"deviceId"`
	AvatarURL       string `json:"avatarUrl"`
}
type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
	DeviceID string `json:"deviceId"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
	DeviceID     string `json:"deviceId"`
}
type logoutReq struct {
	DeviceID *string `json:"deviceId"`
}
type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	DeviceID        string `json:"deviceId"`
}
type setPasswordReq struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	DeviceID        string `json:"deviceId"`
}
type avatarReq struct {
	AvatarURL string `json:"avatarUrl"`
}
type joinAdminReq struct {
	ReferenceCode string `json:"referenceCode"`
	DeviceID      string `json:"deviceId"`
}

// profileResp is the profile+token shape shared by register, login,
// change-password and join-admin responses.
type profileResp struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	AvatarURL      string    `json:"avatarUrl"`
	IsAdmin        bool      `json:"isAdmin"`
	AccessToken    string    `json:"accessToken"`
	RefreshToken   string    `json:"refreshToken"`
	OAuthProviders []string  `json:"oauthProviders"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type tokenResp struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func toProfile(res service.AuthResult) profileResp {
	providers := res.Providers
	if providers == nil {
		providers = []string{}
	}
	return profileResp{
		ID:             res.User.ID.String(),
		Username:       res.User.Username,
		AvatarURL:      res.User.AvatarURL,
		IsAdmin:        res.User.IsAdmin,
		AccessToken:    res.Access.Token,
		RefreshToken:   res.Refresh.Raw,
		OAuthProviders: providers,
		CreatedAt:      res.User.CreatedAt,
		UpdatedAt:      res.User.UpdatedAt,
	}
}

// fail maps a service error onto the HTTP taxonomy. Validation messages
// are returned to the caller; anything unclassified is logged in full and
// surfaced as a generic 500.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	default:
		log.Printf("auth: internal error on %s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// principal pulls the identity the JWTAuth middleware stored in context.
func principal(c echo.Context) (uuid.UUID, bool, error) {
	uid, ok := c.Get("user_id").(uuid.UUID)
	if !ok {
		return uuid.Nil, false, echo.ErrUnauthorized
	}
	isAdmin, _ := c.Get("is_admin").(bool)
	return uid, isAdmin, nil
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// Register: create user and return profile with tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	var consentAt time.Time
	if s := strings.TrimSpace(req.ConsentAt); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "consentAt must be RFC3339"})
		}
		consentAt = t
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Auth.Register(ctx, service.RegisterInput{
		Username:        strings.TrimSpace(req.Username),
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		ConsentAt:       consentAt,
		DeviceID:        strings.TrimSpace(req.DeviceID),
		AvatarURL:       strings.TrimSpace(req.AvatarURL),
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, toProfile(res))
}

// Login: verify credentials and return profile with a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Auth.Login(ctx, strings.TrimSpace(req.Username), req.Password, strings.TrimSpace(req.DeviceID))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toProfile(res))
}

// Refresh: exchange a refresh token for a new pair; the old token is
// gone whether or not the client saves the response.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.Auth.Refresh(ctx, strings.TrimSpace(req.RefreshToken), strings.TrimSpace(req.DeviceID))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, tokenResp{AccessToken: pair.Access.Token, RefreshToken: pair.Refresh.Raw})
}

// Logout: revoke one device's session when deviceId is present, or all
// sessions when it is omitted (protected).
func (h *AuthHandler) Logout(c echo.Context) error {
	uid, _, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req logoutReq
	_ = c.Bind(&req) // an empty body means logout-all

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, uid, req.DeviceID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ChangePassword: rotate the credential, evict all sessions, hand the
// caller a fresh pair (protected).
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	uid, _, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Auth.ChangePassword(ctx, uid, req.CurrentPassword, req.Password, req.ConfirmPassword, strings.TrimSpace(req.DeviceID))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toProfile(res))
}

// SetPassword: attach a local credential to a passwordless account
// (protected).
func (h *AuthHandler) SetPassword(c echo.Context) error {
	uid, _, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req setPasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.SetPassword(ctx, uid, req.Password, req.ConfirmPassword); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "password set"})
}

// UpdateAvatar: change the caller's avatar URL; an empty value clears it
// (protected). No tokens rotate.
func (h *AuthHandler) UpdateAvatar(c echo.Context) error {
	uid, _, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req avatarReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Auth.UpdateAvatar(ctx, uid, strings.TrimSpace(req.AvatarURL))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":        u.ID.String(),
		"username":  u.Username,
		"avatarUrl": u.AvatarURL,
		"isAdmin":   u.IsAdmin,
		"updatedAt": u.UpdatedAt,
	})
}

// JoinAdmin: elevate the caller with the deployment reference code and
// return a profile whose access token already carries the admin claim
// (protected).
func (h *AuthHandler) JoinAdmin(c echo.Context) error {
	uid, _, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req joinAdminReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Auth.JoinAdmin(ctx, uid, req.ReferenceCode, strings.TrimSpace(req.DeviceID))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toProfile(res))
}

// AuditUser: admin-only account lookup that also returns soft-deleted
// accounts. GET /v1/admin/users/:id.
func (h *AuthHandler) AuditUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Auth.AuditUser(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	resp := echo.Map{
		"id":        u.ID.String(),
		"username":  u.Username,
		"avatarUrl": u.AvatarURL,
		"isAdmin":   u.IsAdmin,
		"consentAt": u.ConsentAt,
		"createdAt": u.CreatedAt,
		"updatedAt": u.UpdatedAt,
	}
	if u.DeletedAt != nil {
		resp["deletedAt"] = *u.DeletedAt
	}
	return c.JSON(http.StatusOK, resp)
}

// DeleteUser: soft-delete the target account; self-service or admin
// (protected). DELETE /v1/users/:id.
func (h *AuthHandler) DeleteUser(c echo.Context) error {
	uid, isAdmin, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.DeleteUser(ctx, uid, isAdmin, targetID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CheckUsername: public existence probe. GET /v1/auth/username/:username.
func (h *AuthHandler) CheckUsername(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	exists, err := h.Auth.CheckUsername(ctx, c.Param("username"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"exists": exists})
}
