package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/blog-platform/internal/model"
	"github.com/iliyamo/blog-platform/internal/repository"
	"github.com/iliyamo/blog-platform/internal/utils"
)

// UserStore is the slice of the user repository the session service
// depends on. repository.UserRepo satisfies it; tests inject in-memory
// fakes.
type UserStore interface {
	Create(ctx context.Context, username string, passwordHash *string, avatarURL string, consentAt time.Time) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
	GetByIDAny(ctx context.Context, id uuid.UUID) (model.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	GrantAdmin(ctx context.Context, id uuid.UUID) error
	UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// TokenStore is the refresh token persistence required by the session
// service. Put must atomically replace the live row for a (user, device)
// pair and Consume must invalidate-and-return in one step.
type TokenStore interface {
	Put(ctx context.Context, userID uuid.UUID, deviceID, tokenHash string, expiresAt time.Time) error
	Consume(ctx context.Context, tokenHash, deviceID string) (uuid.UUID, error)
	Revoke(ctx context.Context, userID uuid.UUID, deviceID string) error
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

// OAuthStore exposes the two external-identity operations the auth core
// needs: listing provider names for profile responses and detaching all
// links when an account is deleted.
type OAuthStore interface {
	ProvidersForUser(ctx context.Context, userID uuid.UUID) ([]string, error)
	DetachAllForUser(ctx context.Context, userID uuid.UUID) error
}

// AuthService orchestrates registration, login and the session
// lifecycle by composing the credential store, the password helpers, the
// token issuer and the refresh token store. It holds no mutable state of
// its own; concurrent requests only share the stores.
type AuthService struct {
	Users  UserStore
	Tokens TokenStore
	OAuth  OAuthStore

	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
	AdminCode      string
}

func NewAuthService(users UserStore, tokens TokenStore, oauth OAuthStore, jwtSecret string, accessTTLMin, refreshTTLDays, bcryptCost int, adminCode string) *AuthService {
	return &AuthService{
		Users:          users,
		Tokens:         tokens,
		OAuth:          oauth,
		JWTSecret:      jwtSecret,
		AccessTTLMin:   accessTTLMin,
		RefreshTTLDays: refreshTTLDays,
		BcryptCost:     bcryptCost,
		AdminCode:      adminCode,
	}
}

// usernameRe restricts usernames to 3–16 characters from a conservative
// charset. Matching is case-sensitive, as is the uniqueness constraint.
var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,16}$`)

const minPasswordLen = 8

// AuthResult carries everything a session-producing operation returns:
// the profile, the linked provider names and the fresh token pair.
type AuthResult struct {
	User      model.User
	Providers []string
	Access    utils.AccessToken
	Refresh   utils.RefreshToken
}

// TokenPair is the reduced result of a refresh, which returns no profile.
type TokenPair struct {
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// RegisterInput bundles the registration request fields.
type RegisterInput struct {
	Username        string
	Password        string
	ConfirmPassword string
	ConsentAt       time.Time
	DeviceID        string
	AvatarURL       string
}

// Register creates a non-admin user and immediately issues a token pair
// for the supplied device. A duplicate username surfaces as ErrConflict.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	if !usernameRe.MatchString(in.Username) {
		return AuthResult{}, fmt.Errorf("%w: username must be 3-16 chars of [A-Za-z0-9_.-]", ErrValidation)
	}
	if len(in.Password) < minPasswordLen {
		return AuthResult{}, fmt.Errorf("%w: password too short", ErrValidation)
	}
	if in.Password != in.ConfirmPassword {
		return AuthResult{}, fmt.Errorf("%w: password confirmation does not match", ErrValidation)
	}
	if in.DeviceID == "" {
		return AuthResult{}, fmt.Errorf("%w: device_id required", ErrValidation)
	}
	consentAt := in.ConsentAt
	if consentAt.IsZero() {
		consentAt = time.Now().UTC()
	}

	hash, err := utils.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return AuthResult{}, err
	}
	u, err := s.Users.Create(ctx, in.Username, &hash, in.AvatarURL, consentAt)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return AuthResult{}, fmt.Errorf("%w: username already taken", ErrConflict)
		}
		return AuthResult{}, err
	}
	return s.issueUserTokens(ctx, u, in.DeviceID)
}

// Login verifies a password against an active account and issues a token
// pair for the device. Unknown username, soft-deleted account, missing
// local credential and wrong password all collapse into ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, username, password, deviceID string) (AuthResult, error) {
	if username == "" || password == "" || deviceID == "" {
		return AuthResult{}, fmt.Errorf("%w: username, password and device_id required", ErrValidation)
	}
	u, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, err
	}
	if !u.HasLocalCredential() || !utils.VerifyPassword(*u.PasswordHash, password) {
		return AuthResult{}, ErrUnauthorized
	}
	return s.issueUserTokens(ctx, u, deviceID)
}

// Refresh exchanges a consumable refresh token for a new pair. The old
// token is invalidated before the new pair is minted, so a replay — even
// by the legitimate holder — fails. A device mismatch fails the same way
// as an unknown token.
func (s *AuthService) Refresh(ctx context.Context, rawToken, deviceID string) (TokenPair, error) {
	if rawToken == "" || deviceID == "" {
		return TokenPair{}, fmt.Errorf("%w: refresh_token and device_id required", ErrValidation)
	}
	userID, err := s.Tokens.Consume(ctx, utils.HashRefreshRaw(rawToken), deviceID)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidRefresh) {
			return TokenPair{}, ErrUnauthorized
		}
		return TokenPair{}, err
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		// The owning account vanished or was soft-deleted after the
		// token was minted; the session dies with it.
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrUnauthorized
		}
		return TokenPair{}, err
	}
	res, err := s.issueUserTokens(ctx, u, deviceID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: res.Access, Refresh: res.Refresh}, nil
}

// Logout revokes the caller's session on one device when deviceID is
// non-nil, or on every device when it is nil. A present-but-empty device
// id is a validation error rather than an implicit logout-all.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, deviceID *string) error {
	if deviceID != nil {
		if *deviceID == "" {
			return fmt.Errorf("%w: device_id must not be empty", ErrValidation)
		}
		return s.Tokens.Revoke(ctx, userID, *deviceID)
	}
	return s.Tokens.RevokeAll(ctx, userID)
}

// ChangePassword rotates the caller's credential and evicts every
// session: all refresh tokens are revoked, then a fresh pair is issued
// for the calling device only. Other devices must log in again.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, password, confirm, deviceID string) (AuthResult, error) {
	if len(password) < minPasswordLen {
		return AuthResult{}, fmt.Errorf("%w: password too short", ErrValidation)
	}
	if password != confirm {
		return AuthResult{}, fmt.Errorf("%w: password confirmation does not match", ErrValidation)
	}
	if password == current {
		return AuthResult{}, fmt.Errorf("%w: new password must differ from current", ErrValidation)
	}
	if deviceID == "" {
		return AuthResult{}, fmt.Errorf("%w: device_id required", ErrValidation)
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, err
	}
	if !u.HasLocalCredential() || !utils.VerifyPassword(*u.PasswordHash, current) {
		return AuthResult{}, ErrUnauthorized
	}
	hash, err := utils.HashPassword(password, s.BcryptCost)
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.Users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, err
	}
	if err := s.Tokens.RevokeAll(ctx, userID); err != nil {
		return AuthResult{}, err
	}
	return s.issueUserTokens(ctx, u, deviceID)
}

// SetPassword attaches a local credential to an account that has none,
// typically one provisioned through an external identity provider. An
// account that already holds a password maps to ErrNotFound: the
// operation does not apply to it.
func (s *AuthService) SetPassword(ctx context.Context, userID uuid.UUID, password, confirm string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password too short", ErrValidation)
	}
	if password != confirm {
		return fmt.Errorf("%w: password confirmation does not match", ErrValidation)
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if u.HasLocalCredential() {
		return ErrNotFound
	}
	hash, err := utils.HashPassword(password, s.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.Users.SetPasswordHash(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// JoinAdmin elevates the caller when the supplied reference code matches
// the deployment-wide secret. On success a fresh token pair is issued so
// the elevated claim is usable immediately; only the calling device's
// token rotates, other sessions stay untouched.
func (s *AuthService) JoinAdmin(ctx context.Context, userID uuid.UUID, referenceCode, deviceID string) (AuthResult, error) {
	if deviceID == "" {
		return AuthResult{}, fmt.Errorf("%w: device_id required", ErrValidation)
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, ErrNotFound
		}
		return AuthResult{}, err
	}
	if referenceCode == "" || referenceCode != s.AdminCode {
		return AuthResult{}, fmt.Errorf("%w: wrong reference code", ErrValidation)
	}
	if u.IsAdmin {
		return AuthResult{}, fmt.Errorf("%w: already admin", ErrValidation)
	}
	if err := s.Users.GrantAdmin(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, ErrNotFound
		}
		return AuthResult{}, err
	}
	u.IsAdmin = true
	return s.issueUserTokens(ctx, u, deviceID)
}

// DeleteUser soft-deletes the target account, revokes all of its refresh
// tokens and detaches its external-identity links. A caller may delete
// itself; deleting someone else requires the admin flag.
func (s *AuthService) DeleteUser(ctx context.Context, callerID uuid.UUID, callerIsAdmin bool, targetID uuid.UUID) error {
	if callerID != targetID && !callerIsAdmin {
		return ErrForbidden
	}
	if err := s.Users.SoftDelete(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := s.Tokens.RevokeAll(ctx, targetID); err != nil {
		return err
	}
	return s.OAuth.DetachAllForUser(ctx, targetID)
}

// AuditUser returns an account regardless of deletion state. Admin-only;
// the route gates on the admin claim before this runs.
func (s *AuthService) AuditUser(ctx context.Context, id uuid.UUID) (model.User, error) {
	u, err := s.Users.GetByIDAny(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	return u, nil
}

// UpdateAvatar changes the caller's avatar URL and returns the updated
// profile. An empty URL clears the avatar.
func (s *AuthService) UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) (model.User, error) {
	if err := s.Users.UpdateAvatar(ctx, userID, avatarURL); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrUnauthorized
		}
		return model.User{}, err
	}
	return s.Users.GetByID(ctx, userID)
}

// CheckUsername reports whether a username is taken. No auth required,
// never fails with a taxonomy error.
func (s *AuthService) CheckUsername(ctx context.Context, username string) (bool, error) {
	return s.Users.UsernameExists(ctx, username)
}

// issueUserTokens mints an access/refresh pair and rotates the refresh
// token row for (user, device). The store's Put is the atomic step that
// guarantees a single valid row per device.
func (s *AuthService) issueUserTokens(ctx context.Context, u model.User, deviceID string) (AuthResult, error) {
	access, err := utils.NewAccessToken(s.JWTSecret, u.ID, u.IsAdmin, s.AccessTTLMin)
	if err != nil {
		return AuthResult{}, err
	}
	refresh, err := utils.NewRefreshToken(s.RefreshTTLDays)
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.Tokens.Put(ctx, u.ID, deviceID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return AuthResult{}, err
	}
	providers, err := s.OAuth.ProvidersForUser(ctx, u.ID)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: u, Providers: providers, Access: access, Refresh: refresh}, nil
}
