package model

import (
    "time"

    "github.com/google/uuid"
)

// User represents an application user record as stored in the `users`
// table.  Each field corresponds to a column in the database.  The json
// tags are omitted here because these structs are used internally by the
// repository layer; handlers define separate response types with
// appropriate JSON tags.
//
// PasswordHash is a pointer because an account provisioned through an
// external identity provider has no local credential; password login is
// rejected for such accounts until set-password runs.  DeletedAt is a
// pointer because a non-null value marks the account as soft-deleted:
// every read except administrative audit must treat such a row as absent.
//
// Fields:
//  ID           – UUID primary key of the user.
//  Username     – unique, case-sensitive username (3–16 chars).
//  PasswordHash – bcrypt hashed password, nil when no local credential exists.
//  AvatarURL    – optional profile image URL.
//  IsAdmin      – admin flag; set once by the join-admin flow, never auto-reverted.
//  ConsentAt    – consent timestamp captured at registration, immutable.
//  DeletedAt    – soft-delete timestamp, nil while the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uuid.UUID  // users.id
    Username     string     // users.username
    PasswordHash *string    // users.password_hash (nullable)
    AvatarURL    string     // users.avatar_url
    IsAdmin      bool       // users.is_admin
    ConsentAt    time.Time  // users.consent_at
    DeletedAt    *time.Time // users.deleted_at (nullable)
    CreatedAt    time.Time  // users.created_at
    UpdatedAt    time.Time  // users.updated_at
}

// HasLocalCredential reports whether the user can authenticate with a
// password at all.  Kept as a method so call sites do not test the
// nullable column directly.
func (u User) HasLocalCredential() bool { return u.PasswordHash != nil }

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and is scoped to one logical device;
// at most one non-revoked, non-expired row exists per (user_id, device_id)
// pair.  The plain token is never stored; only its SHA‑256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  DeviceID  – opaque client-supplied device identifier.
//  TokenHash – SHA‑256 hex digest of the token value.
//  IssuedAt  – when the token was minted.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was rotated out or revoked (null if still active).
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uuid.UUID  // refresh_tokens.user_id
    DeviceID  string     // refresh_tokens.device_id
    TokenHash string     // refresh_tokens.token_hash
    IssuedAt  time.Time  // refresh_tokens.issued_at
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
}

// OAuthAccount links a user to an external identity provider.  The auth
// core only reads provider names for profile responses and deletes rows
// when an account is removed; the actual OAuth flows live outside this
// service.
type OAuthAccount struct {
    ID         uint64    // oauth_accounts.id
    UserID     uuid.UUID // oauth_accounts.user_id
    Provider   string    // oauth_accounts.provider (e.g. "google")
    ProviderID string    // oauth_accounts.provider_user_id
    CreatedAt  time.Time // oauth_accounts.created_at
}
