package utils // package utils provides helper functions for token creation and hashing

import (
    "crypto/rand"   // secure random number generation
    "crypto/sha256" // SHA‑256 hashing for refresh tokens
    "encoding/hex"  // hex encoding and decoding functions
    "errors"        // sentinel error for failed verification
    "time"          // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
    "github.com/google/uuid"       // user identifiers carried in the subject claim
)

// ErrInvalidAccessToken is returned by VerifyAccessToken for any token
// that cannot be accepted: bad signature, wrong algorithm, expired,
// malformed claims.  Callers translate it to HTTP 401 without
// distinguishing the cause.
var ErrInvalidAccessToken = errors.New("invalid access token")

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.  Access tokens are short‑lived and encoded
// in the Authorization header when calling protected endpoints.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long‑lived token used to obtain new access tokens.
// The Raw field contains the raw token string returned to the client.  The Exp
// field records when it expires.  In the database only a SHA‑256 hash of the
// raw string is stored for security reasons.
type RefreshToken struct {
    Raw string    // raw token string returned to the client
    Exp time.Time // UTC expiration time
}

// Principal is the identity extracted from a verified access token.  The
// IsAdmin flag reflects the state of the user at issue time: an admin
// grant or account deletion is not visible until the token expires or
// the client refreshes.
type Principal struct {
    UserID  uuid.UUID
    IsAdmin bool
}

// NewAccessToken builds and signs an HS256 JWT for a user.  It takes the
// signing secret, the user ID, the admin flag, and a TTL in minutes.  It
// returns an AccessToken structure containing the signed token and its
// expiration time.  The JWT includes standard claims: subject (sub), adm,
// expiration (exp) and issued at (iat).
func NewAccessToken(secret string, userID uuid.UUID, isAdmin bool, ttlMin int) (AccessToken, error) {
    // Calculate the expiration time by adding the TTL to the current UTC time.
    exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub": userID.String(),
        "adm": isAdmin,
        "exp": exp.Unix(),
        "iat": time.Now().UTC().Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// VerifyAccessToken parses and validates a signed access token and
// returns the embedded principal.  Verification is purely local: the
// signature and expiry are checked, no store is consulted.  Any failure
// collapses into ErrInvalidAccessToken.
func VerifyAccessToken(secret, raw string) (Principal, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        // Reject tokens signed with anything but HMAC; jwt.Parse would
        // otherwise accept a token that names its own algorithm.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidAccessToken
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return Principal{}, ErrInvalidAccessToken
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return Principal{}, ErrInvalidAccessToken
    }
    sub, ok := claims["sub"].(string)
    if !ok {
        return Principal{}, ErrInvalidAccessToken
    }
    uid, err := uuid.Parse(sub)
    if err != nil {
        return Principal{}, ErrInvalidAccessToken
    }
    isAdmin, _ := claims["adm"].(bool)
    return Principal{UserID: uid, IsAdmin: isAdmin}, nil
}

// NewRefreshToken returns a cryptographically secure random token (raw) and
// its expiration time.  Refresh tokens live longer than access tokens and
// are exchanged, one use each, for new token pairs.  The ttlDays parameter
// controls how many days the refresh token is valid.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
    raw, err := randomHex(48) // 48 bytes -> 96 hex chars
    if err != nil {
        return RefreshToken{}, err
    }
    return RefreshToken{
        Raw: raw,
        Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
    }, nil
}

// HashRefreshRaw returns the SHA‑256 hash of the raw refresh token as a hex
// string.  Storing only the hash in the database prevents attackers from
// using stolen database entries to refresh sessions.
func HashRefreshRaw(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}

// randomHex returns a hex‑encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
