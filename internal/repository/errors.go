// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// session service and handlers to distinguish between different failure
// scenarios without inspecting driver-specific errors. For example,
// ErrUsernameExists maps a MySQL duplicate-key violation on users.username
// into a value the registration flow can turn into HTTP 409, while
// ErrInvalidRefresh deliberately covers every way a refresh token can be
// unusable (unknown, expired, revoked, wrong device) so callers cannot
// leak which one applied.
package repository

import "errors"

// ErrUsernameExists is returned when registration collides with an
// existing username. Handlers should translate this into HTTP 409.
var ErrUsernameExists = errors.New("username already exists")

// ErrInvalidRefresh is returned when a refresh token cannot be consumed:
// no matching hash, device mismatch, already revoked, or expired. All
// four cases are indistinguishable on purpose.
var ErrInvalidRefresh = errors.New("invalid refresh token")

// ErrNotFound is returned when a target row is absent or soft-deleted,
// or when a conditional update matched no rows (e.g. set-password on an
// account that already has one). Handlers translate it into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own, such as editing another author's post
// without the admin flag. Handlers translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrSlugExhausted is returned when slug generation keeps colliding
// after the bounded number of retries. Handlers translate it into
// HTTP 500; it indicates pathological slug density, not caller error.
var ErrSlugExhausted = errors.New("slug retries exhausted")
