// Package service contains the session service: the orchestration layer
// behind the auth endpoints. Failures are classified with the sentinel
// errors below; handlers map them onto HTTP statuses and anything not
// wrapping a sentinel is reported as a generic 500 while the detail is
// logged server-side.
package service

import "errors"

// ErrValidation covers malformed or missing fields, mismatched password
// confirmations, an unchanged password on change-password, an empty
// device id on logout, and a wrong or reused join-admin code. HTTP 400.
var ErrValidation = errors.New("validation failed")

// ErrUnauthorized covers every identity failure: unknown username,
// soft-deleted account, missing local credential, wrong password, and
// unusable refresh tokens. The causes are indistinguishable to the
// caller on purpose. HTTP 401.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden is returned when an authenticated caller lacks the
// privilege for the operation (non-admin deleting another user). HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when registration collides with an existing
// username. HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrNotFound is returned when the target of the operation is absent or
// the operation does not apply to it, such as set-password on an account
// that already holds a credential. HTTP 404.
var ErrNotFound = errors.New("not found")
