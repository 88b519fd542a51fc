// Package service implements the credential and token lifecycle engine:
// user registration and authentication, email verification, refresh
// token rotation and effective-permission resolution. Handlers call
// into this package and translate its closed error taxonomy into HTTP
// statuses.
package service

import "errors"

// The closed error taxonomy. Every failure leaving this package wraps
// exactly one of these sentinels; lower-layer detail is attached with
// fmt.Errorf("%w: ...") and never includes raw database error text for
// the ErrInternal case — that goes to the log instead.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInternal     = errors.New("internal error")
)
