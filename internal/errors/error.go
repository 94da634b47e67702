// Package errors provides the error taxonomy shared by the inventory service layers.
package errors

import (
	"errors"
	"fmt"
)

// Authorization outcomes.
var ErrAuthzDenied = errors.New("access denied")
var ErrMalformedPrincipal = errors.New("principal is missing a required tenant claim")

// Lifecycle and concurrency outcomes.
var ErrStateConflict = errors.New("state conflict")
var ErrOptimisticLock = fmt.Errorf("%w: the record has been modified by another transaction", ErrStateConflict)

var ErrProductNotFound = errors.New("product not found")
var ErrStoreNotFound = errors.New("store not found")
var ErrUserNotFound = errors.New("user not found")

// ErrStoreUnavailable rejects a product placed in a store that is missing or soft-deleted.
var ErrStoreUnavailable = errors.New("store does not exist or is deleted")

// Credential outcomes.
var ErrInvalidCredentials = errors.New("invalid username or password")
var ErrCredentialExpired = errors.New("credential expired")
var ErrCredentialInvalid = errors.New("credential invalid")
var ErrSigningKeyMissing = errors.New("JWT signing key is not configured")
