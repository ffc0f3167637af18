package store

// StoreError represents a domain error from store operations.
//
// These are business logic errors (object not found, role too low, duplicate
// key, etc.) as opposed to infrastructure errors (engine failure, corrupt
// row). The route layer translates Code to a transport status code; this
// layer never does.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Key is the object key related to the error (if applicable)
	Key string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Key != "" {
		return e.Message + ": " + e.Key
	}
	return e.Message
}

// ErrorCode represents the category of a store error.
//
// The route layer maps these to HTTP status codes:
// ErrBadRequest/ErrValidation → 400, ErrUnauthenticated → 401,
// ErrForbidden → 403, ErrNotFound → 404, ErrConflict → 409,
// ErrInternal → 500.
type ErrorCode int

const (
	// ErrNotFound indicates the object is absent, soft-deleted, or the
	// caller holds no role on it. Read paths deliberately prefer this over
	// ErrForbidden so unauthorized callers cannot confirm existence.
	ErrNotFound ErrorCode = iota

	// ErrForbidden indicates the object exists and the caller holds a role,
	// but the role is below the operation's minimum.
	ErrForbidden

	// ErrUnauthenticated indicates no authenticated user was supplied.
	ErrUnauthenticated

	// ErrConflict indicates a duplicate key on create.
	ErrConflict

	// ErrBadRequest indicates a malformed request: bad patch, invalid
	// cursor, invalid parameter combination.
	ErrBadRequest

	// ErrValidation indicates a field-level validation failure: missing
	// required id, expiration time in the past.
	ErrValidation

	// ErrInternal indicates a broken invariant, such as a persisted record
	// missing its owning user.
	ErrInternal
)

// CodeOf extracts the ErrorCode from an error, returning ErrInternal for
// anything that is not a *StoreError.
func CodeOf(err error) ErrorCode {
	if se, ok := err.(*StoreError); ok {
		return se.Code
	}
	return ErrInternal
}

// IsCode reports whether err is a *StoreError with the given code.
func IsCode(err error, code ErrorCode) bool {
	se, ok := err.(*StoreError)
	return ok && se.Code == code
}
