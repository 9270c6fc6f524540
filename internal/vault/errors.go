// internal/vault/errors.go
package vault

import "errors"

// Error classes callers are expected to probe with errors.Is. Persistence
// failures are not sentinels; they come back wrapped from the store and
// indicate memory and durable state may have diverged.
var (
	// ErrNotFound is returned for operations against a version or branch
	// id that does not exist. Callers probe optimistically, so this is an
	// expected result, not a fault.
	ErrNotFound = errors.New("vault: not found")

	// ErrExists is returned when storing a snapshot under an id that is
	// already taken. Snapshots are write-once; this is a programmer error.
	ErrExists = errors.New("vault: snapshot already exists")

	// ErrProtected is returned when an operation would violate an engine
	// invariant: deleting the default or active branch, or the current
	// version.
	ErrProtected = errors.New("vault: protected")

	// ErrMalformed is returned by history import when the bundle is
	// unparseable or structurally invalid. Existing state is untouched.
	ErrMalformed = errors.New("vault: malformed history bundle")
)
