// internal/persist/store.go
package persist

// Fixed logical keys the engine persists under.
const (
	KeyVersions       = "versions"
	KeyBranches       = "branches"
	KeySnapshots      = "snapshots"
	KeyCurrentVersion = "current_version"
	KeyCurrentBranch  = "current_branch"
)

// Store is the durable key-value boundary the engine persists through.
// Any backend satisfying get/set/delete by key is sufficient.
type Store interface {
	// Get returns the value for key, with ok=false when the key is absent.
	Get(key string) (value []byte, ok bool, err error)
	// Set writes the value for key, creating or replacing it.
	Set(key string, value []byte) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(key string) error
	// Close releases backend resources.
	Close() error
}
