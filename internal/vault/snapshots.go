// internal/vault/snapshots.go
package vault

import (
	"fmt"

	"draftvault/internal/document"
)

// snapshotStore holds version metadata and payloads in memory, keyed by
// version id. Metadata and payload live in separate maps so list views are
// served without touching payloads. Durability is the vault's job: it
// serializes the store to the key-value backend after each mutation.
type snapshotStore struct {
	meta     map[string]*VersionMetadata
	payloads map[string]*SnapshotRecord
}

func newSnapshotStore() *snapshotStore {
	return &snapshotStore{
		meta:     make(map[string]*VersionMetadata),
		payloads: make(map[string]*SnapshotRecord),
	}
}

// put stores a snapshot. Re-putting an existing id is rejected: snapshots
// are write-once.
func (s *snapshotStore) put(snap *VersionSnapshot) error {
	id := snap.Metadata.ID
	if _, taken := s.meta[id]; taken {
		return fmt.Errorf("%w: %s", ErrExists, id)
	}
	s.meta[id] = snap.Metadata
	s.payloads[id] = &SnapshotRecord{
		VersionID: id,
		Elements:  snap.Elements,
		Canvas:    snap.Canvas,
	}
	return nil
}

// get returns the assembled snapshot, or false when the id is unknown.
func (s *snapshotStore) get(id string) (*VersionSnapshot, bool) {
	meta, ok := s.meta[id]
	if !ok {
		return nil, false
	}
	snap := &VersionSnapshot{Metadata: meta}
	// Durable state can carry metadata without a payload after a write that
	// only partially landed; serve it as an empty snapshot.
	if payload, ok := s.payloads[id]; ok {
		snap.Elements = payload.Elements
		snap.Canvas = payload.Canvas
	}
	return snap, true
}

// getMeta returns the metadata only.
func (s *snapshotStore) getMeta(id string) (*VersionMetadata, bool) {
	meta, ok := s.meta[id]
	return meta, ok
}

// delete removes both metadata and payload.
func (s *snapshotStore) delete(id string) {
	delete(s.meta, id)
	delete(s.payloads, id)
}

// all returns every metadata record, unordered.
func (s *snapshotStore) all() []*VersionMetadata {
	out := make([]*VersionMetadata, 0, len(s.meta))
	for _, m := range s.meta {
		out = append(out, m)
	}
	return out
}

func (s *snapshotStore) count() int {
	return len(s.meta)
}

// elementsCopy returns a deep copy of a stored payload's elements, never a
// live reference into the store.
func (s *snapshotStore) elementsCopy(id string) ([]document.Element, bool) {
	payload, ok := s.payloads[id]
	if !ok {
		return nil, false
	}
	return document.CloneElements(payload.Elements), true
}
