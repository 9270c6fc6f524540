// internal/vault/restore.go
package vault

import (
	"fmt"

	"draftvault/internal/diff"
	"draftvault/internal/document"
)

// CompareVersions diffs two stored snapshots and reports the delta with
// summary counts. Either id failing to resolve is reported as ErrNotFound.
func (v *Vault) CompareVersions(idA, idB string) (*diff.CompareResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	snapA, ok := v.snapshots.get(idA)
	if !ok {
		return nil, fmt.Errorf("%w: version %s", ErrNotFound, idA)
	}
	snapB, ok := v.snapshots.get(idB)
	if !ok {
		return nil, fmt.Errorf("%w: version %s", ErrNotFound, idB)
	}

	result := diff.Compare(snapA.Elements, snapB.Elements)
	v.met.ComparesTotal.Inc()
	return &result, nil
}

// RestoreVersion returns a deep copy of a stored snapshot's elements,
// optionally narrowed to SelectedElementIDs (partial restore). With
// CreateNewVersion set, the restored state is immediately recorded as a new
// version tagged "restored", so the restore is itself a revertible point in
// history instead of a silent rewrite.
func (v *Vault) RestoreVersion(id string, opts RestoreOptions) ([]document.Element, error) {
	v.mu.Lock()

	snap, ok := v.snapshots.get(id)
	if !ok {
		v.mu.Unlock()
		return nil, fmt.Errorf("%w: version %s", ErrNotFound, id)
	}

	elements := document.CloneElements(snap.Elements)
	if len(opts.SelectedElementIDs) > 0 {
		selected := make(map[string]bool, len(opts.SelectedElementIDs))
		for _, elementID := range opts.SelectedElementIDs {
			selected[elementID] = true
		}
		filtered := elements[:0]
		for _, e := range elements {
			if selected[e.ID] {
				filtered = append(filtered, e)
			}
		}
		elements = filtered
	}

	var listing []*VersionMetadata
	if opts.CreateNewVersion {
		_, err := v.createVersionLocked(elements, CreateOptions{
			Name:   fmt.Sprintf("Restored from %s", snap.Metadata.Name),
			Author: opts.Author,
			Tags:   []string{TagRestored},
			Canvas: snap.Canvas,
		})
		if err != nil {
			v.mu.Unlock()
			return nil, err
		}
		listing = v.versionListingLocked()
	}

	v.met.RestoresTotal.Inc()
	v.log.Debug().
		Str("version_id", id).
		Int("elements", len(elements)).
		Bool("partial", len(opts.SelectedElementIDs) > 0).
		Bool("recorded", opts.CreateNewVersion).
		Msg("version restored")

	v.mu.Unlock()

	if listing != nil {
		v.hub.EmitVersionsChanged(listing)
	}
	return elements, nil
}
