// internal/vault/bundle.go
package vault

import (
	"encoding/json"
	"fmt"
	"time"

	"draftvault/internal/document"
)

const bundleFormatVersion = 1

// ExportHistory produces a serializable bundle of all versions, snapshots,
// branches, and session pointers.
func (v *Vault) ExportHistory() (*HistoryBundle, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	bundle := &HistoryBundle{
		FormatVersion:  bundleFormatVersion,
		ExportedAt:     time.Now(),
		CurrentVersion: v.currentVersionID,
		CurrentBranch:  v.currentBranchID,
		HighestVersion: v.versionCounter,
	}

	for _, m := range v.versionListingLocked() {
		bundle.Versions = append(bundle.Versions, m)
	}
	for _, m := range bundle.Versions {
		record := &SnapshotRecord{VersionID: m.ID}
		if payload, ok := v.snapshots.payloads[m.ID]; ok {
			record.Elements = document.CloneElements(payload.Elements)
			record.Canvas = payload.Canvas.Clone()
		}
		bundle.Snapshots = append(bundle.Snapshots, record)
	}
	bundle.Branches = v.branchListingLocked()

	return bundle, nil
}

// ImportHistory merges a bundle into the vault. The merge is additive:
// existing state is kept, already-known ids are skipped. A structurally
// invalid bundle is rejected with ErrMalformed before anything is touched.
func (v *Vault) ImportHistory(bundle *HistoryBundle) error {
	if err := validateBundle(bundle); err != nil {
		return err
	}

	v.mu.Lock()

	// Parent and head references must resolve within the merged graph, so
	// an import can never persist an orphaned subtree.
	known := make(map[string]bool, v.snapshots.count()+len(bundle.Versions))
	for id := range v.snapshots.meta {
		known[id] = true
	}
	for _, m := range bundle.Versions {
		known[m.ID] = true
	}
	for _, m := range bundle.Versions {
		if m.ParentVersionID != "" && !known[m.ParentVersionID] {
			v.mu.Unlock()
			return fmt.Errorf("%w: version %s references missing parent %s",
				ErrMalformed, m.ID, m.ParentVersionID)
		}
	}
	for _, b := range bundle.Branches {
		if b.HeadVersionID != "" && !known[b.HeadVersionID] {
			v.mu.Unlock()
			return fmt.Errorf("%w: branch %s references missing head %s",
				ErrMalformed, b.ID, b.HeadVersionID)
		}
	}

	payloads := make(map[string]*SnapshotRecord, len(bundle.Snapshots))
	for _, r := range bundle.Snapshots {
		payloads[r.VersionID] = r
	}

	imported := 0
	for _, m := range bundle.Versions {
		if _, exists := v.snapshots.getMeta(m.ID); exists {
			continue
		}
		payload := payloads[m.ID]
		err := v.snapshots.put(&VersionSnapshot{
			Metadata: m.clone(),
			Elements: document.CloneElements(payload.Elements),
			Canvas:   payload.Canvas.Clone(),
		})
		if err != nil {
			v.mu.Unlock()
			return err
		}
		if m.VersionNumber > v.versionCounter {
			v.versionCounter = m.VersionNumber
		}
		imported++
	}

	for _, b := range bundle.Branches {
		if _, exists := v.branches[b.ID]; exists {
			continue
		}
		// Exactly one default branch exists per vault; imported branches
		// never displace it.
		clone := b.clone()
		clone.IsDefault = false
		v.branches[clone.ID] = clone
	}

	if err := v.persistAll(); err != nil {
		v.mu.Unlock()
		return err
	}

	v.met.VersionsRetained.Set(float64(v.snapshots.count()))
	v.met.BranchesRetained.Set(float64(len(v.branches)))
	v.log.Info().
		Int("versions_imported", imported).
		Int("branches", len(bundle.Branches)).
		Msg("history imported")

	versions := v.versionListingLocked()
	branches := v.branchListingLocked()
	v.mu.Unlock()

	v.hub.EmitVersionsChanged(versions)
	v.hub.EmitBranchesChanged(branches)
	return nil
}

// ImportHistoryJSON decodes and imports a serialized bundle. Unparseable
// data is rejected with ErrMalformed and existing state is untouched.
func (v *Vault) ImportHistoryJSON(data []byte) error {
	var bundle HistoryBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return v.ImportHistory(&bundle)
}

func validateBundle(bundle *HistoryBundle) error {
	if bundle == nil {
		return fmt.Errorf("%w: nil bundle", ErrMalformed)
	}
	if bundle.FormatVersion != bundleFormatVersion {
		return fmt.Errorf("%w: unsupported format version %d", ErrMalformed, bundle.FormatVersion)
	}

	seen := make(map[string]bool, len(bundle.Versions))
	for _, m := range bundle.Versions {
		if m == nil || m.ID == "" {
			return fmt.Errorf("%w: version with empty id", ErrMalformed)
		}
		if seen[m.ID] {
			return fmt.Errorf("%w: duplicate version id %s", ErrMalformed, m.ID)
		}
		seen[m.ID] = true
	}

	havePayload := make(map[string]bool, len(bundle.Snapshots))
	for _, r := range bundle.Snapshots {
		if r == nil || r.VersionID == "" {
			return fmt.Errorf("%w: snapshot with empty version id", ErrMalformed)
		}
		if !seen[r.VersionID] {
			return fmt.Errorf("%w: snapshot %s has no version metadata", ErrMalformed, r.VersionID)
		}
		havePayload[r.VersionID] = true
	}
	for id := range seen {
		if !havePayload[id] {
			return fmt.Errorf("%w: version %s has no snapshot payload", ErrMalformed, id)
		}
	}

	for _, b := range bundle.Branches {
		if b == nil || b.ID == "" || b.Name == "" {
			return fmt.Errorf("%w: branch with empty id or name", ErrMalformed)
		}
	}

	return nil
}

// ClearHistory wipes all versions, snapshots, and branches, then
// re-establishes the default branch.
func (v *Vault) ClearHistory() error {
	v.mu.Lock()

	v.snapshots = newSnapshotStore()
	v.branches = make(map[string]*Branch)
	v.currentVersionID = ""
	v.versionCounter = 0

	branch := v.newDefaultBranch()
	v.branches[branch.ID] = branch
	v.currentBranchID = branch.ID

	if err := v.persistAll(); err != nil {
		v.mu.Unlock()
		return err
	}

	v.met.VersionsRetained.Set(0)
	v.met.BranchesRetained.Set(1)
	v.log.Info().Msg("history cleared")

	versions := v.versionListingLocked()
	branches := v.branchListingLocked()
	v.mu.Unlock()

	v.hub.EmitVersionsChanged(versions)
	v.hub.EmitBranchesChanged(branches)
	return nil
}
