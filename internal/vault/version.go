// internal/vault/version.go
package vault

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"draftvault/internal/document"
)

// CreateVersion snapshots the supplied element collection as a new version
// on the active branch. The caller's collection is deep-copied; mutating it
// afterwards never affects the stored snapshot.
func (v *Vault) CreateVersion(elements []document.Element, opts CreateOptions) (*VersionMetadata, error) {
	v.mu.Lock()
	meta, err := v.createVersionLocked(elements, opts)
	if err != nil {
		v.mu.Unlock()
		return nil, err
	}
	listing := v.versionListingLocked()
	v.mu.Unlock()

	v.hub.EmitVersionsChanged(listing)
	return meta, nil
}

func (v *Vault) createVersionLocked(elements []document.Element, opts CreateOptions) (*VersionMetadata, error) {
	var pruned []*removedVersion
	if v.snapshots.count() >= v.cfg.MaxVersionsPerProject {
		pruned = v.pruneAutoSavesLocked()
	}

	prevCurrent := v.currentVersionID
	branch := v.branches[v.currentBranchID]
	prevHead := branch.HeadVersionID

	v.versionCounter++
	meta := &VersionMetadata{
		ID:              uuid.New().String(),
		VersionNumber:   v.versionCounter,
		Name:            opts.Name,
		Description:     opts.Description,
		ParentVersionID: v.currentVersionID,
		BranchName:      branch.Name,
		Timestamp:       time.Now(),
		Author:          opts.Author,
		ElementCount:    len(elements),
		Tags:            append([]string(nil), opts.Tags...),
		IsAutoSave:      opts.IsAutoSave,
		IsMilestone:     opts.IsMilestone,
		Thumbnail:       synthesizeThumbnail(elements),
	}
	if meta.Name == "" {
		if opts.IsAutoSave {
			meta.Name = fmt.Sprintf("Auto-save %05d", meta.VersionNumber)
		} else {
			meta.Name = fmt.Sprintf("Version %05d", meta.VersionNumber)
		}
	}

	snapshot := &VersionSnapshot{
		Metadata: meta,
		Elements: document.CloneElements(elements),
		Canvas:   opts.Canvas.Clone(),
	}
	if err := v.snapshots.put(snapshot); err != nil {
		v.versionCounter--
		return nil, err
	}

	v.currentVersionID = meta.ID
	branch.HeadVersionID = meta.ID

	if err := v.persistAll(); err != nil {
		// The write never made it to durable storage; roll back so memory
		// does not advance past it. That includes any prune that ran: the
		// pruned versions are still durable.
		v.snapshots.delete(meta.ID)
		v.currentVersionID = prevCurrent
		branch.HeadVersionID = prevHead
		v.versionCounter--
		v.restoreRemovedLocked(pruned)
		return nil, err
	}

	if len(pruned) > 0 {
		v.met.VersionsPrunedTotal.Add(float64(len(pruned)))
		v.log.Info().Int("pruned", len(pruned)).Msg("autosave versions pruned")
	}

	trigger := "manual"
	switch {
	case opts.IsAutoSave:
		trigger = "autosave"
	case meta.HasTag(TagRestored):
		trigger = "restore"
	case opts.IsMilestone:
		trigger = "milestone"
	}
	v.met.VersionsCreatedTotal.WithLabelValues(trigger).Inc()
	v.met.VersionsRetained.Set(float64(v.snapshots.count()))

	v.log.Debug().
		Str("version_id", meta.ID).
		Int("version_number", meta.VersionNumber).
		Str("branch", branch.Name).
		Int("elements", meta.ElementCount).
		Bool("autosave", meta.IsAutoSave).
		Int("pruned", len(pruned)).
		Msg("version created")

	return meta.clone(), nil
}

// pruneAutoSavesLocked removes the oldest surplus autosaves, bringing the
// autosave count down to MaxAutoSaveVersions minus the margin. Milestones,
// manually named versions, and the current version are never touched. If
// nothing can be freed, creation proceeds anyway: the ceiling is a soft
// target.
func (v *Vault) pruneAutoSavesLocked() []*removedVersion {
	var candidates []*VersionMetadata
	for _, m := range v.snapshots.meta {
		if !m.IsAutoSave || m.IsMilestone || m.ID == v.currentVersionID {
			continue
		}
		candidates = append(candidates, m)
	}

	target := v.cfg.MaxAutoSaveVersions - v.cfg.PruneMargin
	surplus := len(candidates) - target
	if surplus <= 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Timestamp.Before(candidates[j].Timestamp)
	})

	removed := make([]*removedVersion, 0, surplus)
	for _, m := range candidates[:surplus] {
		if r := v.removeVersionLocked(m.ID); r != nil {
			removed = append(removed, r)
		}
	}
	return removed
}

// removedVersion records everything removeVersionLocked mutated, so a
// failed persist can put the graph back exactly as it was.
type removedVersion struct {
	meta      *VersionMetadata
	payload   *SnapshotRecord
	childIDs  []string
	branchIDs []string
}

// removeVersionLocked deletes a version and re-parents its children to its
// own parent so the graph stays connected. Branch heads pointing at the
// removed version are moved to the parent as well.
func (v *Vault) removeVersionLocked(id string) *removedVersion {
	meta, ok := v.snapshots.getMeta(id)
	if !ok {
		return nil
	}
	parent := meta.ParentVersionID
	undo := &removedVersion{meta: meta, payload: v.snapshots.payloads[id]}

	for _, m := range v.snapshots.meta {
		if m.ParentVersionID == id {
			m.ParentVersionID = parent
			undo.childIDs = append(undo.childIDs, m.ID)
		}
	}
	for _, b := range v.branches {
		if b.HeadVersionID == id {
			b.HeadVersionID = parent
			undo.branchIDs = append(undo.branchIDs, b.ID)
		}
	}

	v.snapshots.delete(id)
	return undo
}

// restoreRemovedLocked reverses removals in reverse order, so chains of
// removed versions re-link correctly.
func (v *Vault) restoreRemovedLocked(removed []*removedVersion) {
	for i := len(removed) - 1; i >= 0; i-- {
		r := removed[i]
		v.snapshots.meta[r.meta.ID] = r.meta
		if r.payload != nil {
			v.snapshots.payloads[r.meta.ID] = r.payload
		}
		for _, childID := range r.childIDs {
			if m, ok := v.snapshots.getMeta(childID); ok {
				m.ParentVersionID = r.meta.ID
			}
		}
		for _, branchID := range r.branchIDs {
			if b, ok := v.branches[branchID]; ok {
				b.HeadVersionID = r.meta.ID
			}
		}
	}
}

// GetVersion returns the full snapshot for a version id.
func (v *Vault) GetVersion(id string) (*VersionSnapshot, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap, ok := v.snapshots.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: version %s", ErrNotFound, id)
	}
	return &VersionSnapshot{
		Metadata: snap.Metadata.clone(),
		Elements: document.CloneElements(snap.Elements),
		Canvas:   snap.Canvas.Clone(),
	}, nil
}

// GetCurrentVersion returns the metadata of the session's current version,
// or ErrNotFound before the first version exists.
func (v *Vault) GetCurrentVersion() (*VersionMetadata, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.currentVersionID == "" {
		return nil, fmt.Errorf("%w: no current version", ErrNotFound)
	}
	meta, ok := v.snapshots.getMeta(v.currentVersionID)
	if !ok {
		return nil, fmt.Errorf("%w: version %s", ErrNotFound, v.currentVersionID)
	}
	return meta.clone(), nil
}

// GetVersions returns version metadata matching the filter, newest first.
func (v *Vault) GetVersions(filter Filter) []*VersionMetadata {
	v.mu.Lock()
	defer v.mu.Unlock()

	var out []*VersionMetadata
	for _, m := range v.snapshots.meta {
		if filter.matches(m) {
			out = append(out, m.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].VersionNumber > out[j].VersionNumber
	})
	return out
}

func (f Filter) matches(m *VersionMetadata) bool {
	if f.BranchName != "" && m.BranchName != f.BranchName {
		return false
	}
	if f.AuthorID != "" && m.Author.ID != f.AuthorID {
		return false
	}
	if f.After != nil && m.Timestamp.Before(*f.After) {
		return false
	}
	if f.Before != nil && m.Timestamp.After(*f.Before) {
		return false
	}
	if f.MilestoneOnly && !m.IsMilestone {
		return false
	}
	for _, tag := range f.Tags {
		if !m.HasTag(tag) {
			return false
		}
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(m.Name), needle) &&
			!strings.Contains(strings.ToLower(m.Description), needle) {
			return false
		}
	}
	return true
}

// UpdateVersion edits the cosmetic metadata allow-list: name, description,
// tags, milestone flag. Content fields are write-once.
func (v *Vault) UpdateVersion(id string, update VersionUpdate) error {
	v.mu.Lock()

	meta, ok := v.snapshots.getMeta(id)
	if !ok {
		v.mu.Unlock()
		return fmt.Errorf("%w: version %s", ErrNotFound, id)
	}

	prev := meta.clone()
	if update.Name != nil {
		meta.Name = *update.Name
	}
	if update.Description != nil {
		meta.Description = *update.Description
	}
	if update.Tags != nil {
		meta.Tags = append([]string(nil), (*update.Tags)...)
	}
	if update.IsMilestone != nil {
		meta.IsMilestone = *update.IsMilestone
	}

	if err := v.persistVersions(); err != nil {
		*meta = *prev
		v.mu.Unlock()
		return err
	}

	listing := v.versionListingLocked()
	v.mu.Unlock()

	v.hub.EmitVersionsChanged(listing)
	return nil
}

// DeleteVersion removes a version and its snapshot. The current version is
// protected; children of the deleted version are re-parented to its parent.
func (v *Vault) DeleteVersion(id string) error {
	v.mu.Lock()

	if id == v.currentVersionID {
		v.mu.Unlock()
		return fmt.Errorf("%w: cannot delete the current version", ErrProtected)
	}
	if _, ok := v.snapshots.getMeta(id); !ok {
		v.mu.Unlock()
		return fmt.Errorf("%w: version %s", ErrNotFound, id)
	}

	removed := v.removeVersionLocked(id)

	if err := v.persistAll(); err != nil {
		v.restoreRemovedLocked([]*removedVersion{removed})
		v.mu.Unlock()
		return err
	}

	v.met.VersionsDeletedTotal.Inc()
	v.met.VersionsRetained.Set(float64(v.snapshots.count()))
	v.log.Debug().Str("version_id", id).Msg("version deleted")

	listing := v.versionListingLocked()
	v.mu.Unlock()

	v.hub.EmitVersionsChanged(listing)
	return nil
}

var thumbnailPalette = []string{
	"#4F46E5", "#0EA5E9", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
}

// synthesizeThumbnail derives a placeholder preview from the element
// collection. Content drives it, so identical content yields identical
// thumbnails. Real pixels are the editor's job; this is a stand-in for
// list UIs.
func synthesizeThumbnail(elements []document.Element) string {
	payload, _ := json.Marshal(elements)
	sum := sha256.Sum256(payload)
	color := thumbnailPalette[int(sum[0])%len(thumbnailPalette)]

	svg := fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="120" height="90"><rect width="120" height="90" fill="%s"/><text x="60" y="53" text-anchor="middle" fill="#ffffff" font-size="28">%d</text></svg>`,
		color, len(elements))
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}
