// internal/vault/models.go
package vault

import (
	"time"

	"draftvault/internal/document"
)

// Author identifies who produced a version. Informational only.
type Author struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// VersionMetadata is one node in the version graph.
type VersionMetadata struct {
	ID              string `json:"id"`
	VersionNumber   int    `json:"version_number"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	ParentVersionID string `json:"parent_version_id,omitempty"`
	// BranchName is the display name of the branch active at creation.
	// A label, not a live reference: renaming the branch later does not
	// rewrite it.
	BranchName   string    `json:"branch_name"`
	Timestamp    time.Time `json:"timestamp"`
	Author       Author    `json:"author,omitempty"`
	ElementCount int       `json:"element_count"`
	Tags         []string  `json:"tags,omitempty"`
	IsAutoSave   bool      `json:"is_auto_save"`
	IsMilestone  bool      `json:"is_milestone"`
	Thumbnail    string    `json:"thumbnail,omitempty"`
}

// HasTag reports whether the metadata carries the given tag.
func (m *VersionMetadata) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (m *VersionMetadata) clone() *VersionMetadata {
	cp := *m
	if m.Tags != nil {
		cp.Tags = append([]string(nil), m.Tags...)
	}
	return &cp
}

// VersionSnapshot pairs version metadata with the deep-copied document
// payload as it existed at creation time. Immutable once stored.
type VersionSnapshot struct {
	Metadata *VersionMetadata         `json:"metadata"`
	Elements []document.Element       `json:"elements"`
	Canvas   *document.CanvasSettings `json:"canvas,omitempty"`
}

// Branch is a named pointer into the version graph.
type Branch struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	// CreatedFromVersionID is the fork point, fixed at creation.
	CreatedFromVersionID string `json:"created_from_version_id,omitempty"`
	// HeadVersionID advances as versions are created on this branch.
	HeadVersionID string `json:"head_version_id,omitempty"`
	IsDefault     bool   `json:"is_default"`
}

func (b *Branch) clone() *Branch {
	cp := *b
	return &cp
}

// TagRestored marks versions produced by a restore operation.
const TagRestored = "restored"

// DefaultBranchName is the name given to the eagerly created default branch.
const DefaultBranchName = "main"

// CreateOptions controls version creation.
type CreateOptions struct {
	Name        string
	Description string
	Author      Author
	Tags        []string
	IsAutoSave  bool
	IsMilestone bool
	Canvas      *document.CanvasSettings
}

// RestoreOptions controls restore behavior.
type RestoreOptions struct {
	// SelectedElementIDs restricts the restored collection to these
	// elements when non-empty (partial restore). Merging the subset back
	// into the live document is the caller's job.
	SelectedElementIDs []string
	// CreateNewVersion records the restored state as a new version tagged
	// "restored", making the restore itself revertible.
	CreateNewVersion bool
	Author           Author
}

// BranchOptions controls branch creation.
type BranchOptions struct {
	// FromVersionID is the fork point; the current version when empty.
	FromVersionID string
	Description   string
}

// VersionUpdate is the cosmetic metadata allow-list. Nil fields are left
// unchanged; content fields are write-once and cannot be updated.
type VersionUpdate struct {
	Name        *string
	Description *string
	Tags        *[]string
	IsMilestone *bool
}

// Filter narrows GetVersions results. Zero-valued fields match everything.
type Filter struct {
	BranchName    string
	AuthorID      string
	After         *time.Time
	Before        *time.Time
	Tags          []string
	MilestoneOnly bool
	// Search is a case-insensitive substring match over name and
	// description.
	Search string
}

// HistoryBundle is the export/import interchange format: every version,
// snapshot payload, branch, and the session pointers.
type HistoryBundle struct {
	FormatVersion  int                `json:"format_version"`
	ExportedAt     time.Time          `json:"exported_at"`
	Versions       []*VersionMetadata `json:"versions"`
	Snapshots      []*SnapshotRecord  `json:"snapshots"`
	Branches       []*Branch          `json:"branches"`
	CurrentVersion string             `json:"current_version,omitempty"`
	CurrentBranch  string             `json:"current_branch,omitempty"`
	HighestVersion int                `json:"highest_version"`
}

// SnapshotRecord is a snapshot payload keyed by version id, the shape both
// the durable store and history bundles use.
type SnapshotRecord struct {
	VersionID string                   `json:"version_id"`
	Elements  []document.Element       `json:"elements"`
	Canvas    *document.CanvasSettings `json:"canvas,omitempty"`
}
