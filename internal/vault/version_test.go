// internal/vault/version_test.go
package vault

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"draftvault/internal/config"
	"draftvault/internal/persist"
)

func TestCreateVersionDeepCopyIsolation(t *testing.T) {
	v, _ := newTestVault(t)

	elements := testElements("a")
	created, err := v.CreateVersion(elements, CreateOptions{})
	if err != nil {
		t.Fatalf("CreateVersion failed: %v", err)
	}

	// Mutate the caller's collection in place
	elements[0].Props["fill"] = "green"
	elements[0].ID = "mutated"

	snap, err := v.GetVersion(created.ID)
	if err != nil {
		t.Fatalf("GetVersion failed: %v", err)
	}
	if snap.Elements[0].ID != "a" {
		t.Errorf("Expected stored id 'a', got '%s'", snap.Elements[0].ID)
	}
	if snap.Elements[0].Props["fill"] != "red" {
		t.Errorf("Expected stored fill 'red', got '%v'", snap.Elements[0].Props["fill"])
	}

	// Mutating what GetVersion returned doesn't reach the store either
	snap.Elements[0].Props["fill"] = "purple"
	again, _ := v.GetVersion(created.ID)
	if again.Elements[0].Props["fill"] != "red" {
		t.Error("GetVersion returned a live reference into the store")
	}
}

func TestCreateVersionMetadata(t *testing.T) {
	v, _ := newTestVault(t)

	first, err := v.CreateVersion(testElements("a"), CreateOptions{})
	if err != nil {
		t.Fatalf("CreateVersion failed: %v", err)
	}
	if first.ParentVersionID != "" {
		t.Errorf("Expected root version without parent, got '%s'", first.ParentVersionID)
	}
	if first.BranchName != DefaultBranchName {
		t.Errorf("Expected branch label '%s', got '%s'", DefaultBranchName, first.BranchName)
	}
	if first.Name != "Version 00001" {
		t.Errorf("Expected generated name 'Version 00001', got '%s'", first.Name)
	}
	if first.ElementCount != 1 {
		t.Errorf("Expected element count 1, got %d", first.ElementCount)
	}
	if first.Thumbnail == "" {
		t.Error("Expected a synthesized thumbnail")
	}

	second, _ := v.CreateVersion(testElements("a", "b"), CreateOptions{Name: "Named"})
	if second.ParentVersionID != first.ID {
		t.Errorf("Expected parent %s, got %s", first.ID, second.ParentVersionID)
	}
	if second.Name != "Named" {
		t.Errorf("Expected caller-supplied name kept, got '%s'", second.Name)
	}

	// Branch head advanced
	if head := v.GetCurrentBranch().HeadVersionID; head != second.ID {
		t.Errorf("Expected branch head %s, got %s", second.ID, head)
	}
}

func TestThumbnailDeterminism(t *testing.T) {
	v, _ := newTestVault(t)

	a, _ := v.CreateVersion(testElements("a", "b"), CreateOptions{})
	b, _ := v.CreateVersion(testElements("a", "b"), CreateOptions{})
	c, _ := v.CreateVersion(testElements("a", "b", "c"), CreateOptions{})

	if a.Thumbnail != b.Thumbnail {
		t.Error("Expected identical content to produce identical thumbnails")
	}
	if a.Thumbnail == c.Thumbnail {
		t.Error("Expected different content to produce a different thumbnail")
	}
}

func TestMonotonicNumbering(t *testing.T) {
	v, _ := newTestVault(t)

	first, _ := v.CreateVersion(testElements("a"), CreateOptions{})
	second, _ := v.CreateVersion(testElements("b"), CreateOptions{})

	if err := v.DeleteVersion(first.ID); err != nil {
		t.Fatalf("DeleteVersion failed: %v", err)
	}

	third, _ := v.CreateVersion(testElements("c"), CreateOptions{})

	if !(first.VersionNumber < second.VersionNumber && second.VersionNumber < third.VersionNumber) {
		t.Errorf("Expected strictly increasing numbers, got %d, %d, %d",
			first.VersionNumber, second.VersionNumber, third.VersionNumber)
	}
	if third.VersionNumber == first.VersionNumber {
		t.Error("Version numbers must never be reused after deletion")
	}
}

func TestDeleteVersionReparentsChildren(t *testing.T) {
	v, _ := newTestVault(t)

	grandparent, _ := v.CreateVersion(testElements("a"), CreateOptions{})
	middle, _ := v.CreateVersion(testElements("a", "b"), CreateOptions{})
	child, _ := v.CreateVersion(testElements("a", "b", "c"), CreateOptions{})
	_ = child

	// Move off the middle version so it is deletable
	leaf, _ := v.CreateVersion(testElements("d"), CreateOptions{})
	_ = leaf

	if err := v.DeleteVersion(middle.ID); err != nil {
		t.Fatalf("DeleteVersion failed: %v", err)
	}

	for _, m := range v.GetVersions(Filter{}) {
		if m.ParentVersionID == middle.ID {
			t.Errorf("Version %s still references deleted parent", m.ID)
		}
		if m.ID == child.ID && m.ParentVersionID != grandparent.ID {
			t.Errorf("Expected child re-parented to %s, got %s", grandparent.ID, m.ParentVersionID)
		}
	}
}

func TestDeleteCurrentVersionRejected(t *testing.T) {
	v, _ := newTestVault(t)

	created, _ := v.CreateVersion(testElements("a"), CreateOptions{})

	err := v.DeleteVersion(created.ID)
	if !errors.Is(err, ErrProtected) {
		t.Errorf("Expected ErrProtected, got %v", err)
	}
	if _, err := v.GetVersion(created.ID); err != nil {
		t.Error("Expected current version to survive the rejected delete")
	}

	if err := v.DeleteVersion("no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestRetentionPrunesOldestAutoSaves(t *testing.T) {
	store := persist.NewMemoryStore()
	cfg := config.Default()
	cfg.MaxVersionsPerProject = 12
	cfg.MaxAutoSaveVersions = 8
	cfg.PruneMargin = 4

	v, err := New(store, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer v.Close()

	// Fill to the ceiling with autosaves
	for i := 0; i < cfg.MaxVersionsPerProject; i++ {
		if _, err := v.CreateVersion(testElements("a"), CreateOptions{IsAutoSave: true}); err != nil {
			t.Fatalf("CreateVersion %d failed: %v", i, err)
		}
	}

	next, err := v.CreateVersion(testElements("b"), CreateOptions{IsAutoSave: true})
	if err != nil {
		t.Fatalf("CreateVersion at ceiling failed: %v", err)
	}

	// Pruning brings prunable autosaves down to MaxAutoSaveVersions minus
	// PruneMargin; the version that was current during the prune and the
	// one just created come on top.
	total := len(v.GetVersions(Filter{}))
	expected := cfg.MaxAutoSaveVersions - cfg.PruneMargin + 2
	if total != expected {
		t.Errorf("Expected %d versions after pruning, got %d", expected, total)
	}
	if total > cfg.MaxAutoSaveVersions+cfg.PruneMargin+1 {
		t.Errorf("Retention bound exceeded: %d versions", total)
	}

	// The new version survived and is current
	current, _ := v.GetCurrentVersion()
	if current.ID != next.ID {
		t.Errorf("Expected current version %s, got %s", next.ID, current.ID)
	}
}

func TestPruneRollbackOnPersistFailure(t *testing.T) {
	store := persist.NewMemoryStore()
	cfg := config.Default()
	cfg.MaxVersionsPerProject = 6
	cfg.MaxAutoSaveVersions = 4
	cfg.PruneMargin = 2

	v, err := New(store, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer v.Close()

	for i := 0; i < cfg.MaxVersionsPerProject; i++ {
		if _, err := v.CreateVersion(testElements("a"), CreateOptions{IsAutoSave: true}); err != nil {
			t.Fatalf("CreateVersion %d failed: %v", i, err)
		}
	}
	before := v.GetVersions(Filter{})
	head := v.GetCurrentBranch().HeadVersionID

	store.FailWrites = true
	if _, err := v.CreateVersion(testElements("b"), CreateOptions{IsAutoSave: true}); err == nil {
		t.Fatal("Expected hard error when the store rejects writes")
	}
	store.FailWrites = false

	// The prune that ran before the failed persist was rolled back too
	after := v.GetVersions(Filter{})
	if len(after) != len(before) {
		t.Fatalf("Expected %d versions restored after rollback, got %d", len(before), len(after))
	}
	ids := make(map[string]bool, len(after))
	for _, m := range after {
		ids[m.ID] = true
	}
	for _, m := range before {
		if !ids[m.ID] {
			t.Errorf("Version %s lost by rolled-back prune", m.ID)
		}
	}
	// Graph links restored: every parent resolves, the head is unchanged
	for _, m := range after {
		if m.ParentVersionID != "" && !ids[m.ParentVersionID] {
			t.Errorf("Version %s left with dangling parent %s", m.ID, m.ParentVersionID)
		}
	}
	if got := v.GetCurrentBranch().HeadVersionID; got != head {
		t.Errorf("Expected branch head restored to %s, got %s", head, got)
	}

	// The vault still works once the store recovers
	if _, err := v.CreateVersion(testElements("c"), CreateOptions{IsAutoSave: true}); err != nil {
		t.Fatalf("CreateVersion after recovery failed: %v", err)
	}
}

func TestDeleteVersionRollbackOnPersistFailure(t *testing.T) {
	v, store := newTestVault(t)

	first, _ := v.CreateVersion(testElements("a"), CreateOptions{})
	second, _ := v.CreateVersion(testElements("b"), CreateOptions{})

	store.FailWrites = true
	if err := v.DeleteVersion(first.ID); err == nil {
		t.Fatal("Expected hard error when the store rejects writes")
	}
	store.FailWrites = false

	if _, err := v.GetVersion(first.ID); err != nil {
		t.Error("Expected version restored after failed delete")
	}
	snap, _ := v.GetVersion(second.ID)
	if snap.Metadata.ParentVersionID != first.ID {
		t.Errorf("Expected re-parenting undone, got parent %s", snap.Metadata.ParentVersionID)
	}
}

func TestGetVersionWithoutPayload(t *testing.T) {
	store := persist.NewMemoryStore()

	// Durable state holding metadata but no snapshot payload must not crash
	// the engine on load or read.
	metas := []*VersionMetadata{{ID: "v1", VersionNumber: 1, Name: "Stub", Timestamp: time.Now()}}
	data, err := json.Marshal(metas)
	if err != nil {
		t.Fatal(err)
	}
	store.Set(persist.KeyVersions, data)

	v, err := New(store, config.Default())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer v.Close()

	snap, err := v.GetVersion("v1")
	if err != nil {
		t.Fatalf("GetVersion failed: %v", err)
	}
	if len(snap.Elements) != 0 {
		t.Errorf("Expected empty elements for payloadless version, got %d", len(snap.Elements))
	}

	if _, err := v.ExportHistory(); err != nil {
		t.Fatalf("ExportHistory failed: %v", err)
	}
}

func TestRetentionSafety(t *testing.T) {
	store := persist.NewMemoryStore()
	cfg := config.Default()
	cfg.MaxVersionsPerProject = 6
	cfg.MaxAutoSaveVersions = 3
	cfg.PruneMargin = 2

	v, err := New(store, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer v.Close()

	milestone, _ := v.CreateVersion(testElements("a"), CreateOptions{IsMilestone: true, IsAutoSave: true})
	manual, _ := v.CreateVersion(testElements("b"), CreateOptions{Name: "Checkpoint"})

	for i := 0; i < cfg.MaxVersionsPerProject; i++ {
		v.CreateVersion(testElements("c"), CreateOptions{IsAutoSave: true})
	}

	remaining := v.GetVersions(Filter{})
	ids := make(map[string]bool, len(remaining))
	for _, m := range remaining {
		ids[m.ID] = true
	}

	if !ids[milestone.ID] {
		t.Error("Pruning removed a milestone version")
	}
	if !ids[manual.ID] {
		t.Error("Pruning removed a manually-named version")
	}
	current, _ := v.GetCurrentVersion()
	if !ids[current.ID] {
		t.Error("Pruning removed the current version")
	}
}

func TestRetentionAllManualProceedsAnyway(t *testing.T) {
	store := persist.NewMemoryStore()
	cfg := config.Default()
	cfg.MaxVersionsPerProject = 4
	cfg.MaxAutoSaveVersions = 3
	cfg.PruneMargin = 1

	v, err := New(store, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer v.Close()

	for i := 0; i < cfg.MaxVersionsPerProject; i++ {
		v.CreateVersion(testElements("a"), CreateOptions{Name: "Manual"})
	}

	// The ceiling is a soft target: all-manual history still accepts writes
	if _, err := v.CreateVersion(testElements("b"), CreateOptions{Name: "One more"}); err != nil {
		t.Fatalf("Expected creation past the ceiling to proceed, got %v", err)
	}
	if got := len(v.GetVersions(Filter{})); got != cfg.MaxVersionsPerProject+1 {
		t.Errorf("Expected %d versions, got %d", cfg.MaxVersionsPerProject+1, got)
	}
}

func TestUpdateVersionAllowList(t *testing.T) {
	v, _ := newTestVault(t)

	created, _ := v.CreateVersion(testElements("a"), CreateOptions{})

	name := "Homepage rework"
	desc := "Before the color experiment"
	tags := []string{"keeper"}
	milestone := true
	err := v.UpdateVersion(created.ID, VersionUpdate{
		Name:        &name,
		Description: &desc,
		Tags:        &tags,
		IsMilestone: &milestone,
	})
	if err != nil {
		t.Fatalf("UpdateVersion failed: %v", err)
	}

	snap, _ := v.GetVersion(created.ID)
	m := snap.Metadata
	if m.Name != name || m.Description != desc || !m.IsMilestone {
		t.Errorf("Expected cosmetic fields updated, got %+v", m)
	}
	if len(m.Tags) != 1 || m.Tags[0] != "keeper" {
		t.Errorf("Expected tags [keeper], got %v", m.Tags)
	}
	// Content untouched
	if len(snap.Elements) != 1 || snap.Elements[0].ID != "a" {
		t.Error("UpdateVersion must not touch snapshot content")
	}

	if err := v.UpdateVersion("no-such-id", VersionUpdate{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestGetVersionsFilter(t *testing.T) {
	v, _ := newTestVault(t)

	v.CreateVersion(testElements("a"), CreateOptions{
		Name:   "Homepage draft",
		Author: Author{ID: "u1", Name: "Dana"},
	})
	v.CreateVersion(testElements("a", "b"), CreateOptions{
		Name:        "Pricing page",
		Description: "final layout",
		Author:      Author{ID: "u2", Name: "Sam"},
		IsMilestone: true,
		Tags:        []string{"launch"},
	})
	v.CreateVersion(testElements("c"), CreateOptions{IsAutoSave: true, Author: Author{ID: "u1"}})

	t.Run("All", func(t *testing.T) {
		all := v.GetVersions(Filter{})
		if len(all) != 3 {
			t.Fatalf("Expected 3 versions, got %d", len(all))
		}
		// Newest first
		if all[0].VersionNumber < all[1].VersionNumber {
			t.Error("Expected newest-first ordering")
		}
	})

	t.Run("ByAuthor", func(t *testing.T) {
		if got := len(v.GetVersions(Filter{AuthorID: "u1"})); got != 2 {
			t.Errorf("Expected 2 versions by u1, got %d", got)
		}
	})

	t.Run("MilestoneOnly", func(t *testing.T) {
		got := v.GetVersions(Filter{MilestoneOnly: true})
		if len(got) != 1 || got[0].Name != "Pricing page" {
			t.Errorf("Expected only the milestone, got %v", got)
		}
	})

	t.Run("ByTag", func(t *testing.T) {
		if got := len(v.GetVersions(Filter{Tags: []string{"launch"}})); got != 1 {
			t.Errorf("Expected 1 tagged version, got %d", got)
		}
	})

	t.Run("Search", func(t *testing.T) {
		if got := len(v.GetVersions(Filter{Search: "homepage"})); got != 1 {
			t.Errorf("Expected 1 match for 'homepage', got %d", got)
		}
		// Description participates in the search
		if got := len(v.GetVersions(Filter{Search: "FINAL"})); got != 1 {
			t.Errorf("Expected 1 case-insensitive description match, got %d", got)
		}
	})

	t.Run("ByBranch", func(t *testing.T) {
		if got := len(v.GetVersions(Filter{BranchName: DefaultBranchName})); got != 3 {
			t.Errorf("Expected 3 versions on main, got %d", got)
		}
		if got := len(v.GetVersions(Filter{BranchName: "nope"})); got != 0 {
			t.Errorf("Expected 0 versions on unknown branch, got %d", got)
		}
	})

	t.Run("DateRange", func(t *testing.T) {
		future := time.Now().Add(time.Hour)
		if got := len(v.GetVersions(Filter{After: &future})); got != 0 {
			t.Errorf("Expected 0 versions after the future cutoff, got %d", got)
		}
		if got := len(v.GetVersions(Filter{Before: &future})); got != 3 {
			t.Errorf("Expected 3 versions before the future cutoff, got %d", got)
		}
	})
}
