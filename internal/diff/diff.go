// internal/diff/diff.go
package diff

import "draftvault/internal/document"

// Modification records an element present on both sides with at least one
// property change. Only the property names are reported; the caller resolves
// values if it wants to render a value-level diff.
type Modification struct {
	ElementID    string   `json:"element_id"`
	ChangedProps []string `json:"changed_props"`
}

// Result partitions two element collections by identity.
type Result struct {
	Added    []document.Element `json:"added"`
	Removed  []document.Element `json:"removed"`
	Modified []Modification     `json:"modified"`
}

// Summary holds the counts reported alongside a version comparison.
type Summary struct {
	AddedCount     int `json:"added_count"`
	RemovedCount   int `json:"removed_count"`
	ModifiedCount  int `json:"modified_count"`
	UnchangedCount int `json:"unchanged_count"`
}

// CompareResult is a Result plus its summary, as returned by CompareVersions.
type CompareResult struct {
	Result
	Summary Summary `json:"summary"`
}

// Diff computes the add/remove/modify delta from a to b. Elements present in
// both collections with no property differences are excluded from the result.
func Diff(a, b []document.Element) Result {
	aByID := make(map[string]document.Element, len(a))
	for _, e := range a {
		aByID[e.ID] = e
	}
	bByID := make(map[string]document.Element, len(b))
	for _, e := range b {
		bByID[e.ID] = e
	}

	var result Result

	for _, e := range b {
		old, exists := aByID[e.ID]
		if !exists {
			result.Added = append(result.Added, e)
			continue
		}
		if changed := old.ChangedProps(e); len(changed) > 0 {
			result.Modified = append(result.Modified, Modification{
				ElementID:    e.ID,
				ChangedProps: changed,
			})
		}
	}

	for _, e := range a {
		if _, exists := bByID[e.ID]; !exists {
			result.Removed = append(result.Removed, e)
		}
	}

	return result
}

// Compare runs Diff and fills in the summary counts. UnchangedCount is
// derived from A's size: whatever was neither removed nor modified.
func Compare(a, b []document.Element) CompareResult {
	result := Diff(a, b)
	return CompareResult{
		Result: result,
		Summary: Summary{
			AddedCount:     len(result.Added),
			RemovedCount:   len(result.Removed),
			ModifiedCount:  len(result.Modified),
			UnchangedCount: len(a) - len(result.Removed) - len(result.Modified),
		},
	}
}
