// internal/vault/branch.go
package vault

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"draftvault/internal/document"
)

func (v *Vault) newDefaultBranch() *Branch {
	return &Branch{
		ID:            uuid.New().String(),
		Name:          DefaultBranchName,
		CreatedAt:     time.Now(),
		HeadVersionID: v.currentVersionID,
		IsDefault:     true,
	}
}

func (v *Vault) defaultBranch() *Branch {
	for _, b := range v.branches {
		if b.IsDefault {
			return b
		}
	}
	return nil
}

// CreateBranch forks a new branch. When opts.FromVersionID is empty the
// fork point is the current version. The active branch is not changed.
func (v *Vault) CreateBranch(name string, opts BranchOptions) (*Branch, error) {
	v.mu.Lock()

	forkPoint := opts.FromVersionID
	if forkPoint == "" {
		forkPoint = v.currentVersionID
	} else if _, ok := v.snapshots.getMeta(forkPoint); !ok {
		v.mu.Unlock()
		return nil, fmt.Errorf("%w: version %s", ErrNotFound, forkPoint)
	}

	branch := &Branch{
		ID:                   uuid.New().String(),
		Name:                 name,
		Description:          opts.Description,
		CreatedAt:            time.Now(),
		CreatedFromVersionID: forkPoint,
		HeadVersionID:        forkPoint,
	}
	v.branches[branch.ID] = branch

	if err := v.persistBranches(); err != nil {
		delete(v.branches, branch.ID)
		v.mu.Unlock()
		return nil, err
	}

	v.met.BranchOpsTotal.WithLabelValues("create").Inc()
	v.met.BranchesRetained.Set(float64(len(v.branches)))
	v.log.Debug().
		Str("branch_id", branch.ID).
		Str("name", name).
		Str("fork_point", forkPoint).
		Msg("branch created")

	result := branch.clone()
	listing := v.branchListingLocked()
	v.mu.Unlock()

	v.hub.EmitBranchesChanged(listing)
	return result, nil
}

// SwitchBranch makes the branch active. When its head resolves to a stored
// snapshot, that snapshot's elements are returned as the new working state
// and the session's current version moves to the head. A nil return with no
// error means there was nothing to load: the caller keeps editing its
// current working state.
func (v *Vault) SwitchBranch(branchID string) ([]document.Element, error) {
	v.mu.Lock()

	branch, ok := v.branches[branchID]
	if !ok {
		v.mu.Unlock()
		return nil, fmt.Errorf("%w: branch %s", ErrNotFound, branchID)
	}

	prevBranch := v.currentBranchID
	prevVersion := v.currentVersionID
	v.currentBranchID = branch.ID

	var elements []document.Element
	if branch.HeadVersionID != "" {
		if restored, ok := v.snapshots.elementsCopy(branch.HeadVersionID); ok {
			elements = restored
			v.currentVersionID = branch.HeadVersionID
		}
	}

	if err := v.persistCurrent(); err != nil {
		v.currentBranchID = prevBranch
		v.currentVersionID = prevVersion
		v.mu.Unlock()
		return nil, err
	}

	v.met.BranchOpsTotal.WithLabelValues("switch").Inc()
	v.log.Debug().
		Str("branch_id", branch.ID).
		Str("name", branch.Name).
		Bool("loaded_head", elements != nil).
		Msg("branch switched")

	listing := v.branchListingLocked()
	v.mu.Unlock()

	v.hub.EmitBranchesChanged(listing)
	return elements, nil
}

// DeleteBranch removes a branch pointer. The default branch and the active
// branch are immortal; the versions the branch points at are never touched.
func (v *Vault) DeleteBranch(branchID string) error {
	v.mu.Lock()

	branch, ok := v.branches[branchID]
	if !ok {
		v.mu.Unlock()
		return fmt.Errorf("%w: branch %s", ErrNotFound, branchID)
	}
	if branch.IsDefault {
		v.mu.Unlock()
		return fmt.Errorf("%w: cannot delete the default branch", ErrProtected)
	}
	if branchID == v.currentBranchID {
		v.mu.Unlock()
		return fmt.Errorf("%w: cannot delete the active branch", ErrProtected)
	}

	delete(v.branches, branchID)

	if err := v.persistBranches(); err != nil {
		v.branches[branchID] = branch
		v.mu.Unlock()
		return err
	}

	v.met.BranchOpsTotal.WithLabelValues("delete").Inc()
	v.met.BranchesRetained.Set(float64(len(v.branches)))
	v.log.Debug().Str("branch_id", branchID).Str("name", branch.Name).Msg("branch deleted")

	listing := v.branchListingLocked()
	v.mu.Unlock()

	v.hub.EmitBranchesChanged(listing)
	return nil
}

// RenameBranch updates a branch's display name and description. Historical
// version metadata keeps the label it was created under.
func (v *Vault) RenameBranch(branchID, name, description string) error {
	v.mu.Lock()

	branch, ok := v.branches[branchID]
	if !ok {
		v.mu.Unlock()
		return fmt.Errorf("%w: branch %s", ErrNotFound, branchID)
	}

	prevName, prevDesc := branch.Name, branch.Description
	branch.Name = name
	branch.Description = description

	if err := v.persistBranches(); err != nil {
		branch.Name, branch.Description = prevName, prevDesc
		v.mu.Unlock()
		return err
	}

	v.met.BranchOpsTotal.WithLabelValues("rename").Inc()

	listing := v.branchListingLocked()
	v.mu.Unlock()

	v.hub.EmitBranchesChanged(listing)
	return nil
}

// GetBranches returns every branch, oldest first.
func (v *Vault) GetBranches() []*Branch {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.branchListingLocked()
}

// GetCurrentBranch returns the active branch.
func (v *Vault) GetCurrentBranch() *Branch {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.branches[v.currentBranchID].clone()
}
