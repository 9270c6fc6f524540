// internal/vault/vault.go

// Package vault implements the document version and branch engine: it
// snapshots a design document over time, organizes snapshots into a version
// graph with named branches, diffs and restores prior states, and prunes
// low-value autosaves under capacity pressure.
package vault

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"draftvault/internal/config"
	"draftvault/internal/eventhub"
	"draftvault/internal/metrics"
	"draftvault/internal/persist"
)

// Vault is one engine instance, owning the history of a single open
// document. Not designed for concurrent multi-writer use; the mutex exists
// to serialize the autosave timer goroutine behind explicit API calls.
type Vault struct {
	mu    sync.Mutex
	store persist.Store
	cfg   config.Config
	log   zerolog.Logger
	met   *metrics.Metrics
	hub   *eventhub.Hub

	snapshots *snapshotStore
	branches  map[string]*Branch

	currentVersionID string
	currentBranchID  string
	versionCounter   int

	saver autoSaver
}

// Option configures a Vault.
type Option func(*Vault)

// WithLogger injects a structured logger. Defaults to a disabled logger.
func WithLogger(log zerolog.Logger) Option {
	return func(v *Vault) { v.log = log }
}

// WithMetrics injects engine metrics. Defaults to metrics on a private
// registry so tests and embedders that don't scrape pay nothing.
func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Vault) { v.met = m }
}

// New opens a vault over the given store, loading any persisted history and
// eagerly establishing the default branch.
func New(store persist.Store, cfg config.Config, opts ...Option) (*Vault, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	v := &Vault{
		store:     store,
		cfg:       cfg,
		log:       zerolog.Nop(),
		hub:       eventhub.New(),
		snapshots: newSnapshotStore(),
		branches:  make(map[string]*Branch),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.met == nil {
		v.met = metrics.New(prometheus.NewRegistry())
	}

	if err := v.load(); err != nil {
		return nil, err
	}

	if v.defaultBranch() == nil {
		branch := v.newDefaultBranch()
		v.branches[branch.ID] = branch
		v.currentBranchID = branch.ID
		if err := v.persistBranches(); err != nil {
			return nil, err
		}
		if err := v.persistCurrent(); err != nil {
			return nil, err
		}
	}
	if _, ok := v.branches[v.currentBranchID]; !ok {
		v.currentBranchID = v.defaultBranch().ID
	}

	v.met.VersionsRetained.Set(float64(v.snapshots.count()))
	v.met.BranchesRetained.Set(float64(len(v.branches)))

	v.log.Info().
		Int("versions", v.snapshots.count()).
		Int("branches", len(v.branches)).
		Msg("vault opened")

	return v, nil
}

// Subscribe registers a listener for version/branch change events and
// returns its unsubscribe function.
func (v *Vault) Subscribe(listener eventhub.Listener) (unsubscribe func()) {
	return v.hub.Subscribe(listener)
}

// Close stops the autosave timer. The store is owned by the caller and is
// not closed here.
func (v *Vault) Close() {
	v.StopAutoSave()
}

// --- persisted state ---

func (v *Vault) load() error {
	if data, ok, err := v.store.Get(persist.KeyVersions); err != nil {
		return fmt.Errorf("load versions: %w", err)
	} else if ok {
		var metas []*VersionMetadata
		if err := json.Unmarshal(data, &metas); err != nil {
			return fmt.Errorf("decode versions: %w", err)
		}
		for _, m := range metas {
			v.snapshots.meta[m.ID] = m
			if m.VersionNumber > v.versionCounter {
				v.versionCounter = m.VersionNumber
			}
		}
	}

	if data, ok, err := v.store.Get(persist.KeySnapshots); err != nil {
		return fmt.Errorf("load snapshots: %w", err)
	} else if ok {
		var records []*SnapshotRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("decode snapshots: %w", err)
		}
		for _, r := range records {
			v.snapshots.payloads[r.VersionID] = r
		}
	}

	if data, ok, err := v.store.Get(persist.KeyBranches); err != nil {
		return fmt.Errorf("load branches: %w", err)
	} else if ok {
		var branches []*Branch
		if err := json.Unmarshal(data, &branches); err != nil {
			return fmt.Errorf("decode branches: %w", err)
		}
		for _, b := range branches {
			v.branches[b.ID] = b
		}
	}

	if data, ok, err := v.store.Get(persist.KeyCurrentVersion); err != nil {
		return fmt.Errorf("load current version: %w", err)
	} else if ok {
		v.currentVersionID = string(data)
	}

	if data, ok, err := v.store.Get(persist.KeyCurrentBranch); err != nil {
		return fmt.Errorf("load current branch: %w", err)
	} else if ok {
		v.currentBranchID = string(data)
	}

	return nil
}

func (v *Vault) persistVersions() error {
	metas := v.snapshots.all()
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].VersionNumber < metas[j].VersionNumber
	})
	data, err := json.Marshal(metas)
	if err != nil {
		return fmt.Errorf("encode versions: %w", err)
	}
	if err := v.store.Set(persist.KeyVersions, data); err != nil {
		return fmt.Errorf("persist versions: %w", err)
	}
	return nil
}

func (v *Vault) persistSnapshots() error {
	records := make([]*SnapshotRecord, 0, len(v.snapshots.payloads))
	for _, r := range v.snapshots.payloads {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].VersionID < records[j].VersionID
	})
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode snapshots: %w", err)
	}
	if err := v.store.Set(persist.KeySnapshots, data); err != nil {
		return fmt.Errorf("persist snapshots: %w", err)
	}
	return nil
}

func (v *Vault) persistBranches() error {
	branches := make([]*Branch, 0, len(v.branches))
	for _, b := range v.branches {
		branches = append(branches, b)
	}
	sort.Slice(branches, func(i, j int) bool {
		return branches[i].CreatedAt.Before(branches[j].CreatedAt)
	})
	data, err := json.Marshal(branches)
	if err != nil {
		return fmt.Errorf("encode branches: %w", err)
	}
	if err := v.store.Set(persist.KeyBranches, data); err != nil {
		return fmt.Errorf("persist branches: %w", err)
	}
	return nil
}

func (v *Vault) persistCurrent() error {
	if err := v.store.Set(persist.KeyCurrentVersion, []byte(v.currentVersionID)); err != nil {
		return fmt.Errorf("persist current version: %w", err)
	}
	if err := v.store.Set(persist.KeyCurrentBranch, []byte(v.currentBranchID)); err != nil {
		return fmt.Errorf("persist current branch: %w", err)
	}
	return nil
}

func (v *Vault) persistAll() error {
	if err := v.persistVersions(); err != nil {
		return err
	}
	if err := v.persistSnapshots(); err != nil {
		return err
	}
	if err := v.persistBranches(); err != nil {
		return err
	}
	return v.persistCurrent()
}

// --- notifications ---

// versionListingLocked builds the payload pushed to version listeners.
func (v *Vault) versionListingLocked() []*VersionMetadata {
	metas := v.snapshots.all()
	out := make([]*VersionMetadata, len(metas))
	for i, m := range metas {
		out[i] = m.clone()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].VersionNumber > out[j].VersionNumber
	})
	return out
}

// branchListingLocked builds the payload pushed to branch listeners.
func (v *Vault) branchListingLocked() []*Branch {
	out := make([]*Branch, 0, len(v.branches))
	for _, b := range v.branches {
		out = append(out, b.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
