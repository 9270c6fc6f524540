// internal/metrics/metrics.go

// Package metrics provides Prometheus metrics for the version engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for one engine instance.
type Metrics struct {
	VersionsCreatedTotal *prometheus.CounterVec
	VersionsPrunedTotal  prometheus.Counter
	VersionsDeletedTotal prometheus.Counter
	RestoresTotal        prometheus.Counter
	ComparesTotal        prometheus.Counter
	AutoSaveTicksTotal   prometheus.Counter
	BranchOpsTotal       *prometheus.CounterVec
	VersionsRetained     prometheus.Gauge
	BranchesRetained     prometheus.Gauge
}

// New creates and registers all engine metrics against the given registerer.
// Pass prometheus.DefaultRegisterer outside of tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		VersionsCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftvault_versions_created_total",
				Help: "Total number of versions created",
			},
			[]string{"trigger"}, // manual, autosave, restore, milestone
		),
		VersionsPrunedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "draftvault_versions_pruned_total",
				Help: "Total number of autosave versions removed by retention",
			},
		),
		VersionsDeletedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "draftvault_versions_deleted_total",
				Help: "Total number of versions deleted by callers",
			},
		),
		RestoresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "draftvault_restores_total",
				Help: "Total number of restore operations",
			},
		),
		ComparesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "draftvault_compares_total",
				Help: "Total number of version comparisons",
			},
		),
		AutoSaveTicksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "draftvault_autosave_ticks_total",
				Help: "Total number of autosave timer ticks",
			},
		),
		BranchOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftvault_branch_ops_total",
				Help: "Total number of branch operations",
			},
			[]string{"op"}, // create, switch, delete, rename
		),
		VersionsRetained: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "draftvault_versions_retained",
				Help: "Number of versions currently retained",
			},
		),
		BranchesRetained: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "draftvault_branches_retained",
				Help: "Number of branches currently retained",
			},
		),
	}
}
