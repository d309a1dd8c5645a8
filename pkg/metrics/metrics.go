// Package metrics exposes Prometheus counters for catalog operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Entity lifecycle metrics
	EntityWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_entity_writes_total",
		Help: "Total entity write operations, by entity type and operation",
	}, []string{"entity_type", "operation"})

	EntityDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_entity_deletes_total",
		Help: "Total entity delete operations, by entity type and mode",
	}, []string{"entity_type", "mode"})

	EntityReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_entity_reads_total",
		Help: "Total entity read operations, by entity type and operation",
	}, []string{"entity_type", "operation"})

	VersionSnapshots = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_version_snapshots_total",
		Help: "Total version snapshots written, by entity type",
	}, []string{"entity_type"})

	WriteConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_write_conflicts_total",
		Help: "Total writes rejected by version precondition, by entity type",
	}, []string{"entity_type"})
)
