// Package metrics defines and registers all custom Prometheus metrics for the
// kron goal service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package init
// (promauto) and exposed by the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kron"

// ── Goal metrics ──────────────────────────────────────────────────────────────

// GoalsCreatedTotal counts goals written to the private store.
// Labels:
//   - type: "one", "daily" or "weekly"
//   - visibility: "public" or "private"
var GoalsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "goals_created_total",
		Help:      "Total number of goals created, by type and visibility.",
	},
	[]string{"type", "visibility"},
)

// ── Mirror metrics ────────────────────────────────────────────────────────────

// MirrorWritesTotal counts successful writes to the public feed.
// Label:
//   - op: "upsert" or "delete"
var MirrorWritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mirror_writes_total",
		Help:      "Total number of public mirror writes, by operation.",
	},
	[]string{"op"},
)

// MirrorSyncFailuresTotal counts mirror writes that failed after the private
// write succeeded, leaving the feed out of sync until reconciled.
// Label:
//   - step: "mirror_upsert" or "mirror_delete"
var MirrorSyncFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mirror_sync_failures_total",
		Help:      "Total number of mirror writes that failed after the private write settled.",
	},
	[]string{"step"},
)

// RenamesPropagatedTotal counts completed username renames.
var RenamesPropagatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "renames_propagated_total",
		Help:      "Total number of username renames propagated to the public feed.",
	},
)

// MirrorsRenamedTotal counts mirrors touched by rename batches.
var MirrorsRenamedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mirrors_renamed_total",
		Help:      "Total number of mirrors whose author name was rewritten by a rename.",
	},
)

// ReconcileActionsTotal counts repairs applied by the reconciliation sweep.
// Label:
//   - action: "upsert" or "delete"
var ReconcileActionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_actions_total",
		Help:      "Total number of mirror repairs applied by reconciliation.",
	},
	[]string{"action"},
)

// ReconcileQueueDepth tracks pending reconcile requests per dispatcher worker.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var ReconcileQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "reconcile_queue_depth",
		Help:      "Current number of reconcile requests pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── Countdown metrics ─────────────────────────────────────────────────────────

// CountdownStreamsActive tracks open countdown SSE streams (one ticker each).
var CountdownStreamsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "countdown_streams_active",
		Help:      "Current number of live countdown streams.",
	},
)

// ── Feed metrics ──────────────────────────────────────────────────────────────

// FeedStreamsActive tracks open public feed SSE streams.
var FeedStreamsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feed_streams_active",
		Help:      "Current number of live public feed streams.",
	},
)
