// Package metrics defines the Prometheus collectors exported by the chat log
// engine's background workers.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "chatlog"

// Label values for Writes and WriteErrors.
const (
	OpAppendMessage   = "append_message"
	OpUpsertNote      = "upsert_note"
	OpUpdateNoteColor = "update_note_color"
	OpDeleteNote      = "delete_note"
)

// Label values for Searches.
const (
	SearchResults = "results"
	SearchError   = "error"
	SearchStale   = "stale"
)

// Metrics holds the engine's collectors.
type Metrics struct {
	// Writes counts statements applied by the insert worker, by op.
	Writes *prometheus.CounterVec
	// WriteErrors counts dropped write requests, by op.
	WriteErrors *prometheus.CounterVec
	// NoteLookups counts completed note lookups, by resulting state.
	NoteLookups *prometheus.CounterVec
	// Searches counts finished searches by outcome. Stale searches were
	// superseded and their results discarded.
	Searches *prometheus.CounterVec
	// QueueDepth is the number of requests waiting per queue.
	QueueDepth *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Write requests applied to the store.",
		}, []string{"op"}),
		WriteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_errors_total",
			Help:      "Write requests dropped after a statement error.",
		}, []string{"op"}),
		NoteLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "note_lookups_total",
			Help:      "Note lookups completed by the query worker.",
		}, []string{"result"}),
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Searches finished by the query worker.",
		}, []string{"outcome"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Requests waiting in each worker queue.",
		}, []string{"queue"}),
	}

	if reg != nil {
		reg.MustRegister(m.Writes, m.WriteErrors, m.NoteLookups, m.Searches, m.QueueDepth)
	}
	return m
}
