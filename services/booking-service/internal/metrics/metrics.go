// Package metrics exposes the booking-service Prometheus counters.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	appointmentsBooked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotline",
			Name:      "appointments_booked_total",
			Help:      "Count of appointments successfully booked.",
		},
	)

	conflictsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotline",
			Name:      "conflicts_rejected_total",
			Help:      "Count of writes rejected because the interval was taken, by check layer.",
		},
		[]string{"layer"},
	)

	slotQueries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotline",
			Name:      "slot_queries_total",
			Help:      "Count of availability queries served.",
		},
	)

	blocksCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotline",
			Name:      "blocks_created_total",
			Help:      "Count of calendar blocks created.",
		},
	)

	statusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotline",
			Name:      "status_changes_total",
			Help:      "Count of appointment status transitions applied.",
		},
		[]string{"status"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(appointmentsBooked, conflictsRejected, slotQueries, blocksCreated, statusChanges)
	})
}

func IncAppointmentsBooked() {
	appointmentsBooked.Inc()
}

// IncConflictRejected records a rejected write; layer is "advisory" for the
// in-memory pre-check and "constraint" for the storage exclusion constraint.
func IncConflictRejected(layer string) {
	conflictsRejected.WithLabelValues(layer).Inc()
}

func IncSlotQueries() {
	slotQueries.Inc()
}

func IncBlocksCreated() {
	blocksCreated.Inc()
}

func IncStatusChange(status string) {
	statusChanges.WithLabelValues(status).Inc()
}
