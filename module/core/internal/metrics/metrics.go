package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	GeofenceBroadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geofence_broadcasts_total",
			Help: "Geofence broadcasts received, by outcome",
		},
		[]string{"outcome"},
	)

	GeofenceNotificationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "geofence_listener_notifications_total",
			Help: "Total number of listener callbacks invoked for geofence transitions",
		},
	)

	HistoryRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_records_total",
			Help: "History records persisted, by kind",
		},
		[]string{"kind"},
	)

	HistoryPublishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_publish_total",
			Help: "History publish attempts, by result",
		},
		[]string{"result"},
	)

	HistoryPublishDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "history_publish_duration_seconds",
			Help:    "Duration of history transport calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	ActionsPresentedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actions_presented_total",
			Help: "Actions presented on geofence transitions, by result",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(GeofenceBroadcastsTotal)
		prometheus.MustRegister(GeofenceNotificationsTotal)
		prometheus.MustRegister(HistoryRecordsTotal)
		prometheus.MustRegister(HistoryPublishTotal)
		prometheus.MustRegister(HistoryPublishDuration)
		prometheus.MustRegister(ActionsPresentedTotal)
	})
}
