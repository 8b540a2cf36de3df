package dlock

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// lock attempts by outcome (acquired, busy, cancelled, error)
	lockAcquireTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlock_lock_acquire_total",
			Help: "total number of lock attempts",
		},
		[]string{"status"},
	)

	// time from entering Lock until it returned with the lock held
	lockWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dlock_lock_wait_duration_seconds",
			Help:    "time taken to acquire a lock",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
	)

	lockReleaseTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dlock_lock_release_total",
			Help: "total number of lock releases",
		},
	)

	// connected sessions of this process
	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dlock_sessions_active",
			Help: "current number of connected sessions",
		},
	)

	sessionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlock_session_events_total",
			Help: "session state transitions observed",
		},
		[]string{"state"},
	)

	watchEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlock_watch_events_total",
			Help: "watch events handed to the dispatcher",
		},
		[]string{"type"},
	)

	// lock-acquired notifications dropped because the processed marker was already ours
	duplicateSuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dlock_lock_acquired_suppressed_total",
			Help: "duplicate lock acquired notifications suppressed",
		},
	)
)
