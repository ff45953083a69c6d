// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransfersStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loan_transfers_started_total",
		Help: "Transfer protocol instances started, by operation.",
	}, []string{"operation"})

	TransfersSucceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loan_transfers_succeeded_total",
		Help: "Transfer protocol instances that reached their terminal stage successfully.",
	}, []string{"operation"})

	TransfersFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loan_transfers_failed_total",
		Help: "Transfer protocol instances whose external transfer or mutation failed.",
	}, []string{"operation"})

	LockConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loan_lock_conflicts_total",
		Help: "Operations rejected because the target loan was locked.",
	})
)
