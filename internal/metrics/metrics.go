// Package metrics — прикладные метрики ядра погашений (Prometheus).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Результат операции без ошибки.
const ResultOK = "ok"

var (
	// Operations — исходы Issue/VerifyPin/Finalize; result — код ошибки или "ok".
	Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "redemption",
		Name:      "operations_total",
		Help:      "Redemption protocol operations by outcome.",
	}, []string{"operation", "result"})

	// PointsSettled — сумма списанных баллов.
	PointsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "redemption",
		Name:      "points_settled_total",
		Help:      "Points debited by completed redemptions.",
	})

	// EventPublishFailures — события, которые не удалось опубликовать.
	EventPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "redemption",
		Name:      "event_publish_failures_total",
		Help:      "Domain events dropped because the broker rejected them.",
	}, []string{"type"})

	// TokensPurged — токены, удалённые janitor'ом.
	TokensPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "redemption",
		Name:      "tokens_purged_total",
		Help:      "Expired unused redemption tokens deleted by the janitor.",
	})

	// Panics — паники, перехваченные транспортом; transport — "grpc" или "http".
	Panics = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "redemption",
		Name:      "panics_total",
		Help:      "Handler panics recovered by the transport layer.",
	}, []string{"transport"})
)
