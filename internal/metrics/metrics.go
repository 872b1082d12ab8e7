// Package metrics defines the Prometheus collectors of the chatbot.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_messages_total",
			Help: "Total number of customer messages by classified intent",
		},
		[]string{"intent"},
	)

	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_fallback_replies_total",
			Help: "Total number of fallback replies by failure reason",
		},
		[]string{"reason"},
	)

	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatbot_completion_duration_seconds",
			Help:    "Duration of completion calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
		[]string{"outcome"},
	)

	SelectedItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatbot_selected_items",
			Help:    "Number of menu items placed in the model context",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 30},
		},
		[]string{"intent"},
	)

	MenuReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_menu_reloads_total",
			Help: "Total number of menu reload attempts by status",
		},
		[]string{"status"},
	)

	MenuItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatbot_menu_items",
			Help: "Number of items in the active menu index",
		},
	)
)

// Fallback reasons.
const (
	ReasonTimeout   = "timeout"
	ReasonEmpty     = "empty"
	ReasonMalformed = "malformed"
	ReasonTransport = "transport"
)

// ObserveCompletion records a completion call.
func ObserveCompletion(elapsed time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	CompletionDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveReload records a menu reload attempt.
func ObserveReload(items int, err error) {
	if err != nil {
		MenuReloadsTotal.WithLabelValues("failure").Inc()
		return
	}
	MenuReloadsTotal.WithLabelValues("success").Inc()
	MenuItems.Set(float64(items))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
