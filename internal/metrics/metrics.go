// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	MessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Chat messages submitted, by result.",
		},
		[]string{"result"},
	)
	ReactionsToggled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_reactions_toggled_total",
			Help: "Reaction toggles submitted, by result.",
		},
		[]string{"result"},
	)
	OpenViews = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_open_views",
			Help: "Conversation views currently open over WebSocket.",
		},
	)
	ResumeAnalyses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resume_analyses_total",
			Help: "Resume ATS analyses performed.",
		},
	)
	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Open chat WebSocket connections.",
		},
	)
)

func init() {
	prometheus.MustRegister(MessagesSent)
	prometheus.MustRegister(ReactionsToggled)
	prometheus.MustRegister(OpenViews)
	prometheus.MustRegister(ResumeAnalyses)
	prometheus.MustRegister(WSConnections)
}

// Result maps an error to the result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

func Handler() http.Handler {
	return promhttp.Handler()
}
