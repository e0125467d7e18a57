package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var classifierAPIDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "murmur_classifier_api_duration_sec",
	Help: "Duration of text classifier API calls",
})

var classifierAPICount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "murmur_classifier_api_count",
	Help: "Number of text classifier API calls, by HTTP status code",
}, []string{"status"})

var decisionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "murmur_moderation_decisions_total",
	Help: "Moderation decisions, by content kind, severity and reason",
}, []string{"kind", "severity", "reason"})
