package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faqbot_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "faqbot_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Conversation metrics
	Invocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faqbot_invocations_total",
			Help: "Total conversation turns by outcome",
		},
		[]string{"status"}, // "ok", "generation_error", "checkpoint_error", "cancelled"
	)

	TurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "faqbot_turn_duration_seconds",
			Help:    "End-to-end conversation turn duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 30},
		},
	)

	RetrievalFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faqbot_retrieval_fallbacks_total",
			Help: "Total retrievals answered with the fallback notice",
		},
	)

	// Knowledge store metrics
	DocumentsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faqbot_documents_ingested_total",
			Help: "Total documents ingested",
		},
	)

	DocumentsRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faqbot_documents_removed_total",
			Help: "Total documents removed",
		},
	)

	SimilaritySearches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faqbot_similarity_searches_total",
			Help: "Total similarity searches",
		},
	)

	// Outbound delivery metrics
	MessagesDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faqbot_messages_delivered_total",
			Help: "Total outbound WhatsApp messages by outcome",
		},
		[]string{"status"}, // "ok" or "error"
	)
)
