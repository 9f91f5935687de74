package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"jan-server/services/conversation-api/internal/domain/resolver"
)

// Conversation-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "conversation_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "conversation_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Conversations
	ConversationsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "conversation_api",
			Name:      "conversations_created_total",
			Help:      "Conversations created, by how the resolver arrived at them",
		},
		[]string{"source"},
	)

	TargetsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "conversation_api",
			Name:      "targets_resolved_total",
			Help:      "Chat turns routed to a conversation, by resolution source",
		},
		[]string{"source"},
	)

	ThreadsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "conversation_api",
			Name:      "threads_created_total",
			Help:      "Threads created, root or branch",
		},
		[]string{"kind"},
	)

	MessagesAppendedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "conversation_api",
			Name:      "messages_appended_total",
			Help:      "Messages captured from chat turns",
		},
		[]string{"role"},
	)

	TurnCaptureFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "conversation_api",
			Name:      "turn_capture_failures_total",
			Help:      "Chat turns that could not be recorded",
		},
		[]string{"phase"},
	)

	ReplyExtractionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "conversation_api",
			Name:      "reply_extraction_total",
			Help:      "Assistant reply extractions by strategy",
		},
		[]string{"strategy"},
	)

	// Inference duration
	InferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "conversation_api",
			Name:      "inference_duration_seconds",
			Help:      "Upstream chat completion duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "model", "status"},
	)
)

// RecordRequest records an HTTP request with all relevant labels
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	statusStr := strconv.Itoa(status)
	RequestsTotal.WithLabelValues(method, endpoint, statusStr).Inc()
	RequestDuration.WithLabelValues(method, endpoint, statusStr).Observe(duration.Seconds())
}

// RecordInference records one upstream chat completion call.
func RecordInference(provider, model string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	InferenceDuration.WithLabelValues(provider, model, status).Observe(duration.Seconds())
}

// RecordThreadCreated counts a created thread.
func RecordThreadCreated(branch bool) {
	kind := "root"
	if branch {
		kind = "branch"
	}
	ThreadsCreatedTotal.WithLabelValues(kind).Inc()
}

// TurnObserver reports resolver events as prometheus counters.
type TurnObserver struct{}

var _ resolver.Observer = TurnObserver{}

func NewTurnObserver() TurnObserver {
	return TurnObserver{}
}

func (TurnObserver) ConversationCreated(source resolver.TargetSource) {
	ConversationsCreatedTotal.WithLabelValues(string(source)).Inc()
}

func (TurnObserver) TargetResolved(source resolver.TargetSource) {
	TargetsResolvedTotal.WithLabelValues(string(source)).Inc()
}

func (TurnObserver) MessageCaptured(role string) {
	MessagesAppendedTotal.WithLabelValues(role).Inc()
}

func (TurnObserver) CaptureFailed(phase string) {
	TurnCaptureFailuresTotal.WithLabelValues(phase).Inc()
}

func (TurnObserver) ReplyExtracted(strategy resolver.ExtractStrategy) {
	ReplyExtractionTotal.WithLabelValues(string(strategy)).Inc()
}
