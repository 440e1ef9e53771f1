package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "session_gateway_active_sessions",
		Help: "Number of open translation sessions",
	})

	totalSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_gateway_sessions_total",
		Help: "Total number of translation sessions started",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "session_gateway_session_duration_seconds",
		Help:    "Duration of translation sessions in seconds",
		Buckets: []float64{30, 60, 300, 600, 1200, 1800, 3600},
	})

	utterancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_gateway_utterances_total",
		Help: "Total number of utterances appended to transcripts",
	}, []string{"role"})

	// Transcription metrics
	transcriptionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_gateway_transcription_requests_total",
		Help: "Total number of transcription requests",
	}, []string{"status"}) // status: success, error, timeout, cancelled

	transcriptionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "session_gateway_transcription_latency_seconds",
		Help:    "Transcription and translation latency in seconds",
		Buckets: []float64{0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	})

	// Summary metrics
	summaryRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_gateway_summary_requests_total",
		Help: "Total number of clinical note summary requests",
	}, []string{"status"})

	summaryLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "session_gateway_summary_latency_seconds",
		Help:    "Clinical note generation latency in seconds",
		Buckets: []float64{0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	})

	// Gesture metrics
	gestureOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_gateway_gesture_outcomes_total",
		Help: "End-session gesture outcomes",
	}, []string{"outcome"}) // outcome: committed, snapped_back, cancelled

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "session_gateway_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_gateway_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})

	// Audio metrics
	audioBytesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_gateway_audio_bytes_total",
		Help: "Total audio bytes received from clients",
	})
)

// SessionMetrics tracks metrics for a single translation session
type SessionMetrics struct {
	sessionID          string
	startTime          time.Time
	transcriptionStart time.Time
	summaryStart       time.Time
	ended              bool
	mu                 sync.Mutex
}

// NewSessionMetrics creates a new metrics tracker for a session
func NewSessionMetrics(sessionID string) *SessionMetrics {
	return &SessionMetrics{
		sessionID: sessionID,
		startTime: time.Now(),
	}
}

// RecordSessionStart records the start of a session
func (m *SessionMetrics) RecordSessionStart() {
	activeSessions.Inc()
	totalSessions.Inc()
}

// RecordSessionEnd records the end of a session. Repeated calls are ignored.
func (m *SessionMetrics) RecordSessionEnd() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ended {
		return
	}
	m.ended = true
	activeSessions.Dec()
	sessionDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordTranscriptionStart records the start of a transcription turn
func (m *SessionMetrics) RecordTranscriptionStart() {
	m.mu.Lock()
	m.transcriptionStart = time.Now()
	m.mu.Unlock()
}

// RecordTranscriptionEnd records the outcome of a transcription turn
func (m *SessionMetrics) RecordTranscriptionEnd(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.transcriptionStart.IsZero() {
		transcriptionLatency.Observe(time.Since(m.transcriptionStart).Seconds())
		m.transcriptionStart = time.Time{}
	}
	transcriptionRequests.WithLabelValues(status).Inc()
}

// RecordSummaryStart records the start of note generation
func (m *SessionMetrics) RecordSummaryStart() {
	m.mu.Lock()
	m.summaryStart = time.Now()
	m.mu.Unlock()
}

// RecordSummaryEnd records the outcome of note generation
func (m *SessionMetrics) RecordSummaryEnd(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.summaryStart.IsZero() {
		summaryLatency.Observe(time.Since(m.summaryStart).Seconds())
		m.summaryStart = time.Time{}
	}

	status := "success"
	if !success {
		status = "error"
	}
	summaryRequests.WithLabelValues(status).Inc()
}

// RecordUtterance records an utterance appended for the given role
func (m *SessionMetrics) RecordUtterance(role string) {
	utterancesTotal.WithLabelValues(role).Inc()
}

// RecordGesture records an end-session gesture outcome
func (m *SessionMetrics) RecordGesture(outcome string) {
	gestureOutcomes.WithLabelValues(outcome).Inc()
}

// RecordError records an error
func (m *SessionMetrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordAudioBytes records audio bytes received from the client
func (m *SessionMetrics) RecordAudioBytes(bytes int64) {
	audioBytesReceived.Add(float64(bytes))
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
