package observability

import (
	"strconv"
	"sync"
)

// Metrics provides basic in-memory counters for the ingestion pipeline
// and the HTTP surface.
type Metrics struct {
	mu           sync.Mutex
	pipelineOps  map[string]int64
	requestCount map[string]int64
	errorCount   map[string]int64
}

// Pipeline counter names.
const (
	CounterEmailsProcessed  = "emails_processed"
	CounterDuplicateEmails  = "duplicate_emails_skipped"
	CounterTicketsCreated   = "tickets_created"
	CounterTicketsReopened  = "tickets_reopened"
	CounterAutoResponses    = "auto_responses_sent"
	CounterEscalations      = "escalations"
	CounterEscalationErrors = "escalation_errors"
)

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		pipelineOps:  make(map[string]int64),
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
	}
}

// Incr increments a named pipeline counter.
func (m *Metrics) Incr(counter string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pipelineOps[counter]++
}

// Get returns the current value of a named pipeline counter.
func (m *Metrics) Get(counter string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pipelineOps[counter]
}

// RecordRequest increments counters for HTTP requests.
func (m *Metrics) RecordRequest(path, method string, status int) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments HTTP error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}
