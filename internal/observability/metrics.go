package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics keeps in-process request counters keyed by route, method and
// outcome. Requests are counted under their final mapped status; failures
// additionally carry the domain error code computed by the error
// middleware.
type Metrics struct {
	mu            sync.Mutex
	requests      map[string]int64
	totalDuration map[string]time.Duration
	errors        map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requests:      make(map[string]int64),
		totalDuration: make(map[string]time.Duration),
		errors:        make(map[string]int64),
	}
}

// RecordRequest counts a completed request and accumulates its latency.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := requestKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[key]++
	m.totalDuration[key] += duration
}

// RecordError counts a request that failed with the given domain error code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[key]++
}

// RequestCount returns how many requests completed with the given status.
func (m *Metrics) RequestCount(path, method string, status int) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[requestKey(path, method, status)]
}

// ErrorCount returns how many requests failed with the given error code.
func (m *Metrics) ErrorCount(path, method, code string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[path+"|"+method+"|"+code]
}

func requestKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
