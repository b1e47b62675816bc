package middleware

import (
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics holds process-wide request counters.
type Metrics struct {
	Requests      atomic.Int64
	ClientErrors  atomic.Int64
	ServerErrors  atomic.Int64
	InFlight      atomic.Int64
	BytesIn       atomic.Int64
	BytesOut      atomic.Int64
	totalDuration atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Requests          int64   `json:"request_count"`
	ClientErrors      int64   `json:"client_error_count"`
	ServerErrors      int64   `json:"server_error_count"`
	InFlight          int64   `json:"in_flight"`
	BytesIn           int64   `json:"bytes_in"`
	BytesOut          int64   `json:"bytes_out"`
	MeanLatencyMillis float64 `json:"mean_latency_ms"`
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Requests:     m.Requests.Load(),
		ClientErrors: m.ClientErrors.Load(),
		ServerErrors: m.ServerErrors.Load(),
		InFlight:     m.InFlight.Load(),
		BytesIn:      m.BytesIn.Load(),
		BytesOut:     m.BytesOut.Load(),
	}
	if done := s.Requests - s.InFlight; done > 0 {
		s.MeanLatencyMillis = float64(m.totalDuration.Load()) / float64(done) / float64(time.Millisecond)
	}
	return s
}

// Middleware counts requests, error classes, payload sizes and latency.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.Requests.Add(1)
		m.InFlight.Add(1)
		if r.ContentLength > 0 {
			m.BytesIn.Add(r.ContentLength)
		}

		rw := newResponseWriter(w)
		defer func() {
			m.InFlight.Add(-1)
			m.BytesOut.Add(rw.written)
			m.totalDuration.Add(int64(time.Since(start)))
			switch {
			case rw.statusCode >= 500:
				m.ServerErrors.Add(1)
			case rw.statusCode >= 400:
				m.ClientErrors.Add(1)
			}
		}()
		next.ServeHTTP(rw, r)
	})
}
