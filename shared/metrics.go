package shared

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ServiceMetrics tracks request counters for a collaborator client. The
// stats endpoint exposes a snapshot per service so a run's external-call
// health is visible without log spelunking.
type ServiceMetrics struct {
	ServiceName         string        `json:"service_name"`
	TotalRequests       int64         `json:"total_requests"`
	SuccessfulRequests  int64         `json:"successful_requests"`
	FailedRequests      int64         `json:"failed_requests"`
	TotalProcessingTime time.Duration `json:"total_processing_time"`
	LastRequestAt       time.Time     `json:"last_request_at"`

	mutex sync.Mutex
}

// NewServiceMetrics creates metrics for the named service.
func NewServiceMetrics(serviceName string) *ServiceMetrics {
	return &ServiceMetrics{ServiceName: serviceName}
}

// RecordRequest registers one request outcome and its duration.
func (m *ServiceMetrics) RecordRequest(success bool, processingTime time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.TotalRequests++
	if success {
		m.SuccessfulRequests++
	} else {
		m.FailedRequests++
	}
	m.TotalProcessingTime += processingTime
	m.LastRequestAt = time.Now()
}

// SuccessRate returns the percentage of successful requests.
func (m *ServiceMetrics) SuccessRate() float64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.TotalRequests == 0 {
		return 0
	}
	return float64(m.SuccessfulRequests) / float64(m.TotalRequests) * 100
}

// Snapshot returns a copy safe to serialize.
func (m *ServiceMetrics) Snapshot() ServiceMetrics {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return ServiceMetrics{
		ServiceName:         m.ServiceName,
		TotalRequests:       m.TotalRequests,
		SuccessfulRequests:  m.SuccessfulRequests,
		FailedRequests:      m.FailedRequests,
		TotalProcessingTime: m.TotalProcessingTime,
		LastRequestAt:       m.LastRequestAt,
	}
}

// LogSummary writes the current counters to the log.
func (m *ServiceMetrics) LogSummary() {
	snap := m.Snapshot()
	logrus.WithFields(logrus.Fields{
		"service_name":    snap.ServiceName,
		"total_requests":  snap.TotalRequests,
		"failed_requests": snap.FailedRequests,
		"success_rate":    m.SuccessRate(),
	}).Info("Service metrics summary")
}
