package discovery

import (
	"sync"
	"time"

	"github.com/habhabhabs/aws-inventag/internal/models"
	"github.com/habhabhabs/aws-inventag/internal/utils/retry"
)

// Options configures the per-account discovery engine
type Options struct {
	MaxWorkers       int
	PageCap          int
	RateLimit        float64
	Retry            retry.Policy
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// DefaultOptions returns the documented defaults
func DefaultOptions() Options {
	return Options{
		MaxWorkers:       4,
		PageCap:          5,
		RateLimit:        10,
		Retry:            retry.Default(),
		BreakerThreshold: 5,
		BreakerCooldown:  time.Minute,
	}
}

// UnitResult is the outcome of a single (service, region) discovery unit.
// Units never raise into their caller; failures are encoded here.
type UnitResult struct {
	Service   string
	Region    string
	Resources []models.Resource
	Warnings  []string
	Duration  time.Duration
}

// SharedState is the only process-wide mutable state in the discovery hot
// path. It is owned by the run and passed into workers; never a global.
type SharedState struct {
	mu                   sync.RWMutex
	successfulOperations map[string]string
	failedServices       map[string]bool
}

// NewSharedState creates empty shared discovery state
func NewSharedState() *SharedState {
	return &SharedState{
		successfulOperations: make(map[string]string),
		failedServices:       make(map[string]bool),
	}
}

// SuccessfulOperation returns the known-good operation for a service
func (s *SharedState) SuccessfulOperation(service string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.successfulOperations[service]
	return op, ok
}

// RecordSuccess records the effective operation for a service. Only called
// after a successful non-empty response.
func (s *SharedState) RecordSuccess(service, operation string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successfulOperations[service] = operation
}

// MarkFailed adds a service to the failed set
func (s *SharedState) MarkFailed(service string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedServices[service] = true
}

// Failed reports whether a service has been marked failed
func (s *SharedState) Failed(service string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failedServices[service]
}
