package presence

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/officewatch/officewatch/internal/logging"
	"github.com/officewatch/officewatch/internal/metrics"
	"github.com/officewatch/officewatch/internal/netscan"
	"github.com/officewatch/officewatch/internal/registry"
)

// User-facing sentences. The deployment audience reads Japanese; these
// strings are part of the external contract, not display cosmetics.
const (
	presentPrefix  = "オフィスにいるのは："
	presentJoiner  = "、"
	nobodyPresent  = "誰もオフィスにいません"
	checkFailedMsg = "デバイスリストの取得に失敗しました"
)

// Aggregator produces one deduplicated observation set per call.
type Aggregator interface {
	Aggregate(ctx context.Context) ([]netscan.Observation, error)
}

// UserLister lists all registered users in a workspace.
type UserLister interface {
	ListUsers(ctx context.Context, workspaceID string) ([]registry.User, error)
}

// Result is the joined output of one presence check. It is recomputed fresh
// on every request or trigger and never cached across cycles.
type Result struct {
	PresentUsers []registry.User       `json:"presentUsers"`
	Observations []netscan.Observation `json:"connectedDevices"`
}

// Message renders the human sentence listing present users by display name.
func (r *Result) Message() string {
	if len(r.PresentUsers) == 0 {
		return nobodyPresent
	}
	names := make([]string, len(r.PresentUsers))
	for i, u := range r.PresentUsers {
		names[i] = u.Name
	}
	return presentPrefix + strings.Join(names, presentJoiner)
}

// NobodyPresentMessage returns the fixed empty-office sentence.
func NobodyPresentMessage() string {
	return nobodyPresent
}

// CheckFailedMessage returns the fixed scan-failure sentence.
func CheckFailedMessage() string {
	return checkFailedMsg
}

// Service runs the full presence pipeline: double scan, registry fetch,
// match. Checks are serialized with a process-wide single-flight mutex so
// concurrent triggers can't race overlapping arp-scan subprocesses on the
// same interface.
type Service struct {
	aggregator  Aggregator
	users       UserLister
	workspaceID string
	logger      *logging.Logger
	prom        *metrics.PrometheusMetrics

	mu sync.Mutex
}

// NewService creates a presence service. prom may be nil.
func NewService(aggregator Aggregator, users UserLister, workspaceID string,
	logger *logging.Logger, prom *metrics.PrometheusMetrics) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		aggregator:  aggregator,
		users:       users,
		workspaceID: workspaceID,
		logger:      logger.WithComponent("presence"),
		prom:        prom,
	}
}

// Check performs one full presence check. trigger labels the metric by its
// origin ("http", "chat", "watch", "cli").
func (s *Service) Check(ctx context.Context, trigger string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()

	userList, err := s.users.ListUsers(ctx, s.workspaceID)
	if err != nil {
		s.logger.ErrorRegistry("Failed to list users for presence check", err)
		return nil, err
	}

	observations, err := s.aggregator.Aggregate(ctx)
	if err != nil {
		if s.prom != nil {
			s.prom.ObserveSweep("", "error", time.Since(start))
		}
		return nil, err
	}

	result := &Result{
		PresentUsers: Match(observations, userList),
		Observations: observations,
	}

	metrics.RecordPresenceCheck(len(result.Observations), len(result.PresentUsers), trigger)
	if s.prom != nil {
		s.prom.ObserveSweep("", "success", time.Since(start))
		s.prom.ObservePresence(trigger, len(result.Observations), len(result.PresentUsers))
	}

	s.logger.Info("Presence check complete",
		"trigger", trigger,
		"devices", len(result.Observations),
		"present", len(result.PresentUsers),
		"duration", time.Since(start))

	return result, nil
}
