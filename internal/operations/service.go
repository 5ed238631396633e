// Package operations holds the training engine: attendance ledger, progress
// aggregation, certification gate, enrollment and the catalog and user flows
// that feed them. Callers authorize; operations trust their inputs' actors.
package operations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"astba/training/internal/logging"
	"astba/training/internal/store"
)

// StatsCache stores encoded formation statistics. Implementations may drop
// entries at any time. Get reports the generation the entry belongs to, also
// on a miss; Set under a generation older than the last Invalidate must never
// be returned by a later Get.
type StatsCache interface {
	Get(ctx context.Context, formationID string) ([]byte, int64, bool, error)
	Set(ctx context.Context, formationID string, generation int64, payload []byte) error
	Invalidate(ctx context.Context, formationID string) error
}

type Policy struct {
	// EnforceBulkCapacity makes EnrollAcrossFormation skip full sessions.
	EnforceBulkCapacity    bool
	BulkEnrollConcurrency  int
	DefaultMaxParticipants int
}

func DefaultPolicy() Policy {
	return Policy{BulkEnrollConcurrency: 8, DefaultMaxParticipants: 30}
}

type Service struct {
	store  store.Store
	cache  StatsCache
	log    *zap.Logger
	now    func() time.Time
	newID  func() string
	policy Policy
}

type Option func(*Service)

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithCache(cache StatsCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithPolicy(policy Policy) Option {
	return func(s *Service) { s.policy = policy }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		log:    zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		policy: DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.policy.BulkEnrollConcurrency <= 0 {
		s.policy.BulkEnrollConcurrency = 1
	}
	if s.policy.DefaultMaxParticipants <= 0 {
		s.policy.DefaultMaxParticipants = 30
	}
	return s
}

func (s *Service) Policy() Policy {
	return s.policy
}

// storeErr wraps an unexpected store failure. ErrNotFound is mapped to the
// given not-found code when one is provided.
func (s *Service) storeErr(op string, err error, notFoundCode string) error {
	if notFoundCode != "" && errors.Is(err, store.ErrNotFound) {
		return notFound(notFoundCode)
	}
	var opErr *Error
	if errors.As(err, &opErr) {
		return err
	}
	s.log.Error("store failure", zap.String(logging.FieldOperation, op), zap.NamedError(logging.FieldError, err))
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Service) invalidateStats(ctx context.Context, formationID string) {
	if s.cache == nil || formationID == "" {
		return
	}
	if err := s.cache.Invalidate(ctx, formationID); err != nil {
		s.log.Warn("stats cache invalidate failed",
			zap.String(logging.FieldFormationID, formationID),
			zap.NamedError(logging.FieldError, err),
		)
	}
}

// percent rounds attended/total*100 half up; 0 when total is 0.
func percent(attended, total int) int {
	if total <= 0 {
		return 0
	}
	return (attended*200 + total) / (2 * total)
}
