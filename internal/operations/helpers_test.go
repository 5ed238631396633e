package operations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"astba/training/internal/memdb"
	"astba/training/internal/model"
)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memdb.Store
	svc   *Service
	clock *clock
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type sequence struct {
	mu sync.Mutex
	n  int
}

func (s *sequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("id-%04d", s.n)
}

type memCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	generations map[string]int64
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, generations: map[string]int64{}}
}

func cacheKey(formationID string, generation int64) string {
	return fmt.Sprintf("%s:%d", formationID, generation)
}

func (c *memCache) Get(_ context.Context, formationID string) ([]byte, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	generation := c.generations[formationID]
	payload, ok := c.data[cacheKey(formationID, generation)]
	return payload, generation, ok, nil
}

func (c *memCache) Set(_ context.Context, formationID string, generation int64, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[cacheKey(formationID, generation)] = payload
	return nil
}

func (c *memCache) Invalidate(_ context.Context, formationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[formationID]++
	return nil
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	c := &clock{now: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)}
	seq := &sequence{}
	st := memdb.New().WithClock(c.Now)
	base := []Option{WithClock(c.Now), WithIDGenerator(seq.Next)}
	return &fixture{
		t:     t,
		ctx:   context.Background(),
		store: st,
		svc:   NewService(st, append(base, opts...)...),
		clock: c,
	}
}

func (f *fixture) user(name string) model.User {
	f.t.Helper()
	user, err := f.svc.CreateUser(f.ctx, CreateUserInput{
		Name:     name,
		Email:    name + "@example.com",
		Password: "password",
		Role:     "student",
	})
	if err != nil {
		f.t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

func (f *fixture) formation(title string) (model.Formation, []model.Level) {
	f.t.Helper()
	formation, levels, err := f.svc.CreateFormation(f.ctx, FormationInput{
		Title:         title,
		Description:   "description",
		DurationHours: 10,
		CreatedBy:     "admin",
	})
	if err != nil {
		f.t.Fatalf("create formation: %v", err)
	}
	return formation, levels
}

func (f *fixture) session(formation model.Formation, level model.Level, day int) model.Session {
	f.t.Helper()
	session, err := f.svc.CreateSession(f.ctx, SessionInput{
		FormationID: formation.ID,
		LevelID:     level.ID,
		Date:        time.Date(2024, 2, day, 0, 0, 0, 0, time.UTC),
		StartTime:   "09:00",
		EndTime:     "12:00",
		TrainerID:   "trainer",
	})
	if err != nil {
		f.t.Fatalf("create session: %v", err)
	}
	return session
}

func (f *fixture) enroll(session model.Session, userID string) {
	f.t.Helper()
	if _, err := f.svc.EnrollInSession(f.ctx, session.ID, userID); err != nil {
		f.t.Fatalf("enroll %s in %s: %v", userID, session.ID, err)
	}
}

func (f *fixture) mark(session model.Session, userID string, status model.AttendanceStatus) model.Attendance {
	f.t.Helper()
	record, err := f.svc.MarkAttendance(f.ctx, session.ID, userID, status, "trainer")
	if err != nil {
		f.t.Fatalf("mark attendance: %v", err)
	}
	return record
}

func expectKind(t *testing.T, err error, kind Kind, code string) {
	t.Helper()
	var opErr *Error
	if !errors.As(err, &opErr) {
		t.Fatalf("expected operations error %s/%s, got %v", kind, code, err)
	}
	if opErr.Kind != kind {
		t.Fatalf("expected kind %s, got %s (%s)", kind, opErr.Kind, opErr.Code)
	}
	if code != "" && opErr.Code != code {
		t.Fatalf("expected code %s, got %s", code, opErr.Code)
	}
}
