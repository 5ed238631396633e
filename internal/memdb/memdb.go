// Package memdb is an in-process implementation of store.Store. It backs the
// STORE_DRIVER=memory mode and the unit tests of the packages above it.
package memdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"astba/training/internal/model"
	"astba/training/internal/store"
)

type entry[T any] struct {
	seq   uint64
	value T
}

type tables struct {
	users        map[string]entry[model.User]
	formations   map[string]entry[model.Formation]
	levels       map[string]entry[model.Level]
	sessions     map[string]entry[model.Session]
	attendance   map[string]entry[model.Attendance]
	certificates map[string]entry[model.Certificate]
}

func newTables() tables {
	return tables{
		users:        map[string]entry[model.User]{},
		formations:   map[string]entry[model.Formation]{},
		levels:       map[string]entry[model.Level]{},
		sessions:     map[string]entry[model.Session]{},
		attendance:   map[string]entry[model.Attendance]{},
		certificates: map[string]entry[model.Certificate]{},
	}
}

func (t tables) clone() tables {
	c := newTables()
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.formations {
		c.formations[k] = v
	}
	for k, v := range t.levels {
		c.levels[k] = v
	}
	for k, v := range t.sessions {
		v.value = cloneSession(v.value)
		c.sessions[k] = v
	}
	for k, v := range t.attendance {
		c.attendance[k] = v
	}
	for k, v := range t.certificates {
		c.certificates[k] = v
	}
	return c
}

type Store struct {
	mu   sync.Mutex
	seq  uint64
	data tables
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{data: newTables(), now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the clock used for store-side timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// WithTx runs fn against a private copy of the tables and swaps it in when
// fn succeeds. The store stays locked for the whole transaction, so plain
// calls from other goroutines wait instead of writing into state that a
// rollback would discard.
func (s *Store) WithTx(_ context.Context, fn func(store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := &Store{data: s.data.clone(), seq: s.seq, now: s.now}
	if err := fn(view); err != nil {
		return err
	}
	s.data = view.data
	s.seq = view.seq
	return nil
}

func (s *Store) next() uint64 {
	s.seq++
	return s.seq
}

// Users

func (s *Store) CreateUser(_ context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.users[user.ID]; ok {
		return store.ErrDuplicate
	}
	if s.emailTaken(user.Email, "") {
		return store.ErrDuplicate
	}
	s.data.users[user.ID] = entry[model.User]{seq: s.next(), value: user}
	return nil
}

func (s *Store) emailTaken(email, exceptID string) bool {
	for id, e := range s.data.users {
		if id != exceptID && strings.EqualFold(e.value.Email, email) {
			return true
		}
	}
	return false
}

func (s *Store) GetUser(_ context.Context, id string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.users[id]
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	return e.value, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.data.users {
		if strings.EqualFold(e.value.Email, email) {
			return e.value, nil
		}
	}
	return model.User{}, store.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context, filter store.UserFilter) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []entry[model.User]
	for _, e := range s.data.users {
		if filter.Role != nil && e.value.Role != *filter.Role {
			continue
		}
		if filter.Status != nil && e.value.Status != *filter.Status {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool {
		return newerFirst(matched[i].value.CreatedAt, matched[i].seq, matched[j].value.CreatedAt, matched[j].seq)
	})
	out := make([]model.User, 0, len(matched))
	for _, e := range matched {
		out = append(out, e.value)
	}
	return out, nil
}

func (s *Store) UpdateUser(_ context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.users[user.ID]
	if !ok {
		return store.ErrNotFound
	}
	if s.emailTaken(user.Email, user.ID) {
		return store.ErrDuplicate
	}
	e.value = user
	s.data.users[user.ID] = e
	return nil
}

// Formations

func (s *Store) CreateFormation(_ context.Context, formation model.Formation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.formations[formation.ID]; ok {
		return store.ErrDuplicate
	}
	s.data.formations[formation.ID] = entry[model.Formation]{seq: s.next(), value: formation}
	return nil
}

func (s *Store) GetFormation(_ context.Context, id string) (model.Formation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.formations[id]
	if !ok {
		return model.Formation{}, store.ErrNotFound
	}
	return e.value, nil
}

func (s *Store) ListFormations(_ context.Context) ([]model.Formation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]entry[model.Formation], 0, len(s.data.formations))
	for _, e := range s.data.formations {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		return newerFirst(list[i].value.CreatedAt, list[i].seq, list[j].value.CreatedAt, list[j].seq)
	})
	out := make([]model.Formation, 0, len(list))
	for _, e := range list {
		out = append(out, e.value)
	}
	return out, nil
}

func (s *Store) UpdateFormation(_ context.Context, formation model.Formation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.formations[formation.ID]
	if !ok {
		return store.ErrNotFound
	}
	e.value = formation
	s.data.formations[formation.ID] = e
	return nil
}

func (s *Store) DeleteFormation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.formations[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data.formations, id)
	return nil
}

// Levels

func (s *Store) CreateLevel(_ context.Context, level model.Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.levels[level.ID]; ok {
		return store.ErrDuplicate
	}
	if s.orderTaken(level.FormationID, level.Order, "") {
		return store.ErrDuplicate
	}
	s.data.levels[level.ID] = entry[model.Level]{seq: s.next(), value: level}
	return nil
}

func (s *Store) orderTaken(formationID string, order int, exceptID string) bool {
	for id, e := range s.data.levels {
		if id != exceptID && e.value.FormationID == formationID && e.value.Order == order {
			return true
		}
	}
	return false
}

func (s *Store) GetLevel(_ context.Context, id string) (model.Level, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.levels[id]
	if !ok {
		return model.Level{}, store.ErrNotFound
	}
	return e.value, nil
}

func (s *Store) ListLevels(_ context.Context, formationID string) ([]model.Level, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Level
	for _, e := range s.data.levels {
		if e.value.FormationID == formationID {
			out = append(out, e.value)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *Store) UpdateLevel(_ context.Context, level model.Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.levels[level.ID]
	if !ok {
		return store.ErrNotFound
	}
	if s.orderTaken(level.FormationID, level.Order, level.ID) {
		return store.ErrDuplicate
	}
	e.value = level
	s.data.levels[level.ID] = e
	return nil
}

func (s *Store) DeleteLevel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.levels[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data.levels, id)
	return nil
}

// Sessions

func cloneSession(session model.Session) model.Session {
	session.Participants = append([]string(nil), session.Participants...)
	return session
}

func (s *Store) CreateSession(_ context.Context, session model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.sessions[session.ID]; ok {
		return store.ErrDuplicate
	}
	s.data.sessions[session.ID] = entry[model.Session]{seq: s.next(), value: cloneSession(session)}
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.sessions[id]
	if !ok {
		return model.Session{}, store.ErrNotFound
	}
	return cloneSession(e.value), nil
}

func (s *Store) matchSessions(filter store.SessionFilter) []entry[model.Session] {
	var ids map[string]struct{}
	if filter.IDs != nil {
		ids = make(map[string]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = struct{}{}
		}
	}
	var matched []entry[model.Session]
	for id, e := range s.data.sessions {
		v := e.value
		if ids != nil {
			if _, ok := ids[id]; !ok {
				continue
			}
		}
		if filter.FormationID != "" && v.FormationID != filter.FormationID {
			continue
		}
		if filter.LevelID != "" && v.LevelID != filter.LevelID {
			continue
		}
		if filter.ParticipantID != "" && !v.HasParticipant(filter.ParticipantID) {
			continue
		}
		if filter.From != nil && v.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !v.Date.Before(*filter.To) {
			continue
		}
		matched = append(matched, e)
	}
	return matched
}

func (s *Store) ListSessions(_ context.Context, filter store.SessionFilter) ([]model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := s.matchSessions(filter)
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch filter.Order {
		case store.OrderByCreatedDesc:
			return newerFirst(a.value.CreatedAt, a.seq, b.value.CreatedAt, b.seq)
		case store.OrderByDateDesc:
			if !a.value.Date.Equal(b.value.Date) {
				return a.value.Date.After(b.value.Date)
			}
			if a.value.StartTime != b.value.StartTime {
				return a.value.StartTime > b.value.StartTime
			}
			return a.seq > b.seq
		default:
			if !a.value.Date.Equal(b.value.Date) {
				return a.value.Date.Before(b.value.Date)
			}
			if a.value.StartTime != b.value.StartTime {
				return a.value.StartTime < b.value.StartTime
			}
			return a.seq < b.seq
		}
	})
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	out := make([]model.Session, 0, len(matched))
	for _, e := range matched {
		out = append(out, cloneSession(e.value))
	}
	return out, nil
}

func (s *Store) CountSessions(_ context.Context, filter store.SessionFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matchSessions(filter)), nil
}

func (s *Store) UpdateSession(_ context.Context, session model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.sessions[session.ID]
	if !ok {
		return store.ErrNotFound
	}
	e.value = cloneSession(session)
	s.data.sessions[session.ID] = e
	return nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.sessions[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data.sessions, id)
	return nil
}

func (s *Store) DeleteSessionsByLevel(_ context.Context, levelID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.data.sessions {
		if e.value.LevelID == levelID {
			delete(s.data.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) AddParticipant(_ context.Context, sessionID, userID string, enforceCapacity bool) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.sessions[sessionID]
	if !ok {
		return model.Session{}, store.ErrNotFound
	}
	if e.value.HasParticipant(userID) {
		return cloneSession(e.value), store.ErrDuplicate
	}
	if enforceCapacity && len(e.value.Participants) >= e.value.MaxParticipants {
		return cloneSession(e.value), store.ErrCapacity
	}
	e.value = cloneSession(e.value)
	e.value.Participants = append(e.value.Participants, userID)
	e.value.UpdatedAt = s.now()
	s.data.sessions[sessionID] = e
	return cloneSession(e.value), nil
}

func (s *Store) RemoveParticipant(_ context.Context, sessionID, userID string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.sessions[sessionID]
	if !ok {
		return model.Session{}, store.ErrNotFound
	}
	if !e.value.HasParticipant(userID) {
		return cloneSession(e.value), store.ErrNotMember
	}
	kept := make([]string, 0, len(e.value.Participants)-1)
	for _, p := range e.value.Participants {
		if p != userID {
			kept = append(kept, p)
		}
	}
	e.value.Participants = kept
	e.value.UpdatedAt = s.now()
	s.data.sessions[sessionID] = e
	return cloneSession(e.value), nil
}

// Attendance

func (s *Store) UpsertAttendance(_ context.Context, record model.Attendance) (model.Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.data.attendance {
		if e.value.SessionID == record.SessionID && e.value.ParticipantID == record.ParticipantID {
			e.value.Status = record.Status
			e.value.MarkedBy = record.MarkedBy
			e.value.UpdatedAt = record.UpdatedAt
			s.data.attendance[id] = e
			return e.value, nil
		}
	}
	s.data.attendance[record.ID] = entry[model.Attendance]{seq: s.next(), value: record}
	return record, nil
}

func (s *Store) GetAttendance(_ context.Context, id string) (model.Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.attendance[id]
	if !ok {
		return model.Attendance{}, store.ErrNotFound
	}
	return e.value, nil
}

func (s *Store) UpdateAttendance(_ context.Context, record model.Attendance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.attendance[record.ID]
	if !ok {
		return store.ErrNotFound
	}
	e.value = record
	s.data.attendance[record.ID] = e
	return nil
}

func (s *Store) DeleteAttendance(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.attendance[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data.attendance, id)
	return nil
}

func (s *Store) matchAttendance(filter store.AttendanceFilter) []entry[model.Attendance] {
	var sessions map[string]struct{}
	if filter.SessionIDs != nil {
		sessions = make(map[string]struct{}, len(filter.SessionIDs))
		for _, id := range filter.SessionIDs {
			sessions[id] = struct{}{}
		}
	}
	var matched []entry[model.Attendance]
	for _, e := range s.data.attendance {
		v := e.value
		if sessions != nil {
			if _, ok := sessions[v.SessionID]; !ok {
				continue
			}
		}
		if filter.ParticipantID != "" && v.ParticipantID != filter.ParticipantID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, v.Status) {
			continue
		}
		matched = append(matched, e)
	}
	return matched
}

func containsStatus(statuses []model.AttendanceStatus, status model.AttendanceStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (s *Store) ListAttendance(_ context.Context, filter store.AttendanceFilter) ([]model.Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := s.matchAttendance(filter)
	sort.Slice(matched, func(i, j int) bool {
		return newerFirst(matched[i].value.CreatedAt, matched[i].seq, matched[j].value.CreatedAt, matched[j].seq)
	})
	out := make([]model.Attendance, 0, len(matched))
	for _, e := range matched {
		out = append(out, e.value)
	}
	return out, nil
}

func (s *Store) CountAttendance(_ context.Context, filter store.AttendanceFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matchAttendance(filter)), nil
}

// Certificates

func (s *Store) CreateCertificate(_ context.Context, cert model.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.data.certificates {
		if e.value.Number == cert.Number {
			return store.ErrDuplicate
		}
		if e.value.UserID == cert.UserID && e.value.FormationID == cert.FormationID {
			return store.ErrDuplicate
		}
	}
	s.data.certificates[cert.ID] = entry[model.Certificate]{seq: s.next(), value: cert}
	return nil
}

func (s *Store) GetCertificate(_ context.Context, userID, formationID string) (model.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.data.certificates {
		if e.value.UserID == userID && e.value.FormationID == formationID {
			return e.value, nil
		}
	}
	return model.Certificate{}, store.ErrNotFound
}

func (s *Store) ListCertificates(_ context.Context, userID string) ([]model.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []entry[model.Certificate]
	for _, e := range s.data.certificates {
		if userID == "" || e.value.UserID == userID {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return newerFirst(matched[i].value.IssuedAt, matched[i].seq, matched[j].value.IssuedAt, matched[j].seq)
	})
	out := make([]model.Certificate, 0, len(matched))
	for _, e := range matched {
		out = append(out, e.value)
	}
	return out, nil
}

func newerFirst(a time.Time, aSeq uint64, b time.Time, bSeq uint64) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aSeq > bSeq
}
