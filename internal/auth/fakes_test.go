package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/shahzadkashif/Classrooms/internal/auth"

	"github.com/google/uuid"
)

type memTeachers struct {
	mu     sync.Mutex
	byID   map[int]auth.Teacher
	nextID int
}

func newMemTeachers() *memTeachers {
	return &memTeachers{byID: map[int]auth.Teacher{}}
}

func (m *memTeachers) Create(_ context.Context, teacher *auth.Teacher) (*auth.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.byID {
		if existing.Username == teacher.Username {
			return nil, auth.ErrUsernameTaken
		}
	}
	m.nextID++
	teacher.ID = m.nextID
	teacher.CreatedAt = time.Now()
	m.byID[teacher.ID] = *teacher
	return teacher, nil
}

func (m *memTeachers) GetByUsername(_ context.Context, username string) (*auth.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.byID {
		if existing.Username == username {
			t := existing
			return &t, nil
		}
	}
	return nil, auth.ErrTeacherNotFound
}

func (m *memTeachers) GetByID(_ context.Context, id int) (*auth.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.byID[id]
	if !ok {
		return nil, auth.ErrTeacherNotFound
	}
	return &existing, nil
}

func (m *memTeachers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type memSessions struct {
	mu sync.Mutex
	m  map[uuid.UUID]auth.Session

	failDelete error
}

func newMemSessions() *memSessions {
	return &memSessions{m: map[uuid.UUID]auth.Session{}}
}

func (s *memSessions) Create(_ context.Context, session *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[session.ID] = *session
	return nil
}

func (s *memSessions) Get(_ context.Context, id uuid.UUID) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.m[id]
	if !ok || !session.ExpiresAt.After(time.Now()) {
		return nil, auth.ErrSessionNotFound
	}
	return &session, nil
}

func (s *memSessions) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete != nil {
		return s.failDelete
	}
	delete(s.m, id)
	return nil
}

func (s *memSessions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
