package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shahzadkashif/Classrooms/internal/metrics"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrTeacherNotFound    = errors.New("teacher not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Login is a freshly opened session and the cookie token for it.
type Login struct {
	Teacher *Teacher
	Session *Session
	Token   string
}

type Service struct {
	teachers TeacherRepository
	sessions SessionStore
	tokens   *TokenIssuer
	ttl      time.Duration
	metrics  *metrics.Metrics
}

func NewService(teachers TeacherRepository, sessions SessionStore, tokens *TokenIssuer, ttl time.Duration, m *metrics.Metrics) *Service {
	return &Service{
		teachers: teachers,
		sessions: sessions,
		tokens:   tokens,
		ttl:      ttl,
		metrics:  m,
	}
}

// Signup creates a teacher account and signs it in.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Login, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	teacher, err := s.teachers.Create(ctx, &Teacher{
		Username: req.Username,
		Password: string(hashedPassword),
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSignup(ctx)

	return s.openSession(ctx, teacher)
}

func (s *Service) Signin(ctx context.Context, req SigninRequest) (*Login, error) {
	teacher, err := s.teachers.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, ErrTeacherNotFound) {
			s.metrics.RecordSigninFailure(ctx)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(teacher.Password), []byte(req.Password)); err != nil {
		s.metrics.RecordSigninFailure(ctx)
		return nil, ErrInvalidCredentials
	}

	return s.openSession(ctx, teacher)
}

func (s *Service) Signout(ctx context.Context, sessionID uuid.UUID) error {
	return s.sessions.Delete(ctx, sessionID)
}

// Authenticate resolves a cookie token into the caller's identity and live session.
func (s *Service) Authenticate(ctx context.Context, token string) (Identity, *Session, error) {
	claims, sessionID, err := s.tokens.Parse(token)
	if err != nil {
		return Anonymous, nil, err
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return Anonymous, nil, err
	}
	if session.TeacherID != claims.TeacherID {
		return Anonymous, nil, fmt.Errorf("%w: session owner mismatch", ErrInvalidToken)
	}

	return Identity{TeacherID: claims.TeacherID, Username: claims.Username}, session, nil
}

func (s *Service) openSession(ctx context.Context, teacher *Teacher) (*Login, error) {
	csrfToken, err := NewCSRFToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate csrf token: %w", err)
	}

	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.New(),
		TeacherID: teacher.ID,
		CSRFToken: csrfToken,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(teacher, session)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Login{Teacher: teacher, Session: session, Token: token}, nil
}
