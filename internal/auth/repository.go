package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shahzadkashif/Classrooms/internal/metrics"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

const uniqueViolation = "23505"

type TeacherRepository interface {
	Create(ctx context.Context, teacher *Teacher) (*Teacher, error)
	GetByUsername(ctx context.Context, username string) (*Teacher, error)
	GetByID(ctx context.Context, id int) (*Teacher, error)
}

// SessionStore persists sessions. Get must not return expired sessions.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type teacherRepository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewTeacherRepository(db *bun.DB, m *metrics.Metrics) TeacherRepository {
	return &teacherRepository{db: db, metrics: m}
}

func (r *teacherRepository) Create(ctx context.Context, teacher *Teacher) (*Teacher, error) {
	start := time.Now()
	_, err := r.db.NewInsert().
		Model(teacher).
		Returning("*").
		Exec(ctx)
	r.metrics.RecordQuery(ctx, "insert", "teachers", start, err)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create teacher: %w", err)
	}
	return teacher, nil
}

func (r *teacherRepository) GetByUsername(ctx context.Context, username string) (*Teacher, error) {
	start := time.Now()
	teacher := new(Teacher)
	err := r.db.NewSelect().
		Model(teacher).
		Where("username = ?", username).
		Scan(ctx)
	r.metrics.RecordQuery(ctx, "select", "teachers", start, err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeacherNotFound
		}
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	return teacher, nil
}

func (r *teacherRepository) GetByID(ctx context.Context, id int) (*Teacher, error) {
	start := time.Now()
	teacher := new(Teacher)
	err := r.db.NewSelect().
		Model(teacher).
		Where("id = ?", id).
		Scan(ctx)
	r.metrics.RecordQuery(ctx, "select", "teachers", start, err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeacherNotFound
		}
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	return teacher, nil
}

type sessionRepository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

// NewSessionRepository stores sessions in the sessions table.
func NewSessionRepository(db *bun.DB, m *metrics.Metrics) SessionStore {
	return &sessionRepository{db: db, metrics: m}
}

func (r *sessionRepository) Create(ctx context.Context, session *Session) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(session).Exec(ctx)
	r.metrics.RecordQuery(ctx, "insert", "sessions", start, err)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	start := time.Now()
	session := new(Session)
	err := r.db.NewSelect().
		Model(session).
		Where("id = ?", id).
		Where("expires_at > ?", time.Now()).
		Scan(ctx)
	r.metrics.RecordQuery(ctx, "select", "sessions", start, err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (r *sessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	_, err := r.db.NewDelete().
		Model((*Session)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	r.metrics.RecordQuery(ctx, "delete", "sessions", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation
}
