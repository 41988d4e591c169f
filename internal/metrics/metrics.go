package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	Database *DatabaseMetrics
	Health   *HealthMetrics

	classroomsCreated metric.Int64Counter
	classroomsDeleted metric.Int64Counter
	studentsCreated   metric.Int64Counter
	studentsDeleted   metric.Int64Counter
	mutationsDenied   metric.Int64Counter
	signups           metric.Int64Counter
	signinFailures    metric.Int64Counter
}

func New(meter metric.Meter) (*Metrics, error) {
	database, err := NewDatabaseMetrics(meter)
	if err != nil {
		return nil, err
	}

	health, err := NewHealthMetrics(meter)
	if err != nil {
		return nil, err
	}

	m := &Metrics{Database: database, Health: health}

	m.classroomsCreated, err = meter.Int64Counter(
		"classroom_service.classrooms.created",
		metric.WithDescription("Total number of classrooms created"),
		metric.WithUnit("{classroom}"),
	)
	if err != nil {
		return nil, err
	}

	m.classroomsDeleted, err = meter.Int64Counter(
		"classroom_service.classrooms.deleted",
		metric.WithDescription("Total number of classrooms deleted"),
		metric.WithUnit("{classroom}"),
	)
	if err != nil {
		return nil, err
	}

	m.studentsCreated, err = meter.Int64Counter(
		"classroom_service.students.created",
		metric.WithDescription("Total number of students added to rosters"),
		metric.WithUnit("{student}"),
	)
	if err != nil {
		return nil, err
	}

	m.studentsDeleted, err = meter.Int64Counter(
		"classroom_service.students.deleted",
		metric.WithDescription("Total number of students removed from rosters"),
		metric.WithUnit("{student}"),
	)
	if err != nil {
		return nil, err
	}

	m.mutationsDenied, err = meter.Int64Counter(
		"classroom_service.mutations.denied",
		metric.WithDescription("Mutations refused because the caller does not own the classroom"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.signups, err = meter.Int64Counter(
		"classroom_service.teachers.signed_up",
		metric.WithDescription("Total number of teacher accounts created"),
		metric.WithUnit("{teacher}"),
	)
	if err != nil {
		return nil, err
	}

	m.signinFailures, err = meter.Int64Counter(
		"classroom_service.signin.failures",
		metric.WithDescription("Rejected signin attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordClassroomCreated(ctx context.Context) {
	if m != nil && m.classroomsCreated != nil {
		m.classroomsCreated.Add(ctx, 1)
	}
}

func (m *Metrics) RecordClassroomDeleted(ctx context.Context) {
	if m != nil && m.classroomsDeleted != nil {
		m.classroomsDeleted.Add(ctx, 1)
	}
}

func (m *Metrics) RecordStudentCreated(ctx context.Context) {
	if m != nil && m.studentsCreated != nil {
		m.studentsCreated.Add(ctx, 1)
	}
}

// RecordStudentsCreated counts n students added in one operation.
func (m *Metrics) RecordStudentsCreated(ctx context.Context, n int) {
	if m != nil && m.studentsCreated != nil && n > 0 {
		m.studentsCreated.Add(ctx, int64(n))
	}
}

func (m *Metrics) RecordStudentDeleted(ctx context.Context) {
	if m != nil && m.studentsDeleted != nil {
		m.studentsDeleted.Add(ctx, 1)
	}
}

// RecordMutationDenied counts a refused mutation, labelled by the attempted action.
func (m *Metrics) RecordMutationDenied(ctx context.Context, action string) {
	if m != nil && m.mutationsDenied != nil {
		m.mutationsDenied.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
	}
}

func (m *Metrics) RecordSignup(ctx context.Context) {
	if m != nil && m.signups != nil {
		m.signups.Add(ctx, 1)
	}
}

func (m *Metrics) RecordSigninFailure(ctx context.Context) {
	if m != nil && m.signinFailures != nil {
		m.signinFailures.Add(ctx, 1)
	}
}

// RecordQuery forwards to the database instruments. Safe on a nil or mock Metrics.
func (m *Metrics) RecordQuery(ctx context.Context, operation, table string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.Database.RecordQuery(ctx, operation, table, time.Since(start), err)
}

// NewMock creates a no-op Metrics instance for testing.
// The returned Metrics safely ignores all Record* calls.
func NewMock() *Metrics {
	return &Metrics{Database: &DatabaseMetrics{}}
}
