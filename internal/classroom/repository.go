package classroom

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shahzadkashif/Classrooms/internal/metrics"

	"github.com/uptrace/bun"
)

type Repository interface {
	ListClassrooms(ctx context.Context) ([]Classroom, error)
	GetClassroom(ctx context.Context, id int) (*Classroom, error)
	CreateClassroom(ctx context.Context, classroom *Classroom) (*Classroom, error)
	UpdateClassroom(ctx context.Context, classroom *Classroom) error
	DeleteClassroom(ctx context.Context, id int) error

	ListStudents(ctx context.Context, classroomID int) ([]Student, error)
	GetStudent(ctx context.Context, classroomID, id int) (*Student, error)
	CreateStudent(ctx context.Context, student *Student) (*Student, error)
	CreateStudents(ctx context.Context, students []Student) error
	UpdateStudent(ctx context.Context, student *Student) error
	DeleteStudent(ctx context.Context, classroomID, id int) error
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Repository {
	return &repository{db: db, metrics: m}
}

func (r *repository) ListClassrooms(ctx context.Context) ([]Classroom, error) {
	start := time.Now()
	var classrooms []Classroom
	err := r.db.NewSelect().
		Model(&classrooms).
		Order("id ASC").
		Scan(ctx)
	r.metrics.RecordQuery(ctx, "select", "classrooms", start, err)

	if err != nil {
		return nil, fmt.Errorf("failed to list classrooms: %w", err)
	}
	return classrooms, nil
}

func (r *repository) GetClassroom(ctx context.Context, id int) (*Classroom, error) {
	start := time.Now()
	classroom := new(Classroom)
	err := r.db.NewSelect().
		Model(classroom).
		Where("id = ?", id).
		Scan(ctx)
	r.metrics.RecordQuery(ctx, "select", "classrooms", start, err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClassroomNotFound
		}
		return nil, fmt.Errorf("failed to get classroom: %w", err)
	}
	return classroom, nil
}

func (r *repository) CreateClassroom(ctx context.Context, classroom *Classroom) (*Classroom, error) {
	start := time.Now()
	_, err := r.db.NewInsert().
		Model(classroom).
		Returning("*").
		Exec(ctx)
	r.metrics.RecordQuery(ctx, "insert", "classrooms", start, err)

	if err != nil {
		return nil, fmt.Errorf("failed to create classroom: %w", err)
	}
	return classroom, nil
}

// UpdateClassroom writes name, subject and year. The owner is never changed.
func (r *repository) UpdateClassroom(ctx context.Context, classroom *Classroom) error {
	start := time.Now()
	res, err := r.db.NewUpdate().
		Model(classroom).
		Column("name", "subject", "year").
		WherePK().
		Exec(ctx)
	r.metrics.RecordQuery(ctx, "update", "classrooms", start, err)

	if err != nil {
		return fmt.Errorf("failed to update classroom: %w", err)
	}
	return requireRow(res, ErrClassroomNotFound)
}

// DeleteClassroom removes the classroom. Its students go with it.
func (r *repository) DeleteClassroom(ctx context.Context, id int) error {
	start := time.Now()
	res, err := r.db.NewDelete().
		Model((*Classroom)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	r.metrics.RecordQuery(ctx, "delete", "classrooms", start, err)

	if err != nil {
		return fmt.Errorf("failed to delete classroom: %w", err)
	}
	return requireRow(res, ErrClassroomNotFound)
}

func (r *repository) ListStudents(ctx context.Context, classroomID int) ([]Student, error) {
	start := time.Now()
	var students []Student
	err := r.db.NewSelect().
		Model(&students).
		Where("classroom_id = ?", classroomID).
		Scan(ctx)
	r.metrics.RecordQuery(ctx, "select", "students", start, err)

	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

// GetStudent finds a student within one classroom. A student of another
// classroom is not found.
func (r *repository) GetStudent(ctx context.Context, classroomID, id int) (*Student, error) {
	start := time.Now()
	student := new(Student)
	err := r.db.NewSelect().
		Model(student).
		Where("id = ?", id).
		Where("classroom_id = ?", classroomID).
		Scan(ctx)
	r.metrics.RecordQuery(ctx, "select", "students", start, err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return student, nil
}

func (r *repository) CreateStudent(ctx context.Context, student *Student) (*Student, error) {
	start := time.Now()
	_, err := r.db.NewInsert().
		Model(student).
		Returning("*").
		Exec(ctx)
	r.metrics.RecordQuery(ctx, "insert", "students", start, err)

	if err != nil {
		return nil, fmt.Errorf("failed to create student: %w", err)
	}
	return student, nil
}

// CreateStudents inserts all students in one statement, so either every row is
// stored or none is.
func (r *repository) CreateStudents(ctx context.Context, students []Student) error {
	if len(students) == 0 {
		return nil
	}

	start := time.Now()
	_, err := r.db.NewInsert().
		Model(&students).
		Exec(ctx)
	r.metrics.RecordQuery(ctx, "insert", "students", start, err)

	if err != nil {
		return fmt.Errorf("failed to import students: %w", err)
	}
	return nil
}

// UpdateStudent writes the editable fields. The classroom is never changed.
func (r *repository) UpdateStudent(ctx context.Context, student *Student) error {
	start := time.Now()
	res, err := r.db.NewUpdate().
		Model(student).
		Column("name", "date_of_birth", "gender", "exam_grade").
		Where("id = ?", student.ID).
		Where("classroom_id = ?", student.ClassroomID).
		Exec(ctx)
	r.metrics.RecordQuery(ctx, "update", "students", start, err)

	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}
	return requireRow(res, ErrStudentNotFound)
}

func (r *repository) DeleteStudent(ctx context.Context, classroomID, id int) error {
	start := time.Now()
	res, err := r.db.NewDelete().
		Model((*Student)(nil)).
		Where("id = ?", id).
		Where("classroom_id = ?", classroomID).
		Exec(ctx)
	r.metrics.RecordQuery(ctx, "delete", "students", start, err)

	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	return requireRow(res, ErrStudentNotFound)
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
