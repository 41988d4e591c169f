package classroom

import (
	"context"
	"errors"

	"github.com/shahzadkashif/Classrooms/internal/auth"
)

var (
	ErrClassroomNotFound = errors.New("classroom not found")
	ErrStudentNotFound   = errors.New("student not found")
	ErrNotOwner          = errors.New("only the teacher of this classroom may change it")
	ErrSignInRequired    = errors.New("sign in required")
)

// Service applies the ownership rule to every classroom and roster change.
// The caller's identity is always passed explicitly.
type Service interface {
	ListClassrooms(ctx context.Context) ([]Classroom, error)
	// GetClassroom returns the classroom and its ordered roster.
	GetClassroom(ctx context.Context, id int) (*Classroom, []Student, error)
	CreateClassroom(ctx context.Context, identity auth.Identity, in ClassroomInput) (*Classroom, error)
	UpdateClassroom(ctx context.Context, identity auth.Identity, id int, in ClassroomInput) (*Classroom, error)
	DeleteClassroom(ctx context.Context, identity auth.Identity, id int) error

	// Authorize loads the classroom and fails with ErrNotOwner unless identity may change it.
	Authorize(ctx context.Context, identity auth.Identity, classroomID int) (*Classroom, error)

	GetStudent(ctx context.Context, classroomID, id int) (*Classroom, *Student, error)
	AddStudent(ctx context.Context, identity auth.Identity, classroomID int, in StudentInput) (*Student, error)
	// ImportStudents adds every input to the roster, or none of them.
	ImportStudents(ctx context.Context, identity auth.Identity, classroomID int, inputs []StudentInput) (int, error)
	UpdateStudent(ctx context.Context, identity auth.Identity, classroomID, id int, in StudentInput) (*Student, error)
	DeleteStudent(ctx context.Context, identity auth.Identity, classroomID, id int) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
	}
}

func (s *service) ListClassrooms(ctx context.Context) ([]Classroom, error) {
	return s.repo.ListClassrooms(ctx)
}

func (s *service) GetClassroom(ctx context.Context, id int) (*Classroom, []Student, error) {
	classroom, err := s.repo.GetClassroom(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	students, err := s.repo.ListStudents(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	SortRoster(students)

	return classroom, students, nil
}

func (s *service) CreateClassroom(ctx context.Context, identity auth.Identity, in ClassroomInput) (*Classroom, error) {
	if identity.IsAnonymous() {
		return nil, ErrSignInRequired
	}
	return s.repo.CreateClassroom(ctx, &Classroom{
		Name:      in.Name,
		Subject:   in.Subject,
		Year:      in.Year,
		TeacherID: identity.TeacherID,
	})
}

func (s *service) UpdateClassroom(ctx context.Context, identity auth.Identity, id int, in ClassroomInput) (*Classroom, error) {
	classroom, err := s.Authorize(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	classroom.Name = in.Name
	classroom.Subject = in.Subject
	classroom.Year = in.Year
	if err := s.repo.UpdateClassroom(ctx, classroom); err != nil {
		return nil, err
	}
	return classroom, nil
}

func (s *service) DeleteClassroom(ctx context.Context, identity auth.Identity, id int) error {
	if _, err := s.Authorize(ctx, identity, id); err != nil {
		return err
	}
	return s.repo.DeleteClassroom(ctx, id)
}

func (s *service) Authorize(ctx context.Context, identity auth.Identity, classroomID int) (*Classroom, error) {
	if identity.IsAnonymous() {
		return nil, ErrSignInRequired
	}

	classroom, err := s.repo.GetClassroom(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	if !CanMutate(identity, classroom) {
		return classroom, ErrNotOwner
	}
	return classroom, nil
}

func (s *service) GetStudent(ctx context.Context, classroomID, id int) (*Classroom, *Student, error) {
	classroom, err := s.repo.GetClassroom(ctx, classroomID)
	if err != nil {
		return nil, nil, err
	}

	student, err := s.repo.GetStudent(ctx, classroomID, id)
	if err != nil {
		return nil, nil, err
	}
	return classroom, student, nil
}

func (s *service) AddStudent(ctx context.Context, identity auth.Identity, classroomID int, in StudentInput) (*Student, error) {
	if _, err := s.Authorize(ctx, identity, classroomID); err != nil {
		return nil, err
	}

	student := newStudent(classroomID, in)
	return s.repo.CreateStudent(ctx, &student)
}

func (s *service) ImportStudents(ctx context.Context, identity auth.Identity, classroomID int, inputs []StudentInput) (int, error) {
	if _, err := s.Authorize(ctx, identity, classroomID); err != nil {
		return 0, err
	}

	students := make([]Student, 0, len(inputs))
	for _, in := range inputs {
		students = append(students, newStudent(classroomID, in))
	}
	if err := s.repo.CreateStudents(ctx, students); err != nil {
		return 0, err
	}
	return len(students), nil
}

func (s *service) UpdateStudent(ctx context.Context, identity auth.Identity, classroomID, id int, in StudentInput) (*Student, error) {
	if _, err := s.Authorize(ctx, identity, classroomID); err != nil {
		return nil, err
	}

	student, err := s.repo.GetStudent(ctx, classroomID, id)
	if err != nil {
		return nil, err
	}

	student.Name = in.Name
	student.DateOfBirth = in.DateOfBirth
	student.Gender = in.Gender
	student.ExamGrade = in.ExamGrade
	if err := s.repo.UpdateStudent(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

func (s *service) DeleteStudent(ctx context.Context, identity auth.Identity, classroomID, id int) error {
	if _, err := s.Authorize(ctx, identity, classroomID); err != nil {
		return err
	}
	return s.repo.DeleteStudent(ctx, classroomID, id)
}

func newStudent(classroomID int, in StudentInput) Student {
	return Student{
		Name:        in.Name,
		DateOfBirth: in.DateOfBirth,
		Gender:      in.Gender,
		ExamGrade:   in.ExamGrade,
		ClassroomID: classroomID,
	}
}
