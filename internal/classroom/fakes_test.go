package classroom_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shahzadkashif/Classrooms/internal/classroom"
)

// memRepo is an in-memory classroom.Repository with cascade delete.
type memRepo struct {
	mu          sync.Mutex
	classrooms  map[int]classroom.Classroom
	students    map[int]classroom.Student
	nextID      int
	failStudent error
}

func newMemRepo() *memRepo {
	return &memRepo{
		classrooms: map[int]classroom.Classroom{},
		students:   map[int]classroom.Student{},
	}
}

func (m *memRepo) ListClassrooms(_ context.Context) ([]classroom.Classroom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]classroom.Classroom, 0, len(m.classrooms))
	for _, c := range m.classrooms {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) GetClassroom(_ context.Context, id int) (*classroom.Classroom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.classrooms[id]
	if !ok {
		return nil, classroom.ErrClassroomNotFound
	}
	return &c, nil
}

func (m *memRepo) CreateClassroom(_ context.Context, c *classroom.Classroom) (*classroom.Classroom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	c.ID = m.nextID
	m.classrooms[c.ID] = *c
	return c, nil
}

func (m *memRepo) UpdateClassroom(_ context.Context, c *classroom.Classroom) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.classrooms[c.ID]
	if !ok {
		return classroom.ErrClassroomNotFound
	}
	existing.Name, existing.Subject, existing.Year = c.Name, c.Subject, c.Year
	m.classrooms[c.ID] = existing
	return nil
}

func (m *memRepo) DeleteClassroom(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.classrooms[id]; !ok {
		return classroom.ErrClassroomNotFound
	}
	delete(m.classrooms, id)
	for sid, s := range m.students {
		if s.ClassroomID == id {
			delete(m.students, sid)
		}
	}
	return nil
}

func (m *memRepo) ListStudents(_ context.Context, classroomID int) ([]classroom.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []classroom.Student
	for _, s := range m.students {
		if s.ClassroomID == classroomID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memRepo) GetStudent(_ context.Context, classroomID, id int) (*classroom.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.students[id]
	if !ok || s.ClassroomID != classroomID {
		return nil, classroom.ErrStudentNotFound
	}
	return &s, nil
}

func (m *memRepo) CreateStudent(_ context.Context, s *classroom.Student) (*classroom.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failStudent != nil {
		return nil, m.failStudent
	}
	m.nextID++
	s.ID = m.nextID
	m.students[s.ID] = *s
	return s, nil
}

func (m *memRepo) CreateStudents(_ context.Context, students []classroom.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failStudent != nil {
		return m.failStudent
	}
	for _, s := range students {
		m.nextID++
		s.ID = m.nextID
		m.students[s.ID] = s
	}
	return nil
}

func (m *memRepo) UpdateStudent(_ context.Context, s *classroom.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.students[s.ID]
	if !ok || existing.ClassroomID != s.ClassroomID {
		return classroom.ErrStudentNotFound
	}
	existing.Name, existing.DateOfBirth, existing.Gender, existing.ExamGrade = s.Name, s.DateOfBirth, s.Gender, s.ExamGrade
	m.students[s.ID] = existing
	return nil
}

func (m *memRepo) DeleteStudent(_ context.Context, classroomID, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.students[id]
	if !ok || s.ClassroomID != classroomID {
		return classroom.ErrStudentNotFound
	}
	delete(m.students, id)
	return nil
}

func (m *memRepo) classroom(id int) (classroom.Classroom, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.classrooms[id]
	return c, ok
}

func (m *memRepo) student(id int) (classroom.Student, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	return s, ok
}

func (m *memRepo) studentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.students)
}

var errBoom = errors.New("boom")
