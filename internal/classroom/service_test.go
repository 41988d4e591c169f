package classroom_test

import (
	"context"
	"testing"
	"time"

	"github.com/shahzadkashif/Classrooms/internal/auth"
	"github.com/shahzadkashif/Classrooms/internal/classroom"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner    = auth.Identity{TeacherID: 1, Username: "laila"}
	stranger = auth.Identity{TeacherID: 2, Username: "omar"}
)

func studentInput(name, grade string) classroom.StudentInput {
	return classroom.StudentInput{
		Name:        name,
		DateOfBirth: time.Date(2010, 5, 1, 0, 0, 0, 0, time.UTC),
		Gender:      classroom.GenderUnspecified,
		ExamGrade:   decimal.RequireFromString(grade),
	}
}

func TestService(t *testing.T) {
	ctx := context.Background()
	classroomInput := classroom.ClassroomInput{Name: "5A", Subject: "Science", Year: 2020}

	t.Run("CreateClassroom_SetsOwner", func(t *testing.T) {
		svc := classroom.NewService(newMemRepo())

		c, err := svc.CreateClassroom(ctx, owner, classroomInput)
		require.NoError(t, err)
		assert.Equal(t, owner.TeacherID, c.TeacherID)

		_, err = svc.CreateClassroom(ctx, auth.Anonymous, classroomInput)
		assert.ErrorIs(t, err, classroom.ErrSignInRequired)
	})

	t.Run("UpdateClassroom_OwnerOnly", func(t *testing.T) {
		repo := newMemRepo()
		svc := classroom.NewService(repo)
		c, err := svc.CreateClassroom(ctx, owner, classroomInput)
		require.NoError(t, err)

		_, err = svc.UpdateClassroom(ctx, stranger, c.ID, classroom.ClassroomInput{Subject: "Art", Year: 1999})
		assert.ErrorIs(t, err, classroom.ErrNotOwner)
		stored, _ := repo.classroom(c.ID)
		assert.Equal(t, "Science", stored.Subject)

		updated, err := svc.UpdateClassroom(ctx, owner, c.ID, classroom.ClassroomInput{Subject: "Art", Year: 1999})
		require.NoError(t, err)
		assert.Equal(t, "Art", updated.Subject)
		assert.Equal(t, owner.TeacherID, updated.TeacherID)
	})

	t.Run("DeleteClassroom_Cascades", func(t *testing.T) {
		repo := newMemRepo()
		svc := classroom.NewService(repo)
		c, err := svc.CreateClassroom(ctx, owner, classroomInput)
		require.NoError(t, err)
		_, err = svc.AddStudent(ctx, owner, c.ID, studentInput("Laila", "90"))
		require.NoError(t, err)

		assert.ErrorIs(t, svc.DeleteClassroom(ctx, stranger, c.ID), classroom.ErrNotOwner)
		assert.Equal(t, 1, repo.studentCount())

		require.NoError(t, svc.DeleteClassroom(ctx, owner, c.ID))
		assert.Equal(t, 0, repo.studentCount())

		_, _, err = svc.GetClassroom(ctx, c.ID)
		assert.ErrorIs(t, err, classroom.ErrClassroomNotFound)
	})

	t.Run("GetClassroom_OrdersRoster", func(t *testing.T) {
		svc := classroom.NewService(newMemRepo())
		c, err := svc.CreateClassroom(ctx, owner, classroomInput)
		require.NoError(t, err)
		for _, in := range []classroom.StudentInput{
			studentInput("Laila-4", "99"),
			studentInput("Laila-0", "99"),
			studentInput("Laila-2", "50"),
		} {
			_, err := svc.AddStudent(ctx, owner, c.ID, in)
			require.NoError(t, err)
		}

		_, roster, err := svc.GetClassroom(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Laila-0", "Laila-2", "Laila-4"}, names(roster))
	})

	t.Run("Students_OwnerOnly", func(t *testing.T) {
		repo := newMemRepo()
		svc := classroom.NewService(repo)
		c, err := svc.CreateClassroom(ctx, owner, classroomInput)
		require.NoError(t, err)
		s, err := svc.AddStudent(ctx, owner, c.ID, studentInput("Laila", "90"))
		require.NoError(t, err)

		_, err = svc.AddStudent(ctx, stranger, c.ID, studentInput("Omar", "80"))
		assert.ErrorIs(t, err, classroom.ErrNotOwner)

		_, err = svc.UpdateStudent(ctx, stranger, c.ID, s.ID, studentInput("Changed", "10"))
		assert.ErrorIs(t, err, classroom.ErrNotOwner)

		assert.ErrorIs(t, svc.DeleteStudent(ctx, stranger, c.ID, s.ID), classroom.ErrNotOwner)

		stored, ok := repo.student(s.ID)
		require.True(t, ok)
		assert.Equal(t, "Laila", stored.Name)
		assert.Equal(t, 1, repo.studentCount())
	})

	t.Run("Student_WrongClassroomIsNotFound", func(t *testing.T) {
		svc := classroom.NewService(newMemRepo())
		first, err := svc.CreateClassroom(ctx, owner, classroomInput)
		require.NoError(t, err)
		second, err := svc.CreateClassroom(ctx, owner, classroomInput)
		require.NoError(t, err)
		s, err := svc.AddStudent(ctx, owner, first.ID, studentInput("Laila", "90"))
		require.NoError(t, err)

		_, _, err = svc.GetStudent(ctx, second.ID, s.ID)
		assert.ErrorIs(t, err, classroom.ErrStudentNotFound)

		_, err = svc.UpdateStudent(ctx, owner, second.ID, s.ID, studentInput("Moved", "10"))
		assert.ErrorIs(t, err, classroom.ErrStudentNotFound)

		assert.ErrorIs(t, svc.DeleteStudent(ctx, owner, second.ID, s.ID), classroom.ErrStudentNotFound)
	})

	t.Run("ImportStudents_AllOrNothing", func(t *testing.T) {
		repo := newMemRepo()
		svc := classroom.NewService(repo)
		c, err := svc.CreateClassroom(ctx, owner, classroomInput)
		require.NoError(t, err)

		inputs := []classroom.StudentInput{studentInput("A", "1"), studentInput("B", "2")}

		_, err = svc.ImportStudents(ctx, stranger, c.ID, inputs)
		assert.ErrorIs(t, err, classroom.ErrNotOwner)

		repo.failStudent = errBoom
		_, err = svc.ImportStudents(ctx, owner, c.ID, inputs)
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, 0, repo.studentCount())

		repo.failStudent = nil
		n, err := svc.ImportStudents(ctx, owner, c.ID, inputs)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, 2, repo.studentCount())
	})

	t.Run("Authorize", func(t *testing.T) {
		svc := classroom.NewService(newMemRepo())
		c, err := svc.CreateClassroom(ctx, owner, classroomInput)
		require.NoError(t, err)

		got, err := svc.Authorize(ctx, stranger, c.ID)
		assert.ErrorIs(t, err, classroom.ErrNotOwner)
		require.NotNil(t, got)
		assert.Equal(t, c.ID, got.ID)

		_, err = svc.Authorize(ctx, auth.Anonymous, c.ID)
		assert.ErrorIs(t, err, classroom.ErrSignInRequired)

		_, err = svc.Authorize(ctx, owner, 999)
		assert.ErrorIs(t, err, classroom.ErrClassroomNotFound)
	})
}
