package classroom_test

import (
	"context"
	"testing"
	"time"

	"github.com/shahzadkashif/Classrooms/internal/auth"
	"github.com/shahzadkashif/Classrooms/internal/classroom"
	"github.com/shahzadkashif/Classrooms/internal/metrics"
	"github.com/shahzadkashif/Classrooms/internal/testdb"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_Postgres(t *testing.T) {
	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	pgContainer.RunMigrations(t, append(auth.Tables(), classroom.Tables()...)...)

	ctx := context.Background()
	mockMetrics := metrics.NewMock()
	teachers := auth.NewTeacherRepository(pgContainer.DB, mockMetrics)
	repo := classroom.NewRepository(pgContainer.DB, mockMetrics)

	reset := func(t *testing.T) *auth.Teacher {
		t.Helper()
		testdb.CleanupTables(t, pgContainer.DB, "students", "classrooms", "sessions", "teachers")
		teacher, err := teachers.Create(ctx, &auth.Teacher{Username: "laila", Password: "hash"})
		require.NoError(t, err)
		return teacher
	}

	newStudent := func(classroomID int, name, grade string) *classroom.Student {
		return &classroom.Student{
			Name:        name,
			DateOfBirth: time.Date(2010, 5, 1, 0, 0, 0, 0, time.UTC),
			Gender:      classroom.GenderFemale,
			ExamGrade:   decimal.RequireFromString(grade),
			ClassroomID: classroomID,
		}
	}

	t.Run("Classroom_CRUD", func(t *testing.T) {
		teacher := reset(t)

		created, err := repo.CreateClassroom(ctx, &classroom.Classroom{Subject: "Science", Year: 2020, TeacherID: teacher.ID})
		require.NoError(t, err)
		assert.NotZero(t, created.ID)

		got, err := repo.GetClassroom(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "", got.Name)
		assert.Equal(t, teacher.ID, got.TeacherID)

		got.Subject = "Art"
		got.TeacherID = teacher.ID + 100
		require.NoError(t, repo.UpdateClassroom(ctx, got))

		reloaded, err := repo.GetClassroom(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Art", reloaded.Subject)
		assert.Equal(t, teacher.ID, reloaded.TeacherID, "owner must never change")

		list, err := repo.ListClassrooms(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		require.NoError(t, repo.DeleteClassroom(ctx, created.ID))
		_, err = repo.GetClassroom(ctx, created.ID)
		assert.ErrorIs(t, err, classroom.ErrClassroomNotFound)
		assert.ErrorIs(t, repo.DeleteClassroom(ctx, created.ID), classroom.ErrClassroomNotFound)
	})

	t.Run("Student_GradeStoredWithTwoDecimals", func(t *testing.T) {
		teacher := reset(t)
		c, err := repo.CreateClassroom(ctx, &classroom.Classroom{Subject: "Science", Year: 2020, TeacherID: teacher.ID})
		require.NoError(t, err)

		created, err := repo.CreateStudent(ctx, newStudent(c.ID, "Laila", "95.5"))
		require.NoError(t, err)

		got, err := repo.GetStudent(ctx, c.ID, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "95.50", got.ExamGrade.String())
		assert.Equal(t, "2010-05-01", got.DateOfBirth.Format("2006-01-02"))
		assert.Equal(t, classroom.GenderFemale, got.Gender)
	})

	t.Run("Student_ScopedToClassroom", func(t *testing.T) {
		teacher := reset(t)
		first, err := repo.CreateClassroom(ctx, &classroom.Classroom{Subject: "Science", Year: 2020, TeacherID: teacher.ID})
		require.NoError(t, err)
		second, err := repo.CreateClassroom(ctx, &classroom.Classroom{Subject: "Art", Year: 2020, TeacherID: teacher.ID})
		require.NoError(t, err)

		s, err := repo.CreateStudent(ctx, newStudent(first.ID, "Laila", "90"))
		require.NoError(t, err)

		_, err = repo.GetStudent(ctx, second.ID, s.ID)
		assert.ErrorIs(t, err, classroom.ErrStudentNotFound)

		s.ClassroomID = second.ID
		s.Name = "Moved"
		assert.ErrorIs(t, repo.UpdateStudent(ctx, s), classroom.ErrStudentNotFound)
		assert.ErrorIs(t, repo.DeleteStudent(ctx, second.ID, s.ID), classroom.ErrStudentNotFound)

		got, err := repo.GetStudent(ctx, first.ID, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "Laila", got.Name)
	})

	t.Run("DeleteClassroom_CascadesToStudents", func(t *testing.T) {
		teacher := reset(t)
		c, err := repo.CreateClassroom(ctx, &classroom.Classroom{Subject: "Science", Year: 2020, TeacherID: teacher.ID})
		require.NoError(t, err)
		require.NoError(t, repo.CreateStudents(ctx, []classroom.Student{
			*newStudent(c.ID, "Laila", "90"),
			*newStudent(c.ID, "Omar", "80"),
		}))

		students, err := repo.ListStudents(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, students, 2)

		require.NoError(t, repo.DeleteClassroom(ctx, c.ID))

		count, err := pgContainer.DB.NewSelect().Model((*classroom.Student)(nil)).Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("CreateStudents_RejectsOverflowAtomically", func(t *testing.T) {
		teacher := reset(t)
		c, err := repo.CreateClassroom(ctx, &classroom.Classroom{Subject: "Science", Year: 2020, TeacherID: teacher.ID})
		require.NoError(t, err)

		err = repo.CreateStudents(ctx, []classroom.Student{
			*newStudent(c.ID, "Laila", "90"),
			*newStudent(c.ID, "Overflow", "1000"),
		})
		assert.Error(t, err)

		students, err := repo.ListStudents(ctx, c.ID)
		require.NoError(t, err)
		assert.Empty(t, students)
	})
}
