package classroom

import "github.com/shahzadkashif/Classrooms/internal/auth"

// CanMutate reports whether identity may change classroom or its roster.
// Only the teacher who created the classroom may.
func CanMutate(identity auth.Identity, classroom *Classroom) bool {
	if identity.IsAnonymous() || classroom == nil {
		return false
	}
	return classroom.TeacherID == identity.TeacherID
}
