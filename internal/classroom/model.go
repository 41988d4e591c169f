package classroom

import (
	"strings"
	"time"

	"github.com/shahzadkashif/Classrooms/internal/db"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Classroom struct {
	bun.BaseModel `bun:"table:classrooms,alias:c"`

	ID        int    `bun:"id,pk,autoincrement" json:"id"`
	Name      string `bun:"name,notnull,type:varchar(120)" json:"name"`
	Subject   string `bun:"subject,notnull,type:varchar(120)" json:"subject"`
	Year      int    `bun:"year,notnull" json:"year"`
	TeacherID int    `bun:"teacher_id,notnull" json:"teacherId"`
}

type Student struct {
	bun.BaseModel `bun:"table:students,alias:s"`

	ID          int             `bun:"id,pk,autoincrement" json:"id"`
	Name        string          `bun:"name,notnull,type:varchar(120)" json:"name"`
	DateOfBirth time.Time       `bun:"date_of_birth,notnull,type:date" json:"dateOfBirth"`
	Gender      Gender          `bun:"gender,notnull,type:varchar(16),default:'unspecified'" json:"gender"`
	ExamGrade   decimal.Decimal `bun:"exam_grade,notnull,type:numeric(4,2)" json:"examGrade"`
	ClassroomID int             `bun:"classroom_id,notnull" json:"classroomId"`
}

type Gender string

const (
	GenderUnspecified Gender = "unspecified"
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
)

// ParseGender accepts the enumeration case-insensitively. Empty means unspecified.
func ParseGender(s string) (Gender, bool) {
	switch g := Gender(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GenderUnspecified, true
	case GenderUnspecified, GenderMale, GenderFemale:
		return g, true
	default:
		return "", false
	}
}

// Label is the display form of g.
func (g Gender) Label() string {
	switch g {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	default:
		return "-"
	}
}

// Tables lists the classroom tables in creation order. teachers must exist first.
func Tables() []db.Table {
	return []db.Table{
		{
			Model:       (*Classroom)(nil),
			ForeignKeys: []string{`("teacher_id") REFERENCES "teachers" ("id") ON DELETE CASCADE`},
		},
		{
			Model:       (*Student)(nil),
			ForeignKeys: []string{`("classroom_id") REFERENCES "classrooms" ("id") ON DELETE CASCADE`},
		},
	}
}
