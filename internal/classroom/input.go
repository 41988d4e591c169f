package classroom

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shahzadkashif/Classrooms/internal/form"

	"github.com/shopspring/decimal"
)

const (
	gradeMaxDigits     = 4
	gradeDecimalPlaces = 2
)

var dateLayouts = []string{"2006-01-02", "01/02/2006", "01/02/06"}

var (
	classroomFields = []string{"name", "subject", "year"}
	studentFields   = []string{"name", "date_of_birth", "gender", "exam_grade"}
)

type classroomForm struct {
	Name    string `form:"name" validate:"max=120"`
	Subject string `form:"subject" validate:"required,max=120"`
	Year    string `form:"year" validate:"required"`
}

type studentForm struct {
	Name        string `form:"name" validate:"required,max=120"`
	DateOfBirth string `form:"date_of_birth" validate:"required"`
	Gender      string `form:"gender" validate:"omitempty,oneof=unspecified male female"`
	ExamGrade   string `form:"exam_grade" validate:"required"`
}

type ClassroomInput struct {
	Name    string
	Subject string
	Year    int
}

type StudentInput struct {
	Name        string
	DateOfBirth time.Time
	Gender      Gender
	ExamGrade   decimal.Decimal
}

// ParseClassroom validates submitted classroom fields. Any error means the
// input must not be applied.
func ParseClassroom(v *form.Validator, values url.Values) (ClassroomInput, form.Errors) {
	raw := form.Values(values, classroomFields...)
	f := classroomForm{Name: raw["name"], Subject: raw["subject"], Year: raw["year"]}

	errs := v.Struct(f)
	in := ClassroomInput{Name: f.Name, Subject: f.Subject}

	if !errs.Has("year") {
		year, err := strconv.Atoi(f.Year)
		if err != nil {
			errs.Add("year", "Enter a whole number.")
		}
		in.Year = year
	}

	return in, errs
}

// ParseStudent validates submitted student fields. Gender defaults to unspecified.
func ParseStudent(v *form.Validator, values url.Values) (StudentInput, form.Errors) {
	raw := form.Values(values, studentFields...)
	f := studentForm{
		Name:        raw["name"],
		DateOfBirth: raw["date_of_birth"],
		Gender:      strings.ToLower(raw["gender"]),
		ExamGrade:   raw["exam_grade"],
	}

	errs := v.Struct(f)
	in := StudentInput{Name: f.Name}

	if !errs.Has("date_of_birth") {
		dob, ok := parseDate(f.DateOfBirth)
		if !ok {
			errs.Add("date_of_birth", "Enter a valid date.")
		}
		in.DateOfBirth = dob
	}

	if !errs.Has("gender") {
		in.Gender, _ = ParseGender(f.Gender)
	}

	if !errs.Has("exam_grade") {
		grade, msg := parseGrade(f.ExamGrade)
		if msg != "" {
			errs.Add("exam_grade", msg)
		}
		in.ExamGrade = grade
	}

	return in, errs
}

// ClassroomValues is the form echo for an existing classroom.
func ClassroomValues(c *Classroom) map[string]string {
	return map[string]string{
		"name":    c.Name,
		"subject": c.Subject,
		"year":    strconv.Itoa(c.Year),
	}
}

// StudentValues is the form echo for an existing student.
func StudentValues(s *Student) map[string]string {
	return map[string]string{
		"name":          s.Name,
		"date_of_birth": s.DateOfBirth.Format(dateLayouts[0]),
		"gender":        string(s.Gender),
		"exam_grade":    s.ExamGrade.StringFixed(gradeDecimalPlaces),
	}
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseGrade enforces numeric(4,2): at most 4 digits, 2 after the point and
// 2 before it. Trailing zeros count, so "95.500" is rejected.
func parseGrade(s string) (decimal.Decimal, string) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, "Enter a number."
	}

	digits, decimals := digitCounts(d)
	switch {
	case digits > gradeMaxDigits:
		return d, fmt.Sprintf("Ensure that there are no more than %d digits in total.", gradeMaxDigits)
	case decimals > gradeDecimalPlaces:
		return d, fmt.Sprintf("Ensure that there are no more than %d decimal places.", gradeDecimalPlaces)
	case digits-decimals > gradeMaxDigits-gradeDecimalPlaces:
		return d, fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", gradeMaxDigits-gradeDecimalPlaces)
	}
	return d.Round(gradeDecimalPlaces), ""
}

func digitCounts(d decimal.Decimal) (digits, decimals int) {
	coefficient := d.Coefficient()
	n := len(coefficient.Abs(coefficient).String())
	exp := int(d.Exponent())

	if exp >= 0 {
		if d.IsZero() {
			return n, 0
		}
		return n + exp, 0
	}
	if -exp > n {
		return -exp, -exp
	}
	return n, -exp
}
