package classroom

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/shahzadkashif/Classrooms/internal/form"

	"github.com/xuri/excelize/v2"
)

const rosterSheet = "Roster"

var rosterHeader = []interface{}{"Name", "Date of birth", "Gender", "Exam grade"}

// WriteRoster writes students, in the given order, as an XLSX workbook.
func WriteRoster(w io.Writer, students []Student) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), rosterSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(rosterSheet, "A1", &rosterHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, s := range students {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			s.Name,
			s.DateOfBirth.Format(dateLayouts[0]),
			s.Gender.Label(),
			s.ExamGrade.StringFixed(gradeDecimalPlaces),
		}
		if err := f.SetSheetRow(rosterSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ReadRoster parses a workbook laid out like WriteRoster's output. The first
// row is a header. Every row is validated; errors are keyed "row N: field".
func ReadRoster(v *form.Validator, r io.Reader) ([]StudentInput, form.Errors) {
	errs := form.Errors{}

	f, err := excelize.OpenReader(r)
	if err != nil {
		errs.Add("file", "Upload a valid XLSX workbook.")
		return nil, errs
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close workbook", "error", err)
		}
	}()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		errs.Add("file", "The workbook has no sheets.")
		return nil, errs
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	// Raw values keep date cells as serial numbers instead of locale-formatted text.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		errs.Add("file", "The workbook could not be read.")
		return nil, errs
	}

	var inputs []StudentInput
	for i, row := range rows {
		if i == 0 || isBlank(row) {
			continue
		}

		in, rowErrs := ParseStudent(v, rowValues(row, date1904))
		for field, messages := range rowErrs {
			for _, m := range messages {
				errs.Add(fmt.Sprintf("row %d: %s", i+1, field), m)
			}
		}
		inputs = append(inputs, in)
	}

	if len(inputs) == 0 && errs.Valid() {
		errs.Add("file", "The workbook has no student rows.")
	}
	return inputs, errs
}

func rowValues(row []string, date1904 bool) url.Values {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	dateOfBirth := cell(1)
	if serial, err := strconv.ParseFloat(dateOfBirth, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, date1904); err == nil {
			dateOfBirth = t.Format(dateLayouts[0])
		}
	}

	gender := cell(2)
	if gender == GenderUnspecified.Label() {
		gender = ""
	}

	return url.Values{
		"name":          {cell(0)},
		"date_of_birth": {dateOfBirth},
		"gender":        {gender},
		"exam_grade":    {cell(3)},
	}
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
