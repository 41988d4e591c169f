package classroom

import "sort"

// SortRoster orders students by name, then exam grade, then id, in place.
// Names compare byte-wise.
func SortRoster(students []Student) {
	sort.SliceStable(students, func(i, j int) bool {
		a, b := students[i], students[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if c := a.ExamGrade.Cmp(b.ExamGrade); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
}
