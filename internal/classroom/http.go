package classroom

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shahzadkashif/Classrooms/internal/auth"
	"github.com/shahzadkashif/Classrooms/internal/form"
	"github.com/shahzadkashif/Classrooms/internal/httputil"
	"github.com/shahzadkashif/Classrooms/internal/metrics"

	"github.com/go-chi/chi/v5"
)

const (
	listURL   = "/classrooms"
	signinURL = "/signin"

	maxImportSize = 10 << 20
	xlsxMIME      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	noticeCreated  = "Successfully Created!"
	noticeEdited   = "Successfully Edited!"
	noticeDeleted  = "Successfully Deleted!"
	noticeImported = "Successfully Imported %d students!"
)

// Mutations refused to non-owners, used as metric labels.
const (
	actionUpdateClassroom = "update_classroom"
	actionDeleteClassroom = "delete_classroom"
	actionAddStudent      = "add_student"
	actionImportStudents  = "import_students"
	actionUpdateStudent   = "update_student"
	actionDeleteStudent   = "delete_student"
)

var denialNotices = map[string]string{
	actionUpdateClassroom: "Only the teacher of this classroom can update its information.",
	actionDeleteClassroom: "Only the teacher of this classroom can delete it.",
	actionAddStudent:      "Only the teacher of this classroom can add students.",
	actionImportStudents:  "Only the teacher of this classroom can add students.",
	actionUpdateStudent:   "Only the teacher of this classroom can update student information.",
	actionDeleteStudent:   "Only the teacher of this classroom can delete students.",
}

type Handler struct {
	service   Service
	validator *form.Validator
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewHandler(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service:   service,
		validator: form.NewValidator(),
		logger:    logger,
		metrics:   metrics,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/classrooms", func(r chi.Router) {
		r.Use(auth.RequireLogin)

		r.Get("/", h.List)
		r.Get("/new", h.CreateForm)
		r.Post("/new", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Detail)
			r.Get("/edit", h.EditForm)
			r.Post("/edit", h.Update)
			r.Get("/delete", h.DeleteConfirm)
			r.Post("/delete", h.Delete)

			r.Route("/students", func(r chi.Router) {
				r.Get("/new", h.AddStudentForm)
				r.Post("/new", h.AddStudent)
				r.Get("/export.xlsx", h.ExportRoster)
				r.Post("/import", h.ImportRoster)
				r.Get("/{sid}/edit", h.EditStudentForm)
				r.Post("/{sid}/edit", h.UpdateStudent)
				r.Get("/{sid}/delete", h.DeleteStudentConfirm)
				r.Post("/{sid}/delete", h.DeleteStudent)
			})
		})
	})
}

type classroomView struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Subject   string `json:"subject"`
	Year      int    `json:"year"`
	TeacherID int    `json:"teacherId"`
	URL       string `json:"url"`
}

type studentView struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	DateOfBirth string `json:"dateOfBirth"`
	Gender      Gender `json:"gender"`
	GenderLabel string `json:"genderLabel"`
	ExamGrade   string `json:"examGrade"`
	EditURL     string `json:"editUrl,omitempty"`
	DeleteURL   string `json:"deleteUrl,omitempty"`
}

type listView struct {
	Classrooms []classroomView `json:"classrooms"`
	Notice     string          `json:"notice,omitempty"`
	CreateURL  string          `json:"createUrl"`
}

type detailView struct {
	Classroom     classroomView `json:"classroom"`
	Students      []studentView `json:"students"`
	Notice        string        `json:"notice,omitempty"`
	CSRFToken     string        `json:"csrfToken,omitempty"`
	Editable      bool          `json:"editable"`
	ExportURL     string        `json:"exportUrl"`
	EditURL       string        `json:"editUrl,omitempty"`
	DeleteURL     string        `json:"deleteUrl,omitempty"`
	AddStudentURL string        `json:"addStudentUrl,omitempty"`
	ImportURL     string        `json:"importUrl,omitempty"`
}

type formView struct {
	form.View
	Classroom *classroomView `json:"classroom,omitempty"`
}

type confirmView struct {
	Classroom classroomView `json:"classroom"`
	Student   *studentView  `json:"student,omitempty"`
	Notice    string        `json:"notice,omitempty"`
	CSRFToken string        `json:"csrfToken,omitempty"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	classrooms, err := h.service.ListClassrooms(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err, 0, "")
		return
	}

	view := listView{
		Classrooms: make([]classroomView, 0, len(classrooms)),
		Notice:     httputil.PopNotice(w, r),
		CreateURL:  listURL + "/new",
	}
	for i := range classrooms {
		view.Classrooms = append(view.Classrooms, newClassroomView(&classrooms[i]))
	}
	httputil.RespondWithJSON(w, http.StatusOK, view)
}

func (h *Handler) CreateForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, form.Values(nil, classroomFields...), form.Errors{}, true, nil)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	in, errs := ParseClassroom(h.validator, r.PostForm)
	if !errs.Valid() {
		h.renderForm(w, r, form.Values(r.PostForm, classroomFields...), errs, true, nil)
		return
	}

	identity := auth.IdentityFrom(r.Context())
	classroom, err := h.service.CreateClassroom(r.Context(), identity, in)
	if err != nil {
		h.handleServiceError(w, r, err, 0, "")
		return
	}

	h.logger.InfoContext(r.Context(), "classroom created", "classroom_id", classroom.ID, "teacher_id", identity.TeacherID)
	h.metrics.RecordClassroomCreated(r.Context())
	httputil.SetNotice(w, noticeCreated)
	httputil.Redirect(w, r, listURL)
}

func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	classroom, students, err := h.service.GetClassroom(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err, id, "")
		return
	}

	editable := CanMutate(auth.IdentityFrom(r.Context()), classroom)
	base := classroomURL(id)
	view := detailView{
		Classroom: newClassroomView(classroom),
		Students:  make([]studentView, 0, len(students)),
		Notice:    httputil.PopNotice(w, r),
		CSRFToken: auth.CSRFToken(r.Context()),
		Editable:  editable,
		ExportURL: base + "/students/export.xlsx",
	}
	if editable {
		view.EditURL = base + "/edit"
		view.DeleteURL = base + "/delete"
		view.AddStudentURL = base + "/students/new"
		view.ImportURL = base + "/students/import"
	}
	for i := range students {
		view.Students = append(view.Students, newStudentView(&students[i], editable))
	}
	httputil.RespondWithJSON(w, http.StatusOK, view)
}

// EditForm shows the classroom form. Non-owners see it read-only.
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	classroom, err := h.service.Authorize(r.Context(), auth.IdentityFrom(r.Context()), id)
	editable := err == nil
	if err != nil && !errors.Is(err, ErrNotOwner) {
		h.handleServiceError(w, r, err, id, actionUpdateClassroom)
		return
	}

	cv := newClassroomView(classroom)
	h.renderForm(w, r, ClassroomValues(classroom), form.Errors{}, editable, &cv)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	identity := auth.IdentityFrom(r.Context())

	classroom, err := h.service.Authorize(r.Context(), identity, id)
	if err != nil {
		h.handleServiceError(w, r, err, id, actionUpdateClassroom)
		return
	}

	if err := r.ParseForm(); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	in, errs := ParseClassroom(h.validator, r.PostForm)
	if !errs.Valid() {
		cv := newClassroomView(classroom)
		h.renderForm(w, r, form.Values(r.PostForm, classroomFields...), errs, true, &cv)
		return
	}

	if _, err := h.service.UpdateClassroom(r.Context(), identity, id, in); err != nil {
		h.handleServiceError(w, r, err, id, actionUpdateClassroom)
		return
	}

	h.logger.InfoContext(r.Context(), "classroom updated", "classroom_id", id)
	httputil.SetNotice(w, noticeEdited)
	httputil.Redirect(w, r, listURL)
}

func (h *Handler) DeleteConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	classroom, err := h.service.Authorize(r.Context(), auth.IdentityFrom(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, r, err, id, actionDeleteClassroom)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, confirmView{
		Classroom: newClassroomView(classroom),
		Notice:    httputil.PopNotice(w, r),
		CSRFToken: auth.CSRFToken(r.Context()),
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteClassroom(r.Context(), auth.IdentityFrom(r.Context()), id); err != nil {
		h.handleServiceError(w, r, err, id, actionDeleteClassroom)
		return
	}

	h.logger.InfoContext(r.Context(), "classroom deleted", "classroom_id", id)
	h.metrics.RecordClassroomDeleted(r.Context())
	httputil.SetNotice(w, noticeDeleted)
	httputil.Redirect(w, r, listURL)
}

func (h *Handler) AddStudentForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	classroom, err := h.service.Authorize(r.Context(), auth.IdentityFrom(r.Context()), id)
	if err != nil {
		h.handleServiceError(w, r, err, id, actionAddStudent)
		return
	}

	values := form.Values(nil, studentFields...)
	values["gender"] = string(GenderUnspecified)
	cv := newClassroomView(classroom)
	h.renderForm(w, r, values, form.Errors{}, true, &cv)
}

func (h *Handler) AddStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	identity := auth.IdentityFrom(r.Context())

	classroom, err := h.service.Authorize(r.Context(), identity, id)
	if err != nil {
		h.handleServiceError(w, r, err, id, actionAddStudent)
		return
	}

	if err := r.ParseForm(); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	in, errs := ParseStudent(h.validator, r.PostForm)
	if !errs.Valid() {
		cv := newClassroomView(classroom)
		h.renderForm(w, r, form.Values(r.PostForm, studentFields...), errs, true, &cv)
		return
	}

	student, err := h.service.AddStudent(r.Context(), identity, id, in)
	if err != nil {
		h.handleServiceError(w, r, err, id, actionAddStudent)
		return
	}

	h.logger.InfoContext(r.Context(), "student added", "classroom_id", id, "student_id", student.ID)
	h.metrics.RecordStudentCreated(r.Context())
	httputil.SetNotice(w, noticeCreated)
	httputil.Redirect(w, r, classroomURL(id))
}

// ImportRoster adds every row of an uploaded workbook to the roster. One bad
// row rejects the whole upload.
func (h *Handler) ImportRoster(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	identity := auth.IdentityFrom(r.Context())

	classroom, err := h.service.Authorize(r.Context(), identity, id)
	if err != nil {
		h.handleServiceError(w, r, err, id, actionImportStudents)
		return
	}
	cv := newClassroomView(classroom)

	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		errs := form.Errors{}
		errs.Add("file", "This field is required.")
		h.renderForm(w, r, map[string]string{}, errs, true, &cv)
		return
	}
	defer file.Close()

	inputs, errs := ReadRoster(h.validator, file)
	if !errs.Valid() {
		h.renderForm(w, r, map[string]string{}, errs, true, &cv)
		return
	}

	n, err := h.service.ImportStudents(r.Context(), identity, id, inputs)
	if err != nil {
		h.handleServiceError(w, r, err, id, actionImportStudents)
		return
	}

	h.logger.InfoContext(r.Context(), "roster imported", "classroom_id", id, "students", n)
	h.metrics.RecordStudentsCreated(r.Context(), n)
	httputil.SetNotice(w, fmt.Sprintf(noticeImported, n))
	httputil.Redirect(w, r, classroomURL(id))
}

func (h *Handler) ExportRoster(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	_, students, err := h.service.GetClassroom(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err, id, "")
		return
	}

	var buf bytes.Buffer
	if err := WriteRoster(&buf, students); err != nil {
		h.handleServiceError(w, r, err, id, "")
		return
	}

	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="classroom-%d-roster.xlsx"`, id))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.DebugContext(r.Context(), "failed to send roster export", "classroom_id", id, "error", err)
	}
}

// EditStudentForm shows the student form. Non-owners see it read-only.
func (h *Handler) EditStudentForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	sid, ok := h.pathID(w, r, "sid")
	if !ok {
		return
	}

	classroom, student, err := h.service.GetStudent(r.Context(), id, sid)
	if err != nil {
		h.handleServiceError(w, r, err, id, actionUpdateStudent)
		return
	}

	editable := CanMutate(auth.IdentityFrom(r.Context()), classroom)
	cv := newClassroomView(classroom)
	h.renderForm(w, r, StudentValues(student), form.Errors{}, editable, &cv)
}

func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	sid, ok := h.pathID(w, r, "sid")
	if !ok {
		return
	}
	identity := auth.IdentityFrom(r.Context())

	classroom, err := h.service.Authorize(r.Context(), identity, id)
	if err != nil {
		h.handleServiceError(w, r, err, id, actionUpdateStudent)
		return
	}

	if err := r.ParseForm(); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	in, errs := ParseStudent(h.validator, r.PostForm)
	if !errs.Valid() {
		cv := newClassroomView(classroom)
		h.renderForm(w, r, form.Values(r.PostForm, studentFields...), errs, true, &cv)
		return
	}

	if _, err := h.service.UpdateStudent(r.Context(), identity, id, sid, in); err != nil {
		h.handleServiceError(w, r, err, id, actionUpdateStudent)
		return
	}

	h.logger.InfoContext(r.Context(), "student updated", "classroom_id", id, "student_id", sid)
	httputil.SetNotice(w, noticeEdited)
	httputil.Redirect(w, r, classroomURL(id))
}

func (h *Handler) DeleteStudentConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	sid, ok := h.pathID(w, r, "sid")
	if !ok {
		return
	}

	if _, err := h.service.Authorize(r.Context(), auth.IdentityFrom(r.Context()), id); err != nil {
		h.handleServiceError(w, r, err, id, actionDeleteStudent)
		return
	}

	classroom, student, err := h.service.GetStudent(r.Context(), id, sid)
	if err != nil {
		h.handleServiceError(w, r, err, id, actionDeleteStudent)
		return
	}

	sv := newStudentView(student, false)
	httputil.RespondWithJSON(w, http.StatusOK, confirmView{
		Classroom: newClassroomView(classroom),
		Student:   &sv,
		Notice:    httputil.PopNotice(w, r),
		CSRFToken: auth.CSRFToken(r.Context()),
	})
}

func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	sid, ok := h.pathID(w, r, "sid")
	if !ok {
		return
	}

	if err := h.service.DeleteStudent(r.Context(), auth.IdentityFrom(r.Context()), id, sid); err != nil {
		h.handleServiceError(w, r, err, id, actionDeleteStudent)
		return
	}

	h.logger.InfoContext(r.Context(), "student deleted", "classroom_id", id, "student_id", sid)
	h.metrics.RecordStudentDeleted(r.Context())
	httputil.SetNotice(w, noticeDeleted)
	httputil.Redirect(w, r, classroomURL(id))
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, values map[string]string, errs form.Errors, editable bool, classroom *classroomView) {
	httputil.RespondWithJSON(w, http.StatusOK, formView{
		View: form.View{
			Form:      values,
			Errors:    errs,
			Notice:    httputil.PopNotice(w, r),
			CSRFToken: auth.CSRFToken(r.Context()),
			Editable:  editable,
		},
		Classroom: classroom,
	})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, key))
	if err != nil || id <= 0 {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid "+key)
		return 0, false
	}
	return id, true
}

// deny refuses a mutation: nothing changes and the caller lands on the
// classroom detail with a notice.
func (h *Handler) deny(w http.ResponseWriter, r *http.Request, classroomID int, action string) {
	h.logger.WarnContext(r.Context(), "mutation denied",
		"action", action,
		"classroom_id", classroomID,
		"teacher_id", auth.IdentityFrom(r.Context()).TeacherID,
	)
	h.metrics.RecordMutationDenied(r.Context(), action)
	httputil.SetNotice(w, denialNotices[action])
	httputil.Redirect(w, r, classroomURL(classroomID))
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, classroomID int, action string) {
	switch {
	case errors.Is(err, ErrSignInRequired):
		httputil.Redirect(w, r, signinURL)
	case errors.Is(err, ErrNotOwner):
		h.deny(w, r, classroomID, action)
	case errors.Is(err, ErrClassroomNotFound):
		h.logger.InfoContext(r.Context(), "classroom not found", "classroom_id", classroomID)
		httputil.RespondWithError(w, http.StatusNotFound, "Classroom not found")
	case errors.Is(err, ErrStudentNotFound):
		h.logger.InfoContext(r.Context(), "student not found", "classroom_id", classroomID)
		httputil.RespondWithError(w, http.StatusNotFound, "Student not found")
	default:
		h.logger.ErrorContext(r.Context(), "internal error", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func classroomURL(id int) string {
	return listURL + "/" + strconv.Itoa(id)
}

func newClassroomView(c *Classroom) classroomView {
	return classroomView{
		ID:        c.ID,
		Name:      c.Name,
		Subject:   c.Subject,
		Year:      c.Year,
		TeacherID: c.TeacherID,
		URL:       classroomURL(c.ID),
	}
}

func newStudentView(s *Student, editable bool) studentView {
	v := studentView{
		ID:          s.ID,
		Name:        s.Name,
		DateOfBirth: s.DateOfBirth.Format(dateLayouts[0]),
		Gender:      s.Gender,
		GenderLabel: s.Gender.Label(),
		ExamGrade:   s.ExamGrade.StringFixed(gradeDecimalPlaces),
	}
	if editable {
		base := fmt.Sprintf("%s/students/%d", classroomURL(s.ClassroomID), s.ID)
		v.EditURL = base + "/edit"
		v.DeleteURL = base + "/delete"
	}
	return v
}
