package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shahzadkashif/Classrooms/internal/form"
	"github.com/shahzadkashif/Classrooms/internal/httputil"

	"github.com/go-chi/chi/v5"
)

const (
	signinPath    = "/signin"
	afterLoginURL = "/classrooms"

	msgUsernameTaken      = "A user with that username already exists."
	msgInvalidCredentials = "Please enter a correct username and password. Note that both fields may be case-sensitive."
)

type Handler struct {
	service      *Service
	validator    *form.Validator
	logger       *slog.Logger
	secureCookie bool
}

func NewHandler(service *Service, logger *slog.Logger, secureCookie bool) *Handler {
	return &Handler{
		service:      service,
		validator:    form.NewValidator(),
		logger:       logger,
		secureCookie: secureCookie,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/signup", h.SignupForm)
	r.Post("/signup", h.Signup)
	r.Get("/signin", h.SigninForm)
	r.Post("/signin", h.Signin)
	r.Get("/signout", h.Signout)
}

// RequireLogin redirects anonymous callers to the signin page.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFrom(r.Context()).IsAnonymous() {
			httputil.Redirect(w, r, signinPath)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) SignupForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, map[string]string{"username": ""}, form.Errors{})
}

// Signup creates an account, signs it in and redirects to the classroom list.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	req := SignupRequest{
		Username: strings.TrimSpace(r.PostForm.Get("username")),
		Password: r.PostForm.Get("password"),
	}
	echo := map[string]string{"username": req.Username}

	if errs := h.validator.Struct(req); !errs.Valid() {
		h.logger.Warn("signup validation failed", "fields", len(errs))
		h.render(w, r, echo, errs)
		return
	}

	login, err := h.service.Signup(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			errs := form.Errors{}
			errs.Add("username", msgUsernameTaken)
			h.render(w, r, echo, errs)
			return
		}
		h.logger.Error("signup failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("teacher signed up", "teacher_id", login.Teacher.ID, "username", login.Teacher.Username)
	SetAuthCookie(w, login.Token, login.Session.ExpiresAt, h.secureCookie)
	httputil.Redirect(w, r, afterLoginURL)
}

func (h *Handler) SigninForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, map[string]string{"username": ""}, form.Errors{})
}

// Signin checks credentials. A failure re-renders the form with the username kept.
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	req := SigninRequest{
		Username: strings.TrimSpace(r.PostForm.Get("username")),
		Password: r.PostForm.Get("password"),
	}
	echo := map[string]string{"username": req.Username}

	if errs := h.validator.Struct(req); !errs.Valid() {
		h.render(w, r, echo, errs)
		return
	}

	login, err := h.service.Signin(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.logger.Warn("signin rejected", "username", req.Username)
			errs := form.Errors{}
			errs.Add(form.NonFieldErrors, msgInvalidCredentials)
			h.render(w, r, echo, errs)
			return
		}
		h.logger.Error("signin failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("teacher signed in", "teacher_id", login.Teacher.ID)
	SetAuthCookie(w, login.Token, login.Session.ExpiresAt, h.secureCookie)
	httputil.Redirect(w, r, afterLoginURL)
}

// Signout ends the current session and always lands on signin, even when the
// session store cannot be reached.
func (h *Handler) Signout(w http.ResponseWriter, r *http.Request) {
	if session := SessionFrom(r.Context()); session != nil {
		if err := h.service.Signout(r.Context(), session.ID); err != nil {
			h.logger.Error("failed to delete session on signout", "teacher_id", session.TeacherID, "error", err)
		} else {
			h.logger.Info("teacher signed out", "teacher_id", session.TeacherID)
		}
	}

	ClearAuthCookie(w, h.secureCookie)
	httputil.Redirect(w, r, signinPath)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, values map[string]string, errs form.Errors) {
	httputil.RespondWithJSON(w, http.StatusOK, form.View{
		Form:      values,
		Errors:    errs,
		Notice:    httputil.PopNotice(w, r),
		CSRFToken: CSRFToken(r.Context()),
		Editable:  true,
	})
}
