package auth

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/shahzadkashif/Classrooms/internal/httputil"
)

type contextKey string

const (
	identityKey contextKey = "identity"
	sessionKey  contextKey = "session"

	cookieName = "token"
	// CSRFField is the form field carrying the session CSRF token.
	CSRFField  = "csrf_token"
	CSRFHeader = "X-CSRF-Token"
)

// Authenticate resolves the auth cookie into an Identity on the request context.
// Requests without a valid cookie continue as anonymous.
func Authenticate(service *Service, logger *slog.Logger, secureCookie bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, session, err := service.Authenticate(r.Context(), cookie.Value)
			if err != nil {
				logger.Debug("discarding auth cookie", "path", r.URL.Path, "error", err)
				ClearAuthCookie(w, secureCookie)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity, session)))
		})
	}
}

// VerifyCSRF rejects authenticated unsafe requests whose CSRF token does not
// match the session's.
func VerifyCSRF(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			session := SessionFrom(r.Context())
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}

			token := r.Header.Get(CSRFHeader)
			if token == "" {
				token = r.PostFormValue(CSRFField)
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(session.CSRFToken)) != 1 {
				logger.Warn("csrf token mismatch", "path", r.URL.Path, "teacher_id", session.TeacherID)
				httputil.RespondWithError(w, http.StatusForbidden, "CSRF verification failed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity stores the caller and its session on ctx.
func WithIdentity(ctx context.Context, identity Identity, session *Session) context.Context {
	ctx = context.WithValue(ctx, identityKey, identity)
	return context.WithValue(ctx, sessionKey, session)
}

// IdentityFrom returns the caller, or Anonymous.
func IdentityFrom(ctx context.Context) Identity {
	identity, ok := ctx.Value(identityKey).(Identity)
	if !ok {
		return Anonymous
	}
	return identity
}

func SessionFrom(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionKey).(*Session)
	return session
}

// CSRFToken returns the token views must echo back, or "" when anonymous.
func CSRFToken(ctx context.Context) string {
	if session := SessionFrom(ctx); session != nil {
		return session.CSRFToken
	}
	return ""
}

// SetAuthCookie sets JWT token in secure HttpOnly cookie
func SetAuthCookie(w http.ResponseWriter, token string, expiresAt time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
	})
}

// ClearAuthCookie removes the auth cookie
func ClearAuthCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
