package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithError(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithError(w, http.StatusNotFound, "classroom not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"classroom not found"}`, w.Body.String())
}

func TestRedirect(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/classrooms/new", nil)
	Redirect(w, r, "/signin")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/signin", w.Header().Get("Location"))
}

func TestNotice_RoundTrip(t *testing.T) {
	w := httptest.NewRecorder()
	SetNotice(w, "Successfully Created!")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	r := httptest.NewRequest(http.MethodGet, "/classrooms/1", nil)
	r.AddCookie(cookies[0])
	w2 := httptest.NewRecorder()

	assert.Equal(t, "Successfully Created!", PopNotice(w2, r))

	expired := w2.Result().Cookies()
	require.Len(t, expired, 1)
	assert.Equal(t, noticeCookie, expired[0].Name)
	assert.Less(t, expired[0].MaxAge, 0)
}

func TestPopNotice_None(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/classrooms", nil)

	assert.Empty(t, PopNotice(w, r))
	assert.Empty(t, w.Result().Cookies())
}
