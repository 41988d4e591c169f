package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shahzadkashif/Classrooms/internal/app"
	"github.com/shahzadkashif/Classrooms/internal/auth"
	"github.com/shahzadkashif/Classrooms/internal/classroom"
	"github.com/shahzadkashif/Classrooms/internal/logger"
	"github.com/shahzadkashif/Classrooms/internal/metrics"
	"github.com/shahzadkashif/Classrooms/internal/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newBrowser(t *testing.T, base string) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: base,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) get(path string, out any) *http.Response {
	b.t.Helper()
	resp, err := b.client.Get(b.base + path)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(b.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (b *browser) post(path string, values url.Values) *http.Response {
	b.t.Helper()
	resp, err := b.client.Post(b.base+path, "application/x-www-form-urlencoded", strings.NewReader(values.Encode()))
	require.NoError(b.t, err)
	resp.Body.Close()
	return resp
}

// csrf fetches the CSRF token rendered into a form view.
func (b *browser) csrf(path string) string {
	b.t.Helper()
	var view struct {
		CSRFToken string `json:"csrfToken"`
	}
	resp := b.get(path, &view)
	require.Equal(b.t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(b.t, view.CSRFToken)
	return view.CSRFToken
}

func (b *browser) signup(username string) {
	b.t.Helper()
	resp := b.post("/signup", url.Values{"username": {username}, "password": {"correct-horse"}})
	require.Equal(b.t, http.StatusFound, resp.StatusCode)
	require.Equal(b.t, "/classrooms", resp.Header.Get("Location"))
}

func TestFlow_Postgres(t *testing.T) {
	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	pgContainer.RunMigrations(t, append(auth.Tables(), classroom.Tables()...)...)
	testdb.CleanupTables(t, pgContainer.DB, "students", "classrooms", "sessions", "teachers")

	m := metrics.NewMock()
	authService := auth.NewService(
		auth.NewTeacherRepository(pgContainer.DB, m),
		auth.NewSessionRepository(pgContainer.DB, m),
		auth.NewTokenIssuer("flow-secret", "classroom-service"),
		time.Hour,
		m,
	)
	server := httptest.NewServer(app.NewRouter(app.Routes{
		Logger:     logger.Discard(),
		DB:         pgContainer.DB,
		Auth:       authService,
		Classrooms: classroom.NewService(classroom.NewRepository(pgContainer.DB, m)),
		Metrics:    m,
	}))
	defer server.Close()

	laila := newBrowser(t, server.URL)
	laila.signup("laila")

	token := laila.csrf("/classrooms/new")

	resp := laila.post("/classrooms/new", url.Values{"subject": {"Science"}, "year": {"2020"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "missing csrf token")

	resp = laila.post("/classrooms/new", url.Values{"csrf_token": {token}, "name": {"5A"}, "subject": {"Science"}, "year": {"2020"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	var list struct {
		Classrooms []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"classrooms"`
		Notice string `json:"notice"`
	}
	laila.get("/classrooms", &list)
	require.Len(t, list.Classrooms, 1)
	assert.Equal(t, "Successfully Created!", list.Notice)
	id := list.Classrooms[0].ID
	detailPath := fmt.Sprintf("/classrooms/%d", id)

	resp = laila.post(detailPath+"/students/new", url.Values{
		"csrf_token":    {token},
		"name":          {"Laila"},
		"date_of_birth": {"2010-05-01"},
		"gender":        {"female"},
		"exam_grade":    {"95.5"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, detailPath, resp.Header.Get("Location"))

	var detail struct {
		Editable bool `json:"editable"`
		Students []struct {
			Name      string `json:"name"`
			ExamGrade string `json:"examGrade"`
		} `json:"students"`
	}
	laila.get(detailPath, &detail)
	assert.True(t, detail.Editable)
	require.Len(t, detail.Students, 1)
	assert.Equal(t, "95.50", detail.Students[0].ExamGrade)

	omar := newBrowser(t, server.URL)
	omar.signup("omar")
	omarToken := omar.csrf("/classrooms/new")

	var strangerView struct {
		Editable bool `json:"editable"`
	}
	omar.get(detailPath, &strangerView)
	assert.False(t, strangerView.Editable)

	resp = omar.post(detailPath+"/delete", url.Values{"csrf_token": {omarToken}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, detailPath, resp.Header.Get("Location"))

	resp = laila.get(detailPath, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "stranger must not delete")

	resp = laila.post(detailPath+"/delete", url.Values{"csrf_token": {token}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/classrooms", resp.Header.Get("Location"))

	count, err := pgContainer.DB.NewSelect().Model((*classroom.Student)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	resp = laila.get("/signout", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	resp = laila.get("/classrooms", nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/signin", resp.Header.Get("Location"))
}
