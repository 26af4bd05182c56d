package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/chirpy"
	"github.com/aweris/chirpy/internal/model"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app, err := chirpy.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	return NewRouter(Services{
		Users:   app.Users,
		Posts:   app.Posts,
		Follows: app.Follows,
		Search:  app.Search,
	}, nil, false)
}

func do(router http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: user})
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func register(t *testing.T, router http.Handler, users ...string) {
	t.Helper()
	for _, u := range users {
		w := do(router, "POST", "/api/register", "", credentials{Username: u, Password: "pw"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := do(router, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])
}

func TestRegisterAndLogin(t *testing.T) {
	router := newTestRouter(t)

	w := do(router, "POST", "/api/register", "", credentials{Username: "alice", Password: "pw"})
	require.Equal(t, http.StatusCreated, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, "alice", cookies[0].Value)

	w = do(router, "POST", "/api/register", "", credentials{Username: "alice", Password: "pw"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(router, "POST", "/api/register", "", credentials{Username: "a!", Password: "pw"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, "POST", "/api/register", "", map[string]string{"username": "bob"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, "POST", "/api/login", "", credentials{Username: "alice", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, "POST", "/api/login", "", credentials{Username: "alice", Password: "pw"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, "POST", "/api/logout", "alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, w.Result().Cookies(), 1)
	assert.Empty(t, w.Result().Cookies()[0].Value)
}

func TestAuthRequired(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/api/timeline", "/api/timeline/following", "/api/search?q=%23go"} {
		assert.Equal(t, http.StatusUnauthorized, do(router, "GET", path, "", nil).Code, path)
		assert.Equal(t, http.StatusUnauthorized, do(router, "GET", path, "ghost", nil).Code, path)
	}
	assert.Equal(t, http.StatusUnauthorized, do(router, "POST", "/api/posts", "", map[string]string{"content": "hi"}).Code)
}

func TestPostAndTimelines(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "alice", "bob", "carol")

	w := do(router, "POST", "/api/posts", "alice", map[string]string{"content": "hello #golang"})
	require.Equal(t, http.StatusCreated, w.Code)
	post := decode[model.Post](t, w)
	assert.Equal(t, "alice", post.Owner)
	assert.NotEmpty(t, post.ID)

	w = do(router, "POST", "/api/posts", "carol", map[string]string{"content": "lunch"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(router, "POST", "/api/posts", "alice", map[string]string{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Equal(t, http.StatusOK, do(router, "POST", "/api/follow/alice", "bob", nil).Code)

	w = do(router, "GET", "/api/timeline", "bob", nil)
	assert.Len(t, decode[[]model.Post](t, w), 2)

	w = do(router, "GET", "/api/timeline/following", "bob", nil)
	following := decode[[]model.Post](t, w)
	require.Len(t, following, 1)
	assert.Equal(t, "hello #golang", following[0].Content)

	w = do(router, "GET", "/api/users/alice/posts", "", nil)
	assert.Len(t, decode[[]model.Post](t, w), 1)
}

func TestFollowEndpoints(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "alice", "bob")

	assert.Equal(t, http.StatusOK, do(router, "POST", "/api/follow/bob", "alice", nil).Code)
	assert.Equal(t, http.StatusConflict, do(router, "POST", "/api/follow/bob", "alice", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, "POST", "/api/follow/alice", "alice", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(router, "POST", "/api/follow/ghost", "alice", nil).Code)

	w := do(router, "GET", "/api/users/bob/followers", "", nil)
	assert.Equal(t, []string{"alice"}, decode[[]string](t, w))
	w = do(router, "GET", "/api/users/alice/following", "", nil)
	assert.Equal(t, []string{"bob"}, decode[[]string](t, w))

	assert.Equal(t, http.StatusOK, do(router, "DELETE", "/api/follow/bob", "alice", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(router, "DELETE", "/api/follow/bob", "alice", nil).Code)

	w = do(router, "GET", "/api/users/bob/followers", "", nil)
	assert.Empty(t, decode[[]string](t, w))

	assert.Equal(t, http.StatusNotFound, do(router, "GET", "/api/users/ghost/followers", "", nil).Code)
}

func TestSearchEndpoint(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "alice")
	do(router, "POST", "/api/posts", "alice", map[string]string{"content": "learning #golang"})

	w := do(router, "GET", "/api/search?q=%23golang", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Post](t, w), 1)

	w = do(router, "GET", "/api/search?q=golang", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListUsersHidesPasswords(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "bob", "alice")

	w := do(router, "GET", "/api/users", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "pw")

	users := decode[[]model.Account](t, w)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
}

func TestChangePasswordEndpoint(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "alice")

	w := do(router, "POST", "/api/password", "alice", map[string]string{"current": "bad", "new": "pw2"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, "POST", "/api/password", "alice", map[string]string{"current": "pw", "new": "pw2"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, "POST", "/api/login", "", credentials{Username: "alice", Password: "pw2"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
