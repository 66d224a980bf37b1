package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/folio/internal/analytics"
	"github.com/Zachkp/folio/internal/chatbot"
	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/conversation"
	"github.com/Zachkp/folio/internal/db"
	"github.com/Zachkp/folio/internal/mailer"
	"github.com/Zachkp/folio/internal/portfolio"
	"github.com/Zachkp/folio/internal/storage"
)

const testAdminToken = "test-admin-token"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	server *Server
	kv     *storage.MemoryStore
}

func newTestEnv(t *testing.T, withTracker bool) *testEnv {
	t.Helper()

	cfg := &config.Config{
		ServiceName:      "folio-test",
		Environment:      "test",
		Port:             "0",
		ShutdownTimeout:  time.Second,
		StaticDir:        t.TempDir(),
		ImagesDir:        t.TempDir(),
		AdminUsername:    "admin",
		AdminPassword:    "secret",
		VisitorRetention: time.Hour,
	}

	env := &testEnv{kv: storage.NewMemoryStore()}

	chats, err := conversation.NewRegistry(16, env.kv, chatbot.NewMatcher(chatbot.Default()), conversation.Options{
		Delay: func() time.Duration { return 10 * time.Millisecond },
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(chats.Close)

	m := mailer.New(mailer.Config{Host: "localhost", Port: "25", Username: "u", Password: "p", To: "me@example.com"}, zerolog.Nop()).
		WithSender(func(string, smtp.Auth, string, []string, []byte) error { return nil })

	deps := Deps{
		Config:     cfg,
		Log:        zerolog.Nop(),
		Content:    portfolio.Default(),
		KV:         env.kv,
		Chats:      chats,
		Mailer:     m,
		AdminToken: testAdminToken,
	}
	if withTracker {
		database, err := db.OpenMemory()
		require.NoError(t, err)
		t.Cleanup(func() { database.Close() })
		tracker, err := analytics.NewTracker(database, zerolog.Nop())
		require.NoError(t, err)
		deps.Tracker = tracker
	}

	env.server, err = New(deps)
	require.NoError(t, err)
	return env
}

// do performs a request, carrying cookies from earlier responses.
func (e *testEnv) do(t *testing.T, req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func sessionCookies(t *testing.T, w *httptest.ResponseRecorder) []*http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie {
			return []*http.Cookie{c}
		}
	}
	t.Fatalf("no %s cookie set", sessionCookie)
	return nil
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) conversation.State {
	t.Helper()
	var st conversation.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	return st
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, false)
	w := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestNewRequiresAdminToken(t *testing.T) {
	_, err := New(Deps{Config: &config.Config{}})
	assert.Error(t, err)
}

func TestIndexRendersGreetingAndSetsSession(t *testing.T) {
	env := newTestEnv(t, false)
	w := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, sessionCookies(t, w))
	assert.Contains(t, w.Body.String(), "Alex Morgan")
	assert.Contains(t, w.Body.String(), `id="chat-widget"`)
	assert.Equal(t, colorSchemeHint, w.Header().Get("Accept-CH"))
}

func TestChatSendProducesDelayedReply(t *testing.T) {
	env := newTestEnv(t, false)

	first := env.do(t, httptest.NewRequest(http.MethodGet, "/api/chat", nil), nil)
	require.Equal(t, http.StatusOK, first.Code)
	cookies := sessionCookies(t, first)
	st := decodeState(t, first)
	require.Len(t, st.Messages, 1)
	assert.Equal(t, conversation.DefaultGreeting, st.Messages[0].Text)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/messages", strings.NewReader(`{"message":"What skills do you have?"}`))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(t, req, cookies)
	require.Equal(t, http.StatusAccepted, w.Code)

	st = decodeState(t, w)
	require.Len(t, st.Messages, 2)
	assert.Equal(t, conversation.RoleUser, st.Messages[1].Role)
	assert.True(t, st.Typing)

	var final conversation.State
	require.Eventually(t, func() bool {
		final = decodeState(t, env.do(t, httptest.NewRequest(http.MethodGet, "/api/chat", nil), cookies))
		return len(final.Messages) == 3
	}, 2*time.Second, 10*time.Millisecond)

	assert.False(t, final.Typing)
	assert.Equal(t, conversation.RoleBot, final.Messages[2].Role)
	assert.Equal(t, chatbot.NewMatcher(chatbot.Default()).Resolve("What skills do you have?"), final.Messages[2].Text)
}

func TestChatSendRejectsEmptyMessage(t *testing.T) {
	env := newTestEnv(t, false)
	for _, body := range []string{`{"message":""}`, `{"message":"   "}`, `{}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/api/chat/messages", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := env.do(t, req, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestChatTogglePersistsPerSession(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, httptest.NewRequest(http.MethodPost, "/api/chat/toggle", nil), nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := sessionCookies(t, w)
	assert.True(t, decodeState(t, w).Open)

	id := cookies[0].Value
	raw, ok, err := env.kv.Get(t.Context(), storage.SessionPrefix(id)+conversation.OpenKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "true", raw)

	w = env.do(t, httptest.NewRequest(http.MethodPost, "/api/chat/toggle", nil), cookies)
	assert.False(t, decodeState(t, w).Open)

	// A different visitor starts closed.
	other := env.do(t, httptest.NewRequest(http.MethodGet, "/api/chat", nil), nil)
	assert.False(t, decodeState(t, other).Open)
}

func TestChatFragmentRendersOpenWidget(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, httptest.NewRequest(http.MethodPost, "/chat/open", nil), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `class="chat open"`)
	cookies := sessionCookies(t, w)

	form := url.Values{"message": {"how can I contact you"}}
	req := httptest.NewRequest(http.MethodPost, "/chat/messages", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = env.do(t, req, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "how can I contact you")
	assert.Contains(t, w.Body.String(), `hx-trigger="load delay:500ms"`)
}

func TestResumeDownloads(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/resume.json", nil), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "attachment; filename=resume.json", w.Header().Get("Content-Disposition"))
	var r portfolio.Resume
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	assert.Equal(t, "Alex Morgan", r.Name)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/resume.txt", nil), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "EXPERIENCE")
}

func TestThemeCycles(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, httptest.NewRequest(http.MethodPost, "/theme", nil), nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	cookies := sessionCookies(t, w)

	req := httptest.NewRequest(http.MethodPost, "/theme", nil)
	req.Header.Set("HX-Request", "true")
	w = env.do(t, req, cookies)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "true", w.Header().Get("HX-Refresh"))

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/", nil), cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<html lang="en" class="dark">`)
}

func TestContactForm(t *testing.T) {
	env := newTestEnv(t, false)

	form := url.Values{"fullName": {"Sam"}, "email": {"sam@example.com"}, "message": {"Hello"}}
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := env.do(t, req, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Thank you")

	form.Set("email", "not-an-address")
	req = httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = env.do(t, req, nil)
	assert.Contains(t, w.Body.String(), "notice error")
}

func TestAdminRequiresLogin(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil), nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/login", w.Header().Get("Location"))

	bad := url.Values{"username": {"admin"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(bad.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = env.do(t, req, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	good := url.Values{"username": {"admin"}, "password": {"secret"}}
	req = httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(good.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = env.do(t, req, nil)
	require.Equal(t, http.StatusFound, w.Code)

	var token *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == adminCookie {
			token = c
		}
	}
	require.NotNil(t, token)
	assert.Equal(t, testAdminToken, token.Value)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil), []*http.Cookie{token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Fallback rate")

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/admin/api/stats", nil), []*http.Cookie{token})
	require.Equal(t, http.StatusOK, w.Code)
	var stats analytics.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
}

func TestAdminWithoutTracker(t *testing.T) {
	env := newTestEnv(t, false)
	cookie := &http.Cookie{Name: adminCookie, Value: testAdminToken}

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/admin/api/stats", nil), []*http.Cookie{cookie})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestTrackable(t *testing.T) {
	assert.True(t, trackable(http.MethodGet, "/"))
	assert.True(t, trackable(http.MethodGet, "/github"))
	assert.False(t, trackable(http.MethodPost, "/"))
	assert.False(t, trackable(http.MethodGet, "/static/css/site.css"))
	assert.False(t, trackable(http.MethodGet, "/api/chat"))
	assert.False(t, trackable(http.MethodGet, "/admin/dashboard"))
}

func TestVisitTrackingFinishesBeforeWait(t *testing.T) {
	env := newTestEnv(t, true)

	env.do(t, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	dnt := httptest.NewRequest(http.MethodGet, "/github", nil)
	dnt.Header.Set("DNT", "1")
	env.do(t, dnt, nil)
	env.do(t, httptest.NewRequest(http.MethodGet, "/api/chat", nil), nil)

	env.server.tracking.Wait()

	stats, err := env.server.tracker.Stats(t.Context())
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalVisitors)
	require.Len(t, stats.RecentVisitors, 1)
	assert.Equal(t, "/", stats.RecentVisitors[0].Path)
}

func TestMetricsExposeChatResolutions(t *testing.T) {
	env := newTestEnv(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/messages", strings.NewReader(`{"message":"where is your github"}`))
	req.Header.Set("Content-Type", "application/json")
	require.Equal(t, http.StatusAccepted, env.do(t, req, nil).Code)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "folio_chatbot_resolutions_total")
	assert.Contains(t, body, `topic="github"`)
	assert.Contains(t, body, "folio_http_requests_total")
}
