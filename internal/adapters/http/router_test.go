package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Rota/internal/adapters/feed"
	"github.com/dkeye/Rota/internal/announce"
	"github.com/dkeye/Rota/internal/app"
	"github.com/dkeye/Rota/internal/app/orch"
	"github.com/dkeye/Rota/internal/config"
	"github.com/dkeye/Rota/internal/domain"
	"github.com/dkeye/Rota/internal/storage/memory"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return newLimitedRouter(t, config.RateLimit{})
}

func newLimitedRouter(t *testing.T, rl config.RateLimit) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f, err := announce.New("en")
	require.NoError(t, err)
	hub := feed.NewHub()
	o := &orch.Orchestrator{
		Engine:    app.NewEngine(memory.New()),
		Formatter: f,
		Publisher: hub,
		Topics: map[domain.Kind]announce.Topic{
			"milk": {Title: "🥛 Milk queue", Emoji: "🥛"},
		},
	}
	cfg := &config.Config{Mode: "test", FeedBuffer: 8, ReadLimit: 1024, RateLimit: rl}
	return SetupRouter(context.Background(), cfg, o, hub)
}

type reply struct {
	Result  string `json:"result"`
	Message string `json:"message"`
	Listing string `json:"listing"`
}

func do(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, reply) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out reply
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

const milk = "/api/groups/-100/rosters/milk"

func TestRosterRoutes(t *testing.T) {
	r := newTestRouter(t)

	w, out := do(t, r, http.MethodPost, milk+"/join", `{"id":1,"display_name":"@alice"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "joined", out.Result)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	w, out = do(t, r, http.MethodPost, milk+"/join", `{"id":1,"display_name":"@alice"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_member", out.Result)

	_, _ = do(t, r, http.MethodPost, milk+"/join", `{"id":2,"display_name":"@bob"}`)

	w, out = do(t, r, http.MethodPost, milk+"/advance", `{"id":2}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "not_your_turn", out.Result)

	w, out = do(t, r, http.MethodPost, milk+"/advance", `{"id":1}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "advanced", out.Result)

	w, out = do(t, r, http.MethodGet, milk, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "🥛 Milk queue\n1. @bob ← current\n2. @alice", out.Message)

	w, out = do(t, r, http.MethodPost, milk+"/leave", `{"id":3}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_member", out.Result)

	w, out = do(t, r, http.MethodPut, milk+"/announcement", `{"announcement_id":"42"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bound", out.Result)
}

func TestEmptyQueueIsConflict(t *testing.T) {
	r := newTestRouter(t)
	w, out := do(t, r, http.MethodPost, milk+"/advance", `{"id":1}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "empty_queue", out.Result)
}

func TestBadInput(t *testing.T) {
	r := newTestRouter(t)

	cases := []struct {
		name, method, path, body string
	}{
		{"group not numeric", http.MethodGet, "/api/groups/abc/rosters/milk", ""},
		{"unknown kind", http.MethodGet, "/api/groups/1/rosters/tea", ""},
		{"missing id", http.MethodPost, milk + "/join", `{"display_name":"@alice"}`},
		{"blank name", http.MethodPost, milk + "/join", `{"id":1,"display_name":"   "}`},
		{"broken body", http.MethodPost, milk + "/leave", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, out := do(t, r, tc.method, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "error", out.Result)
		})
	}
}

func TestCommandsAreRateLimited(t *testing.T) {
	r := newLimitedRouter(t, config.RateLimit{Commands: 2, Window: time.Minute})

	w, _ := do(t, r, http.MethodPost, milk+"/join", `{"id":1,"display_name":"@alice"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodPost, milk+"/join", `{"id":1,"display_name":"@alice"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	w, out := do(t, r, http.MethodPost, milk+"/leave", `{"id":1}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "error", out.Result)

	w, _ = do(t, r, http.MethodPost, milk+"/join", `{"id":2,"display_name":"@bob"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestMetricsExposed(t *testing.T) {
	r := newTestRouter(t)
	_, _ = do(t, r, http.MethodGet, milk, "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rota_http_requests_total")
}
