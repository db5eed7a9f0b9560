package bootstrap_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitkit/internal/bootstrap"
	"habitkit/internal/platform/config"
	"habitkit/internal/platform/httpx"
	"habitkit/internal/platform/logging"
)

func newApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "challenges.yaml"), []byte("challenges:\n  - id: walk\n    title: Daily Walk\n    points: 10\n"), 0o644))
	cfg, err := config.New(dir)
	require.NoError(t, err)
	cfg.UserID = "local"

	app, err := bootstrap.New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestRouterServesLifecycleAndMetrics(t *testing.T) {
	t.Parallel()
	app := newApp(t)
	router := app.Router()
	changes, cancel := app.Broadcaster.Subscribe("u9")
	defer cancel()

	call := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(httpx.UserHeader, "u9")
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, call(http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, call(http.MethodPost, "/v1/challenges/walk/session", "").Code)

	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("start did not signal subscribers")
	}

	w := call(http.MethodGet, "/v1/sessions/in-progress", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"challenge_title":"Daily Walk"`)

	w = call(http.MethodPost, "/v1/challenges/walk/session/complete", `{"answers":{"How far?":"5km"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"session_deactivated":true`)

	assert.Equal(t, http.StatusNotFound, call(http.MethodGet, "/v1/challenges/walk/session", "").Code)

	w = call(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `habitkit_session_operations_total{operation="start",outcome="created"} 1`)
}

func TestCLIHandlersUseConfiguredUser(t *testing.T) {
	t.Parallel()
	app := newApp(t)
	ctx := context.Background()

	started, err := app.SessionCLI.Start(ctx, "walk")
	require.NoError(t, err)
	assert.Equal(t, "local", started.Session.UserID)

	items, err := app.SessionCLI.ListInProgress(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Daily Walk", items[0].ChallengeTitle)
}

func TestRouterIgnoresConfiguredUserWithoutHeader(t *testing.T) {
	t.Parallel()
	app := newApp(t)
	router := app.Router()
	ctx := context.Background()

	local, err := app.SessionCLI.Start(ctx, "walk")
	require.NoError(t, err)

	anonymous := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := anonymous(http.MethodPost, "/v1/challenges/walk/session", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"unauthenticated"`)

	w = anonymous(http.MethodPost, "/v1/challenges/walk/session/complete", `{"answers":{"How far?":"5km"}}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, http.StatusNotFound, anonymous(http.MethodGet, "/v1/challenges/walk/session", "").Code)
	assert.Equal(t, http.StatusNoContent, anonymous(http.MethodDelete, "/v1/challenges/walk/session", "").Code)

	w = anonymous(http.MethodGet, "/v1/sessions/in-progress", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), local.Session.ID)

	still, err := app.SessionCLI.GetActive(ctx, "walk")
	require.NoError(t, err)
	require.True(t, still.Found, "a header-less cancel must not touch the local user's session")
	assert.Equal(t, local.Session.ID, still.Session.ID)
}

func TestSubscribeChangesNeedsConfiguredUser(t *testing.T) {
	t.Parallel()
	app := newApp(t)

	changes, unsubscribe := app.SubscribeChanges()
	defer unsubscribe()
	app.Broadcaster.Publish("someone-else")
	app.Broadcaster.Publish("local")
	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("local user was not signalled")
	}
	select {
	case <-changes:
		t.Fatal("signals for other users leaked into the local subscription")
	default:
	}

	app.Config.UserID = ""
	none, unsubscribeNone := app.SubscribeChanges()
	defer unsubscribeNone()
	assert.Nil(t, none)
}
