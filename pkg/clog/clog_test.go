package clog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextAttributes(t *testing.T) {
	ctx := context.Background()
	AddAttribute(ctx, "ignored", 1)
	assert.Nil(t, GetAttributes(ctx))

	ctx = ContextWithSlog(ctx)
	AddAttributes(ctx, map[string]any{"task_id": "t1", "nested": map[string]any{"a": 1}})
	AddAttributes(ctx, map[string]any{"nested": map[string]any{"b": 2}})
	AddError(ctx, errors.New("boom"))

	assert.Equal(t, "t1", GetAttribute[string](ctx, "task_id"))
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, GetAttributes(ctx)["nested"])
	assert.EqualError(t, GetError(ctx), "boom")

	child := ContextWithSlog(ctx)
	AddAttribute(child, "worker_id", "w1")
	assert.Equal(t, "t1", GetAttribute[string](child, "task_id"))
	assert.Empty(t, GetAttribute[string](ctx, "worker_id"))
}

func TestTextHandler_WritesColumnsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewAttributesHandler(NewTextHandler(&buf, WithColor(false), WithLevel(slog.LevelDebug))))

	ctx := ContextWithSlog(context.Background())
	AddAttributes(ctx, map[string]any{"task_id": "t1", "code": "NO_AVAILABLE_WORKERS"})
	logger.InfoContext(ctx, "task not assigned", "group_id", "g1")

	out := buf.String()
	require.True(t, strings.Contains(out, `t1 NO_AVAILABLE_WORKERS "task not assigned"`), out)
	assert.Contains(t, out, "    group_id=g1\n")
}

func TestTextHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewTextHandler(&buf, WithColor(false)))
	logger.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestHTTPStatusToLevel(t *testing.T) {
	assert.Equal(t, LevelInfo, HTTPStatusToLevel(200))
	assert.Equal(t, LevelInfo, HTTPStatusToLevel(499))
	assert.Equal(t, LevelWarn, HTTPStatusToLevel(404))
	assert.Equal(t, LevelError, HTTPStatusToLevel(503))
}

func TestSlogChiMiddleware(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(NewAttributesHandler(slog.NewJSONHandler(&buf, nil))))
	t.Cleanup(func() { slog.SetDefault(prev) })

	r := chi.NewRouter()
	r.Use(SlogChiMiddleware(WithChiSkipPaths("/quiet")))
	r.Get("/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/quiet", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tasks/t1", nil))
	out := buf.String()
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"route":"/tasks/{id}"`)
	assert.Contains(t, out, `"path":"/tasks/t1"`)
	assert.Contains(t, out, `"status":404`)

	buf.Reset()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/quiet", nil))
	assert.Empty(t, buf.String())
}

func TestLevelSlog(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, LevelWarn.Slog())
	assert.Equal(t, slog.LevelError, HTTPStatusToLevel(500).Slog())
	assert.Equal(t, slog.LevelInfo, HTTPStatusToLevel(201).Slog())
}
