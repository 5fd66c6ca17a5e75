package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"github.com/tatianab/game-builder/internal/engine"
	"github.com/tatianab/game-builder/internal/engine/enginetest"
	"github.com/tatianab/game-builder/internal/errs"
	"github.com/tatianab/game-builder/internal/extract"
	"github.com/tatianab/game-builder/internal/models"
	"github.com/tatianab/game-builder/internal/session"
)

// fakeBackend asks one question, then reports the idea as the only
// requirement; the plan title and the generated script carry the idea so
// builds can be told apart.
func fakeBackend(p *engine.Prompts) enginetest.Func {
	return func(_ context.Context, req engine.Request) (string, error) {
		switch req.System {
		case p.ClarifySystem:
			if len(req.History) == 0 {
				return "Which colour scheme?", nil
			}
			idea := strings.TrimPrefix(req.History[0].Text(), "Game idea: ")
			return p.ClearToken + "\n- " + idea, nil
		case p.PlanSystem:
			requirements := strings.TrimPrefix(req.Message, "Here are the clarified requirements:\n\n- ")
			title, _, _ := strings.Cut(requirements, "\n")
			return fmt.Sprintf("```json\n{\"title\": %q}\n```", title), nil
		case p.ExecuteSystem:
			var plan models.GamePlan
			if err := extract.JSON(req.Message, &plan); err != nil {
				return "", err
			}
			script := "// " + plan.Title("") + "\n" + strings.Repeat("tick();\n", 40)
			return "```html\n<html></html>\n```\n```css\nbody{}\n```\n```js\n" + script + "```", nil
		}
		return "", fmt.Errorf("unexpected system prompt")
	}
}

func newTestService(t *testing.T, backend engine.Backend) (*Service, string) {
	log := zaptest.NewLogger(t)
	dir := t.TempDir()
	return NewService(backend, engine.DefaultPrompts(), session.NewStore(0, log), dir, log), dir
}

func clarify(t *testing.T, s *Service, idea string) string {
	t.Helper()
	ctx := context.Background()
	reply, err := s.Start(ctx, idea)
	require.NoError(t, err)
	require.False(t, reply.IsClear)

	next, err := s.Continue(ctx, reply.SessionID, "dark")
	require.NoError(t, err)
	require.True(t, next.IsClear)
	assert.Equal(t, "- "+idea, next.Response)
	return reply.SessionID
}

func TestServiceFlow(t *testing.T) {
	s, dir := newTestService(t, fakeBackend(engine.DefaultPrompts()))
	ctx := context.Background()

	id := clarify(t, s, "Asteroid Dodge")

	result, err := s.Build(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, &BuildResult{Success: true, Title: "Asteroid Dodge"}, result)

	js, err := s.Artifact(id, models.GameJS)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(js), "// Asteroid Dodge"))
	_, err = os.Stat(filepath.Join(dir, id, models.GameJS))
	assert.NoError(t, err)

	name, data, err := s.Archive(id)
	require.NoError(t, err)
	assert.Equal(t, "asteroid_dodge.zip", name)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 3)
}

func TestServiceRejections(t *testing.T) {
	s, _ := newTestService(t, fakeBackend(engine.DefaultPrompts()))
	ctx := context.Background()

	_, err := s.Start(ctx, "   ")
	assert.ErrorIs(t, err, errs.ErrEmptyInput)

	_, err = s.Continue(ctx, "missing", "hello")
	assert.ErrorIs(t, err, errs.ErrSessionNotFound)

	reply, err := s.Start(ctx, "Pong")
	require.NoError(t, err)

	_, err = s.Continue(ctx, reply.SessionID, "")
	assert.ErrorIs(t, err, errs.ErrEmptyInput)

	_, err = s.Build(ctx, reply.SessionID)
	assert.ErrorIs(t, err, errs.ErrNotClarified)

	_, err = s.Artifact(reply.SessionID, models.GameJS)
	assert.ErrorIs(t, err, errs.ErrNotBuilt)

	_, _, err = s.Archive(reply.SessionID)
	assert.ErrorIs(t, err, errs.ErrNotBuilt)
}

func TestConcurrentBuildsAreIsolated(t *testing.T) {
	s, dir := newTestService(t, fakeBackend(engine.DefaultPrompts()))
	ideas := []string{"Alpha Invaders", "Bravo Racer", "Charlie Maze"}

	ids := make([]string, len(ideas))
	for i, idea := range ideas {
		ids[i] = clarify(t, s, idea)
	}

	g, ctx := errgroup.WithContext(context.Background())
	for _, id := range ids {
		g.Go(func() error {
			_, err := s.Build(ctx, id)
			return err
		})
	}
	require.NoError(t, g.Wait())

	for i, id := range ids {
		data, err := os.ReadFile(filepath.Join(dir, id, models.GameJS))
		require.NoError(t, err)
		for j, other := range ideas {
			if i == j {
				assert.Contains(t, string(data), other)
			} else {
				assert.NotContains(t, string(data), other)
			}
		}
	}
}

func TestHTTPRoutes(t *testing.T) {
	s, _ := newTestService(t, fakeBackend(engine.DefaultPrompts()))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	post := func(path string, body any) (int, map[string]any) {
		t.Helper()
		data, err := json.Marshal(body)
		require.NoError(t, err)
		resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(data))
		require.NoError(t, err)
		defer resp.Body.Close()
		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return resp.StatusCode, out
	}

	status, out := post("/api/start", map[string]string{"game_idea": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, out["error"])

	status, out = post("/api/start", map[string]string{"game_idea": "Neon Snake"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, out["is_clear"])
	assert.Equal(t, "Which colour scheme?", out["response"])
	id, _ := out["session_id"].(string)
	require.NotEmpty(t, id)

	status, _ = post("/api/build", map[string]string{"session_id": id})
	assert.Equal(t, http.StatusBadRequest, status)

	status, out = post("/api/message", map[string]string{"session_id": id, "message": "neon"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, out["is_clear"])

	status, out = post("/api/message", map[string]string{"session_id": "bogus", "message": "hi"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, out = post("/api/build", map[string]string{"session_id": id})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"success": true, "title": "Neon Snake"}, out)

	resp, err := http.Get(srv.URL + "/api/preview/" + id + "/game.js")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")
	assert.True(t, strings.HasPrefix(string(body), "// Neon Snake"))

	for _, path := range []string{
		"/api/preview/" + id + "/secret.txt",
		"/api/preview/bogus/game.js",
		"/api/download/bogus",
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}

	resp, err = http.Get(srv.URL + "/api/download/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "neon_snake.zip")
}

func TestBuildReportsPlanFailure(t *testing.T) {
	p := engine.DefaultPrompts()
	backend := enginetest.Func(func(ctx context.Context, req engine.Request) (string, error) {
		if req.System == p.PlanSystem {
			return "no plan here", nil
		}
		return fakeBackend(p)(ctx, req)
	})
	s, _ := newTestService(t, backend)
	id := clarify(t, s, "Broken")

	_, err := s.Build(context.Background(), id)
	assert.ErrorIs(t, err, errs.ErrParseExtraction)
}

func TestRebuildDropsStaleArtifacts(t *testing.T) {
	p := engine.DefaultPrompts()
	var scriptless atomic.Bool
	backend := enginetest.Func(func(ctx context.Context, req engine.Request) (string, error) {
		if req.System == p.ExecuteSystem && scriptless.Load() {
			return "```html\n<html>v2</html>\n```", nil
		}
		return fakeBackend(p)(ctx, req)
	})
	s, _ := newTestService(t, backend)
	id := clarify(t, s, "Old Game")
	ctx := context.Background()

	_, err := s.Build(ctx, id)
	require.NoError(t, err)
	_, err = s.Artifact(id, models.GameJS)
	require.NoError(t, err)

	scriptless.Store(true)
	_, err = s.Build(ctx, id)
	require.NoError(t, err)

	html, err := s.Artifact(id, models.IndexHTML)
	require.NoError(t, err)
	assert.Equal(t, "<html>v2</html>", string(html))
	for _, name := range []string{models.StyleCSS, models.GameJS} {
		_, err := s.Artifact(id, name)
		assert.ErrorIs(t, err, os.ErrNotExist, name)
	}
}

func TestFailedExecuteKeepsSession(t *testing.T) {
	p := engine.DefaultPrompts()
	backend := enginetest.Func(func(ctx context.Context, req engine.Request) (string, error) {
		if req.System == p.ExecuteSystem {
			return "", fmt.Errorf("%w: quota exceeded", errs.ErrBackend)
		}
		return fakeBackend(p)(ctx, req)
	})
	s, _ := newTestService(t, backend)
	id := clarify(t, s, "Flaky")

	_, err := s.Build(context.Background(), id)
	require.ErrorIs(t, err, errs.ErrBackend)

	require.NoError(t, s.store.With(id, func(sess *session.Session) error {
		assert.Nil(t, sess.Plan)
		assert.Empty(t, sess.OutputDir)
		assert.Len(t, sess.Dialogue.Conversation, 4)
		return nil
	}))
	_, err = s.Artifact(id, models.IndexHTML)
	assert.ErrorIs(t, err, errs.ErrNotBuilt)
}
