package agent

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tatianab/game-builder/internal/engine"
	"github.com/tatianab/game-builder/internal/engine/enginetest"
	"github.com/tatianab/game-builder/internal/errs"
	"github.com/tatianab/game-builder/internal/models"
	"github.com/tatianab/game-builder/internal/tui"
)

type scriptedAsker struct {
	answers []string
	asked   []string
}

func (s *scriptedAsker) Ask(title, _ string) (string, error) {
	s.asked = append(s.asked, title)
	if len(s.answers) == 0 {
		return "", errs.ErrInterrupted
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

func TestRunBuildsGame(t *testing.T) {
	script := "// loop\n" + strings.Repeat("step();\n", 40)
	backend := enginetest.NewScripted(
		"Single player or two?",
		"REQUIREMENTS_CLEAR\n- Single player pong",
		"```json\n{\"title\": \"Solo Pong\", \"mechanics\": [\"bounce\"]}\n```",
		"```html\n<html></html>\n```\n```css\nbody{}\n```\n```js\n"+script+"```",
	)
	asker := &scriptedAsker{answers: []string{"pong", "single"}}
	var out bytes.Buffer
	dir := filepath.Join(t.TempDir(), "output")

	a := New(backend, engine.DefaultPrompts(), asker, tui.NewConsole(&out), dir, zaptest.NewLogger(t))
	got, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, dir, got)
	assert.Equal(t, 4, backend.Calls())
	assert.Len(t, asker.asked, 2)
	for _, name := range models.ArtifactNames {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	transcript := out.String()
	assert.Contains(t, transcript, "Single player or two?")
	assert.Contains(t, transcript, "[Requirements clarified after 2 round(s)]")
	assert.Contains(t, transcript, "Game Plan: Solo Pong")
	assert.Contains(t, transcript, "BUILD COMPLETE!")

	// Planning and execution see the whole prior conversation.
	reqs := backend.Requests()
	assert.Len(t, reqs[2].History, 4)
	assert.Len(t, reqs[3].History, 6)
}

func TestRunWithoutIdea(t *testing.T) {
	backend := enginetest.NewScripted()
	var out bytes.Buffer
	a := New(backend, engine.DefaultPrompts(), &scriptedAsker{answers: []string{"  "}}, tui.NewConsole(&out), t.TempDir(), zaptest.NewLogger(t))

	dir, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dir)
	assert.Equal(t, 0, backend.Calls())
	assert.Contains(t, out.String(), "No game idea provided")
}

func TestRunInterrupted(t *testing.T) {
	backend := enginetest.NewScripted("What theme?")
	var out bytes.Buffer
	a := New(backend, engine.DefaultPrompts(), &scriptedAsker{answers: []string{"maze"}}, tui.NewConsole(&out), t.TempDir(), zaptest.NewLogger(t))

	_, err := a.Run(context.Background())
	assert.ErrorIs(t, err, errs.ErrInterrupted)
	assert.Equal(t, 1, backend.Calls())
}
