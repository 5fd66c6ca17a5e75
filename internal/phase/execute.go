package phase

import (
	"context"
	"encoding/json"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/tatianab/game-builder/internal/engine"
	"github.com/tatianab/game-builder/internal/extract"
	"github.com/tatianab/game-builder/internal/models"
)

// MinScriptLength is the number of characters below which game.js is
// regenerated once.
const MinScriptLength = 200

var executeSettings = engine.Settings{
	Temperature:     engine.Temperature(0.7),
	MaxOutputTokens: 16384,
}

// Result describes a completed code generation.
type Result struct {
	Dir          string
	Files        models.ArtifactSet
	Missing      []string
	Retried      bool
	Conversation models.Conversation
}

// Executor generates the game files from a plan.
type Executor struct {
	backend engine.Backend
	prompts *engine.Prompts
	log     *zap.Logger
}

func NewExecutor(backend engine.Backend, prompts *engine.Prompts, log *zap.Logger) *Executor {
	return &Executor{backend: backend, prompts: prompts, log: log.Named("execute")}
}

// Execute asks the backend for the three artifacts and writes them to dir.
// If game.js is missing or short, one regeneration is requested; whatever
// is present afterwards is written.
func (e *Executor) Execute(ctx context.Context, plan models.GamePlan, history models.Conversation, dir string) (*Result, error) {
	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return nil, err
	}
	msg, err := e.prompts.ExecuteMessage(string(planJSON))
	if err != nil {
		return nil, err
	}

	text, conv, err := engine.Exchange(ctx, e.backend, e.prompts.ExecuteSystem, history, msg, executeSettings)
	if err != nil {
		return nil, err
	}
	files := extract.Artifacts(text)

	res := &Result{Files: files}
	if utf8.RuneCountInString(files[models.GameJS]) < MinScriptLength {
		e.log.Warn("game.js too short or missing, requesting regeneration",
			zap.Int("chars", utf8.RuneCountInString(files[models.GameJS])))
		retryText, retryConv, err := engine.Exchange(ctx, e.backend, e.prompts.ExecuteSystem, conv, e.prompts.Retry, executeSettings)
		if err != nil {
			return nil, err
		}
		conv = retryConv
		res.Retried = true
		if js, ok := extract.Script(retryText); ok {
			files[models.GameJS] = js
		}
	}

	for _, name := range models.ArtifactNames {
		if _, ok := files[name]; !ok {
			res.Missing = append(res.Missing, name)
		}
	}
	if len(res.Missing) > 0 {
		e.log.Warn("artifacts missing from response", zap.Strings("missing", res.Missing))
	}

	abs, err := files.Save(dir)
	if err != nil {
		return nil, err
	}
	for _, name := range models.ArtifactNames {
		if content, ok := files[name]; ok {
			e.log.Info("written", zap.String("file", name), zap.Int("chars", utf8.RuneCountInString(content)))
		}
	}

	res.Dir = abs
	res.Conversation = conv
	return res, nil
}
