package phase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tatianab/game-builder/internal/engine"
	"github.com/tatianab/game-builder/internal/errs"
	"github.com/tatianab/game-builder/internal/extract"
	"github.com/tatianab/game-builder/internal/models"
)

var planSettings = engine.Settings{Temperature: engine.Temperature(0.4)}

// Planner turns clarified requirements into a GamePlan.
type Planner struct {
	backend engine.Backend
	prompts *engine.Prompts
	log     *zap.Logger
}

func NewPlanner(backend engine.Backend, prompts *engine.Prompts, log *zap.Logger) *Planner {
	return &Planner{backend: backend, prompts: prompts, log: log.Named("plan")}
}

// Plan performs a single round-trip with the prior conversation and returns
// the extracted plan and the extended conversation. Extraction failures are
// not retried.
func (p *Planner) Plan(ctx context.Context, requirements string, history models.Conversation) (models.GamePlan, models.Conversation, error) {
	msg, err := p.prompts.PlanMessage(requirements)
	if err != nil {
		return nil, history, err
	}
	text, conv, err := engine.Exchange(ctx, p.backend, p.prompts.PlanSystem, history, msg, planSettings)
	if err != nil {
		return nil, history, err
	}

	var plan models.GamePlan
	if err := extract.JSON(text, &plan); err != nil {
		return nil, history, fmt.Errorf("plan: %w", err)
	}
	if plan == nil {
		return nil, history, fmt.Errorf("plan: %w", errs.NewParseError("JSON object", text, nil))
	}

	p.log.Info("game plan ready",
		zap.String("title", plan.Title("Untitled")),
		zap.String("framework", plan.Framework()),
		zap.Strings("mechanics", plan.Mechanics()))
	return plan, conv, nil
}
