// Package agent runs the full build pipeline as one interactive session.
package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tatianab/game-builder/internal/engine"
	"github.com/tatianab/game-builder/internal/phase"
	"github.com/tatianab/game-builder/internal/tui"
)

// Asker collects a line of user input.
type Asker interface {
	Ask(title, placeholder string) (string, error)
}

// Agent orchestrates clarify, plan and execute in a single process.
type Agent struct {
	clarifier *phase.Clarifier
	planner   *phase.Planner
	executor  *phase.Executor
	ask       Asker
	ui        *tui.Console
	outputDir string
	log       *zap.Logger
}

func New(backend engine.Backend, prompts *engine.Prompts, ask Asker, ui *tui.Console, outputDir string, log *zap.Logger) *Agent {
	return &Agent{
		clarifier: phase.NewClarifier(backend, prompts, log),
		planner:   phase.NewPlanner(backend, prompts, log),
		executor:  phase.NewExecutor(backend, prompts, log),
		ask:       ask,
		ui:        ui,
		outputDir: outputDir,
		log:       log.Named("agent"),
	}
}

// Run prompts for a game idea and builds it. It returns the directory
// holding the generated files, or "" if the user gave no idea.
func (a *Agent) Run(ctx context.Context) (string, error) {
	a.ui.Banner()
	idea, err := a.ask.Ask("\nWhat game would you like me to build?", "a snake game with power-ups")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(idea) == "" {
		a.ui.Info("No game idea provided. Exiting.")
		return "", nil
	}

	a.ui.Phase(1, "Requirements Clarification")
	out, err := a.clarifier.Run(ctx, idea, func(questions string, round int) (string, error) {
		a.ui.Round(round, questions)
		return a.ask.Ask("You:", "press Enter to let the agent decide")
	})
	if err != nil {
		return "", err
	}
	if out.State == phase.MaxRoundsForced {
		a.ui.Info(fmt.Sprintf("[Max rounds (%d) reached, proceeding with current info]", phase.MaxRounds))
	} else {
		a.ui.Info(fmt.Sprintf("[Requirements clarified after %d round(s)]", out.Dialogue.Rounds))
	}
	a.ui.Summary(out.Summary)

	a.ui.Phase(2, "Game Planning")
	plan, conv, err := a.planner.Plan(ctx, out.Summary, out.Dialogue.Conversation)
	if err != nil {
		return "", err
	}
	a.ui.Plan(plan)

	a.ui.Phase(3, "Code Generation")
	a.ui.Info("Generating game code (this may take a moment)...")
	res, err := a.executor.Execute(ctx, plan, conv, a.outputDir)
	if err != nil {
		return "", err
	}
	if res.Retried {
		a.ui.Warn("game.js was too short or missing, so it was regenerated once.")
	}
	a.ui.Written(res.Dir, res.Files, res.Missing)
	a.ui.Complete(res.Dir)

	a.log.Info("build finished", zap.String("dir", res.Dir))
	return res.Dir, nil
}
