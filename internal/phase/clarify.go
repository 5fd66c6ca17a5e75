// Package phase implements the three build stages: requirements
// clarification, game planning and code generation.
package phase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tatianab/game-builder/internal/engine"
	"github.com/tatianab/game-builder/internal/errs"
	"github.com/tatianab/game-builder/internal/models"
)

// MaxRounds caps the regular clarification responses before a summary is forced.
const MaxRounds = 5

// State is the position of a clarification dialogue.
type State int

const (
	AwaitingInitial State = iota
	AwaitingUserReply
	Clear
	MaxRoundsForced
)

func (s State) String() string {
	switch s {
	case AwaitingInitial:
		return "awaiting_initial"
	case AwaitingUserReply:
		return "awaiting_user_reply"
	case Clear:
		return "clear"
	case MaxRoundsForced:
		return "max_rounds_forced"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome is the result of one clarification step.
type Outcome struct {
	State State
	// Message is the text to show the user: the backend's questions while
	// awaiting a reply, the summary once done.
	Message  string
	Summary  string
	Dialogue models.Dialogue
}

// Done reports whether requirements are final.
func (o *Outcome) Done() bool {
	return o.State == Clear || o.State == MaxRoundsForced
}

// Clarifier runs the requirements Q&A against the backend.
type Clarifier struct {
	backend   engine.Backend
	prompts   *engine.Prompts
	log       *zap.Logger
	maxRounds int
}

func NewClarifier(backend engine.Backend, prompts *engine.Prompts, log *zap.Logger) *Clarifier {
	return &Clarifier{
		backend:   backend,
		prompts:   prompts,
		log:       log.Named("clarify"),
		maxRounds: MaxRounds,
	}
}

// Start sends the game idea as the first turn of a new dialogue.
func (c *Clarifier) Start(ctx context.Context, idea string) (*Outcome, error) {
	idea = strings.TrimSpace(idea)
	if idea == "" {
		return nil, fmt.Errorf("game idea: %w", errs.ErrEmptyInput)
	}
	msg, err := c.prompts.IdeaMessage(idea)
	if err != nil {
		return nil, err
	}
	return c.step(ctx, models.Dialogue{Idea: idea}, msg)
}

// Reply sends the user's answer and performs exactly one regular round-trip,
// plus the forced summary request when the round cap is reached.
func (c *Clarifier) Reply(ctx context.Context, d models.Dialogue, reply string) (*Outcome, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, fmt.Errorf("message: %w", errs.ErrEmptyInput)
	}
	return c.step(ctx, d, reply)
}

// AskFunc collects the user's answer to the backend's questions.
type AskFunc func(questions string, round int) (string, error)

// Run drives the dialogue to completion, asking the user between rounds.
// Empty answers are replaced by the default reply.
func (c *Clarifier) Run(ctx context.Context, idea string, ask AskFunc) (*Outcome, error) {
	out, err := c.Start(ctx, idea)
	if err != nil {
		return nil, err
	}
	for !out.Done() {
		answer, err := ask(out.Message, out.Dialogue.Rounds)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(answer) == "" {
			answer = c.prompts.DefaultReply
		}
		if out, err = c.Reply(ctx, out.Dialogue, answer); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *Clarifier) step(ctx context.Context, d models.Dialogue, msg string) (*Outcome, error) {
	text, conv, err := engine.Exchange(ctx, c.backend, c.prompts.ClarifySystem, d.Conversation, msg, engine.Settings{})
	if err != nil {
		return nil, err
	}
	d.Conversation = conv
	d.Rounds++

	if strings.Contains(text, c.prompts.ClearToken) {
		summary := c.summary(text, d.Idea)
		c.log.Info("requirements clear", zap.Int("rounds", d.Rounds))
		return &Outcome{State: Clear, Message: summary, Summary: summary, Dialogue: d}, nil
	}
	if d.Rounds >= c.maxRounds {
		return c.force(ctx, d)
	}

	c.log.Debug("awaiting reply", zap.Int("round", d.Rounds))
	return &Outcome{State: AwaitingUserReply, Message: text, Dialogue: d}, nil
}

func (c *Clarifier) force(ctx context.Context, d models.Dialogue) (*Outcome, error) {
	c.log.Info("max rounds reached, forcing summary", zap.Int("rounds", d.Rounds))
	text, conv, err := engine.Exchange(ctx, c.backend, c.prompts.ClarifySystem, d.Conversation, c.prompts.ForceSummary, engine.Settings{})
	if err != nil {
		return nil, err
	}
	d.Conversation = conv
	summary := c.summary(text, d.Idea)
	return &Outcome{State: MaxRoundsForced, Message: summary, Summary: summary, Dialogue: d}, nil
}

// summary returns the text after the clear token. It never returns an
// empty string: it falls back to the whole response, then to the idea.
func (c *Clarifier) summary(text, idea string) string {
	if _, after, ok := strings.Cut(text, c.prompts.ClearToken); ok {
		if s := strings.TrimSpace(after); s != "" {
			return s
		}
	}
	if s := strings.TrimSpace(strings.ReplaceAll(text, c.prompts.ClearToken, "")); s != "" {
		return s
	}
	return "Game idea: " + idea
}
