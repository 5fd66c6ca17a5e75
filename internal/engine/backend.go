package engine

import (
	"context"

	"github.com/tatianab/game-builder/internal/models"
)

// Settings are per-request generation parameters. Zero values leave the
// backend defaults in place.
type Settings struct {
	Temperature     *float32
	MaxOutputTokens int32
}

// Temperature returns a pointer to t for use in Settings.
func Temperature(t float32) *float32 { return &t }

// Request is a single round-trip: the system instruction, the prior
// conversation and the new user turn.
type Request struct {
	System   string
	History  models.Conversation
	Message  string
	Settings Settings
}

// Backend is the generative text service. Send returns the model's reply
// to req.Message given req.History.
type Backend interface {
	Send(ctx context.Context, req Request) (string, error)
}

// Exchange sends msg and returns the reply along with the conversation
// extended by both turns.
func Exchange(ctx context.Context, b Backend, system string, history models.Conversation, msg string, s Settings) (string, models.Conversation, error) {
	reply, err := b.Send(ctx, Request{
		System:   system,
		History:  history.Clone(),
		Message:  msg,
		Settings: s,
	})
	if err != nil {
		return "", history, err
	}
	return reply, history.Append(models.RoleUser, msg).Append(models.RoleModel, reply), nil
}
