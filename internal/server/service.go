// Package server exposes the build pipeline as a stateful web API. Each
// user reply is a separate request; state lives in a session.Store.
package server

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/tatianab/game-builder/internal/engine"
	"github.com/tatianab/game-builder/internal/errs"
	"github.com/tatianab/game-builder/internal/models"
	"github.com/tatianab/game-builder/internal/phase"
	"github.com/tatianab/game-builder/internal/session"
)

// Service implements the session-mode operations independent of transport.
type Service struct {
	store     *session.Store
	clarifier *phase.Clarifier
	planner   *phase.Planner
	executor  *phase.Executor
	outputDir string
	log       *zap.Logger
}

func NewService(backend engine.Backend, prompts *engine.Prompts, store *session.Store, outputDir string, log *zap.Logger) *Service {
	return &Service{
		store:     store,
		clarifier: phase.NewClarifier(backend, prompts, log),
		planner:   phase.NewPlanner(backend, prompts, log),
		executor:  phase.NewExecutor(backend, prompts, log),
		outputDir: outputDir,
		log:       log.Named("server"),
	}
}

// Reply is the result of a clarification request.
type Reply struct {
	SessionID string `json:"session_id,omitempty"`
	Response  string `json:"response"`
	IsClear   bool   `json:"is_clear"`
}

// BuildResult is the result of a build request.
type BuildResult struct {
	Success bool   `json:"success"`
	Title   string `json:"title"`
}

// Start opens a session and runs the first clarification round.
func (s *Service) Start(ctx context.Context, idea string) (*Reply, error) {
	out, err := s.clarifier.Start(ctx, idea)
	if err != nil {
		return nil, err
	}
	id := s.store.Create(func(sess *session.Session) {
		sess.Dialogue = out.Dialogue
		sess.Requirements = out.Summary
	})
	s.log.Info("session started", zap.String("session_id", id), zap.Bool("clear", out.Done()))
	return &Reply{SessionID: id, Response: out.Message, IsClear: out.Done()}, nil
}

// Continue sends the user's reply as the next clarification round.
func (s *Service) Continue(ctx context.Context, id, message string) (*Reply, error) {
	var reply *Reply
	err := s.store.With(id, func(sess *session.Session) error {
		out, err := s.clarifier.Reply(ctx, sess.Dialogue, message)
		if err != nil {
			return err
		}
		sess.Dialogue = out.Dialogue
		if out.Done() {
			sess.Requirements = out.Summary
		}
		reply = &Reply{Response: out.Message, IsClear: out.Done()}
		return nil
	})
	return reply, err
}

// Build plans and generates the game into a directory owned by the session.
// The session keeps its previous plan and history unless both phases succeed.
func (s *Service) Build(ctx context.Context, id string) (*BuildResult, error) {
	var result *BuildResult
	err := s.store.With(id, func(sess *session.Session) error {
		if sess.Requirements == "" {
			return errs.ErrNotClarified
		}

		plan, conv, err := s.planner.Plan(ctx, sess.Requirements, sess.Dialogue.Conversation)
		if err != nil {
			return err
		}
		res, err := s.executor.Execute(ctx, plan, conv, filepath.Join(s.outputDir, sess.ID))
		if err != nil {
			return err
		}
		sess.Plan = plan
		sess.Dialogue.Conversation = conv
		sess.OutputDir = res.Dir

		result = &BuildResult{Success: true, Title: plan.Title("Your Game")}
		s.log.Info("build complete",
			zap.String("session_id", sess.ID),
			zap.String("dir", res.Dir),
			zap.Bool("retried", res.Retried),
			zap.Strings("missing", res.Missing))
		return nil
	})
	return result, err
}

// Artifact returns the contents of one generated file.
func (s *Service) Artifact(id, name string) ([]byte, error) {
	var data []byte
	err := s.store.With(id, func(sess *session.Session) error {
		if sess.OutputDir == "" {
			return errs.ErrNotBuilt
		}
		var err error
		data, err = models.LoadArtifact(sess.OutputDir, name)
		return err
	})
	return data, err
}

// Archive zips the generated files and names the archive after the game.
func (s *Service) Archive(id string) (string, []byte, error) {
	var (
		name string
		buf  bytes.Buffer
	)
	err := s.store.With(id, func(sess *session.Session) error {
		if sess.OutputDir == "" {
			return errs.ErrNotBuilt
		}
		if err := models.WriteZip(sess.OutputDir, &buf); err != nil {
			return fmt.Errorf("packaging %s: %w", sess.ID, err)
		}
		name = models.ArchiveName(sess.Plan)
		return nil
	})
	return name, buf.Bytes(), err
}
