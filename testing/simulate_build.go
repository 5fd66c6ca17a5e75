package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"gopkg.in/yaml.v3"

	"github.com/tatianab/game-builder/internal/config"
	"github.com/tatianab/game-builder/internal/engine"
	"github.com/tatianab/game-builder/internal/phase"
)

func main() {
	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize the builder backend
	builder, err := engine.NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.BackendTimeout, logger)
	if err != nil {
		log.Fatalf("Failed to create builder backend: %v", err)
	}
	defer builder.Close()

	// Initialize the Player LLM
	playerClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create player client: %v", err)
	}
	defer playerClient.Close()
	playerModel := playerClient.GenerativeModel(cfg.Model)

	prompts := engine.DefaultPrompts()

	// 1. Get a game idea from the Player LLM
	fmt.Println("--- Step 1: Requesting a game idea from the Player LLM ---")
	idea := ask(ctx, playerModel, "You want a small browser game built for you. Describe the idea in one or two sentences (e.g., 'a snake game where the snake can teleport', 'breakout with gravity'). Return ONLY the idea.", "a snake game")
	fmt.Printf("Player idea: %s\n\n", idea)

	// 2. Clarify
	fmt.Println("--- Step 2: Clarifying requirements ---")
	clarifier := phase.NewClarifier(builder, prompts, logger)
	out, err := clarifier.Run(ctx, idea, func(questions string, round int) (string, error) {
		fmt.Printf("Round %d questions:\n%s\n", round, questions)
		reply := ask(ctx, playerModel, fmt.Sprintf("You asked for this game: %s\n\nThe designer asks:\n%s\n\nAnswer briefly as the player. Return ONLY your answer.", idea, questions), "")
		fmt.Printf("Player: %s\n\n", reply)
		return reply, nil
	})
	if err != nil {
		log.Fatalf("Failed to clarify: %v", err)
	}
	fmt.Printf("Requirements (%s after %d rounds):\n%s\n\n", out.State, out.Dialogue.Rounds, out.Summary)

	// 3. Plan
	fmt.Println("--- Step 3: Planning ---")
	plan, conv, err := phase.NewPlanner(builder, prompts, logger).Plan(ctx, out.Summary, out.Dialogue.Conversation)
	if err != nil {
		log.Fatalf("Failed to plan: %v", err)
	}
	fmt.Printf("Title: %s\nFramework: %s\n\n", plan.Title("Untitled"), plan.Framework())

	// 4. Execute
	fmt.Println("--- Step 4: Generating code ---")
	dir := filepath.Join(cfg.OutputDir, "simulated")
	res, err := phase.NewExecutor(builder, prompts, logger).Execute(ctx, plan, conv, dir)
	if err != nil {
		log.Fatalf("Failed to generate code: %v", err)
	}
	for name, content := range res.Files {
		fmt.Printf("%s: %d chars\n", name, len(content))
	}
	if len(res.Missing) > 0 {
		fmt.Printf("Missing: %v\n", res.Missing)
	}

	transcript, err := yaml.Marshal(res.Conversation)
	if err != nil {
		log.Fatalf("Failed to encode transcript: %v", err)
	}
	if err := os.WriteFile(filepath.Join(res.Dir, "..", "simulated-transcript.yaml"), transcript, 0644); err != nil {
		log.Fatalf("Failed to write transcript: %v", err)
	}
	fmt.Printf("\nGame written to %s\n", res.Dir)
}

func ask(ctx context.Context, model *genai.GenerativeModel, prompt, fallback string) string {
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return fallback
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return fallback
	}
	return strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
}
