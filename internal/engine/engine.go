package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/tatianab/game-builder/internal/errs"
	"github.com/tatianab/game-builder/internal/models"
)

// Gemini is the Backend backed by the Gemini API. Conversion between the
// transfer-form Conversation and genai content happens only here.
type Gemini struct {
	client    *genai.Client
	modelName string
	timeout   time.Duration
	log       *zap.Logger
}

// NewGemini creates a client for modelName. A positive timeout bounds each
// Send call.
func NewGemini(ctx context.Context, apiKey, modelName string, timeout time.Duration, log *zap.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &Gemini{
		client:    client,
		modelName: modelName,
		timeout:   timeout,
		log:       log,
	}, nil
}

func (g *Gemini) Close() {
	g.client.Close()
}

// Send implements Backend.
func (g *Gemini) Send(ctx context.Context, req Request) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	model := g.client.GenerativeModel(g.modelName)
	configure(model, req)

	cs := model.StartChat()
	cs.History = toContents(req.History)

	start := time.Now()
	resp, err := cs.SendMessage(ctx, genai.Text(req.Message))
	if err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrBackend, err)
	}

	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	g.log.Debug("gemini reply",
		zap.String("model", g.modelName),
		zap.Int("history_turns", len(req.History)),
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

func configure(model *genai.GenerativeModel, req Request) {
	if req.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	if t := req.Settings.Temperature; t != nil {
		model.SetTemperature(*t)
	}
	if n := req.Settings.MaxOutputTokens; n > 0 {
		model.SetMaxOutputTokens(n)
	}
}

func toContents(conv models.Conversation) []*genai.Content {
	contents := make([]*genai.Content, 0, len(conv))
	for _, turn := range conv {
		parts := make([]genai.Part, len(turn.Parts))
		for i, p := range turn.Parts {
			parts[i] = genai.Text(p)
		}
		contents = append(contents, &genai.Content{Role: string(turn.Role), Parts: parts})
	}
	return contents
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no content returned from Gemini", errs.ErrBackend)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: unexpected response type from Gemini", errs.ErrBackend)
	}
	return sb.String(), nil
}
