package engine

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts/prompts.yaml
var promptsYAML []byte

// Prompts holds the system instructions and message templates for every phase.
type Prompts struct {
	ClearToken     string `yaml:"clear_token"`
	ClarifySystem  string `yaml:"clarify_system"`
	PlanSystem     string `yaml:"plan_system"`
	ExecuteSystem  string `yaml:"execute_system"`
	Retry          string `yaml:"retry"`
	ForceSummary   string `yaml:"force_summary"`
	DefaultReply   string `yaml:"default_reply"`
	Idea           string `yaml:"idea"`
	PlanRequest    string `yaml:"plan_request"`
	ExecuteRequest string `yaml:"execute_request"`

	idea, planRequest, executeRequest *template.Template
}

// ParsePrompts decodes a prompt catalog and compiles its templates.
func ParsePrompts(data []byte) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}
	if p.ClearToken == "" {
		return nil, fmt.Errorf("prompts: clear_token is empty")
	}

	var err error
	if p.idea, err = template.New("idea").Parse(p.Idea); err != nil {
		return nil, err
	}
	if p.planRequest, err = template.New("plan_request").Parse(p.PlanRequest); err != nil {
		return nil, err
	}
	if p.executeRequest, err = template.New("execute_request").Parse(p.ExecuteRequest); err != nil {
		return nil, err
	}
	return &p, nil
}

var (
	defaultOnce    sync.Once
	defaultPrompts *Prompts
)

// DefaultPrompts returns the embedded prompt catalog.
func DefaultPrompts() *Prompts {
	defaultOnce.Do(func() {
		p, err := ParsePrompts(promptsYAML)
		if err != nil {
			panic(err)
		}
		defaultPrompts = p
	})
	return defaultPrompts
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// IdeaMessage renders the first clarification turn.
func (p *Prompts) IdeaMessage(idea string) (string, error) {
	return render(p.idea, struct{ Idea string }{Idea: idea})
}

// PlanMessage renders the planning request for clarified requirements.
func (p *Prompts) PlanMessage(requirements string) (string, error) {
	return render(p.planRequest, struct{ Requirements string }{Requirements: requirements})
}

// ExecuteMessage renders the code generation request around an indented plan.
func (p *Prompts) ExecuteMessage(planJSON string) (string, error) {
	return render(p.executeRequest, struct{ Plan string }{Plan: planJSON})
}
