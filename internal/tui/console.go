package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/tatianab/game-builder/internal/models"
)

const rule = "============================================================"

// Console renders the interactive session transcript.
type Console struct {
	out   io.Writer
	width int
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out, width: 80}
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

func (c *Console) Banner() {
	c.println("\n" + rule)
	c.println(titleStyle.Render("  Agentic Game-Builder AI"))
	c.println("  Describe a game idea and I'll build it for you!")
	c.println(rule)
}

func (c *Console) Phase(n int, name string) {
	c.println("\n" + rule)
	c.println(titleStyle.Render(fmt.Sprintf("PHASE %d: %s", n, name)))
	c.println(rule)
}

// Round shows the agent's questions for a clarification round.
func (c *Console) Round(round int, questions string) {
	c.println(fmt.Sprintf("\n--- Round %d ---", round))
	c.println(gameStyle.Width(c.width).Render("Agent: " + questions))
}

func (c *Console) Info(msg string) {
	c.println("\n" + helpStyle.Render(msg))
}

func (c *Console) Warn(msg string) {
	c.println(warnStyle.Render(msg))
}

// Summary shows the final requirements.
func (c *Console) Summary(summary string) {
	c.println(stateStyle.Width(c.width).Render(summary))
}

// Plan shows the plan diagnostics, with defaults for missing keys.
func (c *Console) Plan(plan models.GamePlan) {
	controls, _ := json.Marshal(plan.Controls())
	lines := []string{
		"Game Plan: " + plan.Title("Untitled"),
		"Framework: " + plan.Framework(),
		"Mechanics: " + strings.Join(plan.Mechanics(), ", "),
		"Controls: " + string(controls),
	}
	c.println("\n" + strings.Join(lines, "\n"))
}

// Written lists the files saved in dir and any that are missing.
func (c *Console) Written(dir string, files models.ArtifactSet, missing []string) {
	for _, name := range models.ArtifactNames {
		if content, ok := files[name]; ok {
			c.println(fmt.Sprintf("  Written: %s/%s (%d chars)", dir, name, utf8.RuneCountInString(content)))
		}
	}
	if len(missing) > 0 {
		c.Warn("  Missing from model output: " + strings.Join(missing, ", "))
	}
}

func (c *Console) Complete(dir string) {
	box := lipgloss.JoinVertical(lipgloss.Left,
		rule,
		titleStyle.Render("  BUILD COMPLETE!"),
		fmt.Sprintf("  Open %s/index.html in your browser to play.", dir),
		rule,
	)
	c.println("\n" + box + "\n")
}
