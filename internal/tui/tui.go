package tui

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"

	"github.com/tatianab/game-builder/internal/errs"
)

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))
)

type promptModel struct {
	title     string
	textInput textinput.Model
	value     string
	done      bool
	cancelled bool
}

func newPromptModel(title, placeholder string) promptModel {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Focus()
	ti.CharLimit = 0
	ti.Width = 72

	return promptModel{title: title, textInput: ti}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit

		case tea.KeyEnter, tea.KeyCtrlJ:
			m.value = m.textInput.Value()
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	switch {
	case m.cancelled:
		return ""
	case m.done:
		return m.title + "\n" + userStyle.Render("> "+m.value) + "\n"
	}
	return m.title + "\n" + m.textInput.View() + "\n" +
		helpStyle.Render("Enter to send, Esc or Ctrl+C to quit.") + "\n"
}

// Prompter reads one line of user input at a time. On a terminal it uses a
// bubbletea text field; otherwise it reads plain lines from the input.
type Prompter struct {
	in    io.Reader
	out   io.Writer
	lines *bufio.Scanner
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: in, out: out}
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(f.Fd()) {
		p.lines = bufio.NewScanner(in)
		p.lines.Buffer(make([]byte, 0, 64*1024), 1<<20)
	}
	return p
}

// Ask blocks until the user submits a line. Esc, Ctrl+C and the end of
// input return errs.ErrInterrupted.
func (p *Prompter) Ask(title, placeholder string) (string, error) {
	if p.lines != nil {
		return p.readLine(title)
	}

	prog := tea.NewProgram(newPromptModel(title, placeholder),
		tea.WithInput(p.in),
		tea.WithOutput(p.out))
	final, err := prog.Run()
	if err != nil {
		return "", err
	}
	m := final.(promptModel)
	if m.cancelled {
		return "", errs.ErrInterrupted
	}
	return m.value, nil
}

func (p *Prompter) readLine(title string) (string, error) {
	fmt.Fprintln(p.out, title)
	if !p.lines.Scan() {
		if err := p.lines.Err(); err != nil {
			return "", err
		}
		return "", errs.ErrInterrupted
	}
	line := p.lines.Text()
	fmt.Fprintln(p.out, userStyle.Render("> "+line))
	return line, nil
}
