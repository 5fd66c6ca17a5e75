package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// UnmarshalJSON rejects roles other than user and model.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if !Role(s).Valid() {
		return fmt.Errorf("unknown conversation role %q", s)
	}
	*r = Role(s)
	return nil
}

// Turn is one role-tagged contribution to a conversation.
type Turn struct {
	Role  Role     `json:"role" yaml:"role"`
	Parts []string `json:"parts" yaml:"parts"`
}

// Text joins the parts of the turn.
func (t Turn) Text() string {
	return strings.Join(t.Parts, "")
}

// Conversation is the transfer form of a dialogue with the backend.
// Turns are never modified once appended; Append returns a new slice.
type Conversation []Turn

// Append returns a copy of c with a new turn at the end.
func (c Conversation) Append(role Role, text string) Conversation {
	out := make(Conversation, len(c), len(c)+1)
	copy(out, c)
	return append(out, Turn{Role: role, Parts: []string{text}})
}

// Clone returns a deep copy of c.
func (c Conversation) Clone() Conversation {
	if c == nil {
		return nil
	}
	out := make(Conversation, len(c))
	for i, t := range c {
		out[i] = Turn{Role: t.Role, Parts: append([]string(nil), t.Parts...)}
	}
	return out
}

// ModelTurns counts the turns produced by the backend.
func (c Conversation) ModelTurns() int {
	n := 0
	for _, t := range c {
		if t.Role == RoleModel {
			n++
		}
	}
	return n
}

// Dialogue is the resumable clarification state carried between requests.
type Dialogue struct {
	Idea         string       `json:"idea"`
	Conversation Conversation `json:"conversation"`
	// Rounds counts regular backend responses received so far.
	Rounds int `json:"rounds"`
}

// GamePlan is the structured plan produced by the planning phase. It is
// forwarded to code generation verbatim; the accessors supply defaults
// for diagnostics only.
type GamePlan map[string]any

func (p GamePlan) str(key, def string) string {
	if s, ok := p[key].(string); ok && s != "" {
		return s
	}
	return def
}

// Title returns the plan title or def.
func (p GamePlan) Title(def string) string { return p.str("title", def) }

// Framework returns the plan framework, defaulting to vanilla.
func (p GamePlan) Framework() string { return p.str("framework", "vanilla") }

// Mechanics returns the string entries of the mechanics list.
func (p GamePlan) Mechanics() []string {
	raw, ok := p["mechanics"].([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, m := range raw {
		if s, ok := m.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Controls returns the input-to-action mapping, empty when absent.
func (p GamePlan) Controls() map[string]any {
	if c, ok := p["controls"].(map[string]any); ok {
		return c
	}
	return map[string]any{}
}

// Artifact file names produced by code generation.
const (
	IndexHTML = "index.html"
	StyleCSS  = "style.css"
	GameJS    = "game.js"
)

// ArtifactNames lists the generated files in write order.
var ArtifactNames = []string{IndexHTML, StyleCSS, GameJS}

// IsArtifactName reports whether name is one of the generated files.
func IsArtifactName(name string) bool {
	for _, n := range ArtifactNames {
		if n == name {
			return true
		}
	}
	return false
}

// ArtifactSet maps artifact file names to their contents.
type ArtifactSet map[string]string
