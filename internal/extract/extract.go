// Package extract pulls fenced code and JSON blocks out of model output.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
	"sync"

	"github.com/tatianab/game-builder/internal/errs"
	"github.com/tatianab/game-builder/internal/models"
)

var (
	bareFence = regexp.MustCompile("(?s)```\\s*\\n(.*?)```")

	mu     sync.Mutex
	fences = map[string]*regexp.Regexp{}
)

// fenceRE compiles the pattern for a fence tagged with any of labels.
func fenceRE(labels []string) *regexp.Regexp {
	key := strings.Join(labels, "|")
	mu.Lock()
	defer mu.Unlock()
	if re, ok := fences[key]; ok {
		return re
	}
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = regexp.QuoteMeta(l)
	}
	re := regexp.MustCompile("(?s)```(?:" + strings.Join(quoted, "|") + ")\\s*\\n(.*?)```")
	fences[key] = re
	return re
}

// Fence returns the trimmed body of the first fence tagged with one of labels.
func Fence(text string, labels ...string) (string, bool) {
	m := fenceRE(labels).FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// Artifacts extracts index.html, style.css and game.js from a code
// generation response. Missing fences are simply absent from the result.
func Artifacts(text string) models.ArtifactSet {
	files := models.ArtifactSet{}
	if s, ok := Fence(text, "html"); ok {
		files[models.IndexHTML] = s
	}
	if s, ok := Fence(text, "css"); ok {
		files[models.StyleCSS] = s
	}
	if s, ok := Script(text); ok {
		files[models.GameJS] = s
	}
	return files
}

// Script returns the first js or javascript fence.
func Script(text string) (string, bool) {
	return Fence(text, "js", "javascript")
}

// JSON decodes the first JSON document found in text into v. Candidates are
// tried in order: a json fence, an untagged fence, then each brace-balanced
// object in the raw text.
func JSON(text string, v any) error {
	var lastErr error
	decode := func(c string) bool {
		if !json.Valid([]byte(c)) {
			lastErr = json.Unmarshal([]byte(c), new(any))
			return false
		}
		if err := json.Unmarshal([]byte(c), v); err != nil {
			lastErr = err
			return false
		}
		return true
	}

	if s, ok := Fence(text, "json"); ok && decode(s) {
		return nil
	}
	if m := bareFence.FindStringSubmatch(text); m != nil && decode(m[1]) {
		return nil
	}
	for _, c := range objects(text) {
		if decode(c) {
			return nil
		}
	}
	return errs.NewParseError("JSON", text, lastErr)
}

// objects returns every brace-balanced span of text, ordered by start
// offset. Braces inside double-quoted strings are ignored.
func objects(text string) []string {
	var out []string
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end := closingBrace(text, start); end > 0 {
			out = append(out, text[start:end+1])
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return out
}

func closingBrace(text string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
