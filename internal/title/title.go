// Package title turns journal text into a short lowercase title with one
// chat completion. Generation is fail-soft: every failure yields Fallback.
package title

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hyperengineering/quill/internal/llm"
)

const (
	// Fallback is returned whenever a usable title cannot be produced.
	Fallback = "untitled memory"

	maxContentRunes = 2000
	maxTitleRunes   = 50
	maxTokens       = 30
	temperature     = 0.4
)

const systemPrompt = `You are a Poetic Archivist. Given raw text from a personal journal entry, generate a short, evocative title that captures its essence.

Rules:
- 2-5 words only
- Abstract and philosophical
- All lowercase
- No punctuation
- No articles (a, an, the) at the start
- Evoke mood, not literal content

Examples of good titles:
- recursive faults
- the glass horizon
- weight of static
- borrowed silence
- maps without edges`

// stripped are removed from model output before validation.
var stripped = strings.NewReplacer(
	".", "", ",", "", "!", "", "?", "",
	";", "", ":", "", "'", "", `"`, "",
)

// Generate produces a title for content using c. A nil Completer yields Fallback.
func Generate(ctx context.Context, c llm.Completer, content string) string {
	if c == nil {
		return Fallback
	}

	raw, err := c.Complete(ctx, llm.Request{
		System:      systemPrompt,
		User:        "Generate a title for this journal entry:\n\n" + truncate(content, maxContentRunes),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		slog.Warn("title generation failed",
			"component", "title",
			"action", "fallback",
			"error", err,
		)
		return Fallback
	}

	title := Normalize(raw)
	if len(strings.Fields(title)) < 2 {
		slog.Debug("title rejected",
			"component", "title",
			"action", "fallback",
			"raw", raw,
		)
		return Fallback
	}
	return title
}

// Normalize trims, lowercases, strips punctuation and caps the length of raw model output.
func Normalize(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = stripped.Replace(t)
	return truncate(t, maxTitleRunes)
}

// truncate returns the first n runes of s.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Generator is the service entry point backed by the process-wide resolver.
type Generator struct {
	resolver *llm.Resolver
}

// NewGenerator creates a Generator using r to obtain the chat client.
func NewGenerator(r *llm.Resolver) *Generator {
	return &Generator{resolver: r}
}

// Generate returns a title for content; it never fails.
func (g *Generator) Generate(ctx context.Context, content string) string {
	return Generate(ctx, g.resolver.Resolve(), content)
}
