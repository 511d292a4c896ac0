package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyperengineering/quill/internal/content"
	"github.com/hyperengineering/quill/internal/llm"
	"github.com/hyperengineering/quill/internal/publish"
	"github.com/hyperengineering/quill/internal/title"
)

// ErrMissingCredential is returned when no LLM credential is configured.
var ErrMissingCredential = errors.New("OPENAI_API_KEY not found")

// ThoughtSource lists and fetches journal entries.
type ThoughtSource interface {
	ListThoughts(ctx context.Context) ([]content.ThoughtSummary, error)
	GetThought(ctx context.Context, slug string) (*content.Thought, error)
}

// Builder regenerates the registry from the full content listing.
type Builder struct {
	source    ThoughtSource
	completer llm.Completer
	path      string
	uploader  publish.Uploader
	now       func() time.Time
}

// BuilderOption is a functional option for Builder configuration
type BuilderOption func(*Builder)

// WithUploader publishes the registry after every successful write.
func WithUploader(u publish.Uploader) BuilderOption {
	return func(b *Builder) {
		b.uploader = u
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		b.now = now
	}
}

// NewBuilder creates a Builder writing to path. completer may be nil, in
// which case every run fails with ErrMissingCredential.
func NewBuilder(source ThoughtSource, completer llm.Completer, path string, opts ...BuilderOption) *Builder {
	b := &Builder{
		source:    source,
		completer: completer,
		path:      path,
		uploader:  &publish.NoopUploader{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build fetches every entry in list order and titles it. Entries are
// processed one at a time; the first fetch error aborts the build.
func (b *Builder) Build(ctx context.Context) (*Registry, error) {
	if b.completer == nil {
		return nil, ErrMissingCredential
	}

	slog.Info("fetching thoughts", "component", "registry")
	thoughts, err := b.source.ListThoughts(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("found thoughts", "component", "registry", "count", len(thoughts))

	reg := New()
	model := b.completer.ModelName()

	for _, summary := range thoughts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		thought, err := b.source.GetThought(ctx, summary.Slug)
		if err != nil {
			return nil, err
		}

		hash := HashContent(thought.Content)
		t := title.Generate(ctx, b.completer, thought.Content)

		reg.Memories[hash] = MemoryEntry{
			Title:        t,
			Model:        model,
			Created:      FormatCreated(b.now()),
			OriginalPath: OriginalPath(summary.Slug),
		}

		slog.Info("titled thought",
			"component", "registry",
			"slug", summary.Slug,
			"hash", hash,
			"title", t,
		)
	}

	return reg, nil
}

// Run builds the registry, overwrites the destination file and publishes it.
// Nothing is written when the build fails.
func (b *Builder) Run(ctx context.Context) (*Registry, error) {
	start := time.Now()

	reg, err := b.Build(ctx)
	if err != nil {
		return nil, err
	}

	if err := Write(b.path, reg); err != nil {
		return nil, err
	}

	if err := b.uploader.Upload(ctx, b.path); err != nil {
		return reg, fmt.Errorf("publish registry: %w", err)
	}

	attrs := []any{
		"component", "registry",
		"action", "build_completed",
		"path", b.path,
		"entries", len(reg.Memories),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if loc := b.uploader.Location(); loc != "" {
		attrs = append(attrs, "published_to", loc)
	}
	slog.Info("registry saved", attrs...)
	return reg, nil
}
