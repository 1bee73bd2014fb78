// Package lessonctx derives the shared context every section generator
// reads: title, key vocabulary, themes and summary of the source text.
//
// Each facet is extracted with a single model call and falls back to a
// deterministic local heuristic when the call fails or returns too little.
// There is no retry loop here: context construction stays bounded in
// latency and cost.
package lessonctx

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pavelanni/lessonforge/internal/llm"
	"github.com/pavelanni/lessonforge/internal/llm/prompts"
	"github.com/pavelanni/lessonforge/internal/model"
)

const (
	// MaxVocabulary caps vocabulary candidates carried in the context.
	MaxVocabulary = 12
	// MaxThemes caps detected themes.
	MaxThemes = 5
	// SummaryCharCap bounds the content summary.
	SummaryCharCap = 300
)

// Builder constructs the SharedContext for one lesson request.
type Builder struct {
	llm llm.Completer
}

// NewBuilder creates a context builder over the given model client.
func NewBuilder(client llm.Completer) *Builder {
	return &Builder{llm: client}
}

// Build derives a SharedContext from source text. It never fails: every
// extraction facet degrades to its local heuristic.
func (b *Builder) Build(ctx context.Context, sourceText, lessonType string, level model.CEFRLevel, targetLanguage string) *model.SharedContext {
	truncated := prompts.SanitizeSource(sourceText)

	sc := &model.SharedContext{
		Level:          level,
		SourceText:     truncated,
		LessonType:     lessonType,
		TargetLanguage: targetLanguage,
	}

	sc.LessonTitle = b.extractTitle(ctx, truncated, lessonType)
	sc.AddVocabulary(b.extractVocabulary(ctx, truncated, level)...)
	sc.AddThemes(b.extractThemes(ctx, truncated)...)
	sc.ContentSummary = b.extractSummary(ctx, truncated)

	slog.Info("shared context built",
		"title", sc.LessonTitle,
		"vocabulary", len(sc.KeyVocabulary),
		"themes", len(sc.MainThemes),
	)
	return sc
}

func (b *Builder) extractTitle(ctx context.Context, text, lessonType string) string {
	comp, err := b.llm.Complete(ctx, prompts.Title(text, lessonType), llm.Options{Temperature: 0.7, MaxOutputTokens: 40})
	if err != nil {
		slog.Warn("title extraction failed, using fallback", "error", err)
		return fallbackTitle(text)
	}
	title := strings.Trim(strings.TrimSpace(comp.Text), `"`)
	if title == "" || len(strings.Fields(title)) > 12 {
		return fallbackTitle(text)
	}
	return title
}

func (b *Builder) extractVocabulary(ctx context.Context, text string, level model.CEFRLevel) []string {
	comp, err := b.llm.Complete(ctx, prompts.Vocabulary(text, level, MaxVocabulary), llm.Options{Temperature: 0.3, MaxOutputTokens: 120})
	if err != nil {
		slog.Warn("vocabulary extraction failed, using fallback", "error", err)
		return fallbackVocabulary(text, MaxVocabulary)
	}

	var words []string
	for _, line := range prompts.Lines(comp.Text) {
		w := strings.ToLower(strings.TrimSpace(line))
		// A multi-word line means the model ignored the format.
		if w == "" || strings.ContainsAny(w, " \t") {
			continue
		}
		words = append(words, w)
		if len(words) == MaxVocabulary {
			break
		}
	}
	if len(words) < 3 {
		return fallbackVocabulary(text, MaxVocabulary)
	}
	return words
}

func (b *Builder) extractThemes(ctx context.Context, text string) []string {
	comp, err := b.llm.Complete(ctx, prompts.Themes(text, MaxThemes), llm.Options{Temperature: 0.3, MaxOutputTokens: 80})
	if err != nil {
		slog.Warn("theme extraction failed, using fallback", "error", err)
		return fallbackThemes(text, MaxThemes)
	}

	var themes []string
	for _, line := range prompts.Lines(comp.Text) {
		t := strings.ToLower(strings.TrimSpace(line))
		if t == "" || len(strings.Fields(t)) > 4 {
			continue
		}
		themes = append(themes, t)
		if len(themes) == MaxThemes {
			break
		}
	}
	if len(themes) == 0 {
		return fallbackThemes(text, MaxThemes)
	}
	return themes
}

func (b *Builder) extractSummary(ctx context.Context, text string) string {
	comp, err := b.llm.Complete(ctx, prompts.Summary(text, SummaryCharCap), llm.Options{Temperature: 0.3, MaxOutputTokens: 120})
	if err != nil {
		slog.Warn("summary extraction failed, using fallback", "error", err)
		return fallbackSummary(text, SummaryCharCap)
	}
	summary := strings.TrimSpace(comp.Text)
	if summary == "" {
		return fallbackSummary(text, SummaryCharCap)
	}
	if len([]rune(summary)) > SummaryCharCap {
		summary = fallbackSummary(summary, SummaryCharCap)
	}
	return summary
}
