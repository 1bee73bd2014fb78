package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/lessonforge/internal/llm"
	"github.com/pavelanni/lessonforge/internal/llm/prompts"
	"github.com/pavelanni/lessonforge/internal/model"
)

// grammarItemCount is the example and exercise count the prompt declares.
const grammarItemCount = 3

// GrammarGenerator extracts one level-appropriate grammar point from the
// reading passage as a structured response. Truncated or slightly broken
// JSON goes through one repair pass before being rejected.
type GrammarGenerator struct {
	llm llm.Completer
}

func NewGrammarGenerator(c llm.Completer) *GrammarGenerator {
	return &GrammarGenerator{llm: c}
}

func (g *GrammarGenerator) Name() string { return model.SectionGrammar }

func (g *GrammarGenerator) Generate(ctx context.Context, sc *model.SharedContext, prior []model.GeneratedSection) (model.SectionContent, int, error) {
	passage := readingPassage(prior)
	if passage == "" {
		return nil, 0, fmt.Errorf("grammar generation: no reading passage available")
	}

	comp, err := g.llm.Complete(ctx, prompts.Grammar(sc, passage), llm.Options{Temperature: 0.4})
	text := comp.Text
	if err != nil {
		// A length overrun still often carries a repairable object.
		var mle *llm.MaxLengthError
		if !errors.As(err, &mle) {
			return nil, 0, fmt.Errorf("grammar generation: %w", err)
		}
		text = mle.Partial
	}

	var gc model.GrammarContent
	repaired, err := DecodeStructured(text, &gc)
	if err != nil {
		return nil, comp.Tokens, fmt.Errorf("grammar generation: %w", err)
	}
	if repaired {
		slog.Debug("repaired truncated grammar response")
	}
	return gc, comp.Tokens, nil
}

func (g *GrammarGenerator) Validate(sc *model.SharedContext, content model.SectionContent) model.ValidationResult {
	gc, ok := content.(model.GrammarContent)
	if !ok {
		return result([]string{"grammar payload has the wrong type"}, nil)
	}
	cal := prompts.For(sc.Level)

	var issues, warnings []string
	if strings.TrimSpace(gc.Focus) == "" {
		issues = append(issues, "grammar point has no focus")
	}
	if strings.TrimSpace(gc.Explanation.Form) == "" {
		issues = append(issues, "grammar explanation has no form")
	}
	if strings.TrimSpace(gc.Explanation.Usage) == "" {
		issues = append(issues, "grammar explanation has no usage")
	}
	if strings.TrimSpace(gc.Explanation.LevelNotes) == "" {
		warnings = append(warnings, "grammar explanation has no level notes")
	}
	if len(gc.Examples) < grammarItemCount {
		issues = append(issues, fmt.Sprintf("grammar point has %d examples, wanted %d", len(gc.Examples), grammarItemCount))
	}
	if len(gc.Exercises) < grammarItemCount {
		issues = append(issues, fmt.Sprintf("grammar point has %d exercises, wanted %d", len(gc.Exercises), grammarItemCount))
	}
	for i, ex := range gc.Exercises {
		if !strings.Contains(ex, "___") {
			issues = append(issues, fmt.Sprintf("exercise %d has no gap marker", i+1))
		}
	}

	focus := strings.ToLower(gc.Focus)
	for _, forbidden := range cal.ForbiddenGrammar {
		if strings.Contains(focus, strings.ToLower(forbidden)) {
			issues = append(issues, fmt.Sprintf("grammar focus %q is above the level (%s)", gc.Focus, forbidden))
		}
	}
	return result(issues, warnings)
}

func (g *GrammarGenerator) Fallback(sc *model.SharedContext) model.SectionContent {
	return fallbackGrammar(sc)
}
