package generator

import (
	"context"
	"fmt"

	"github.com/pavelanni/lessonforge/internal/llm"
	"github.com/pavelanni/lessonforge/internal/llm/prompts"
	"github.com/pavelanni/lessonforge/internal/model"
)

// WarmUpGenerator produces the opening questions of a lesson. The warm-up
// precedes the reading, so its validator rejects nothing on content but
// checks question form and count.
type WarmUpGenerator struct {
	llm llm.Completer
}

func NewWarmUpGenerator(c llm.Completer) *WarmUpGenerator {
	return &WarmUpGenerator{llm: c}
}

func (g *WarmUpGenerator) Name() string { return model.SectionWarmUp }

func (g *WarmUpGenerator) Generate(ctx context.Context, sc *model.SharedContext, _ []model.GeneratedSection) (model.SectionContent, int, error) {
	comp, err := g.llm.Complete(ctx, prompts.WarmUp(sc), llm.Options{Temperature: 0.8})
	if err != nil {
		return nil, 0, fmt.Errorf("warm-up generation: %w", err)
	}
	return model.StringListContent{Items: prompts.Lines(comp.Text)}, comp.Tokens, nil
}

func (g *WarmUpGenerator) Validate(sc *model.SharedContext, content model.SectionContent) model.ValidationResult {
	list, ok := content.(model.StringListContent)
	if !ok {
		return result([]string{"warm-up payload has the wrong type"}, nil)
	}
	cal := prompts.For(sc.Level)

	var issues, warnings []string
	if len(list.Items) < cal.WarmUpCount {
		issues = append(issues, fmt.Sprintf("expected %d warm-up questions, got %d", cal.WarmUpCount, len(list.Items)))
	}
	issues = append(issues, checkQuestions(list.Items, "warm-up question")...)
	warnings = relevanceWarning(warnings, list.Items, sc, "warm-up questions")
	return result(issues, warnings)
}

func (g *WarmUpGenerator) Fallback(sc *model.SharedContext) model.SectionContent {
	return fallbackWarmUp(sc)
}
