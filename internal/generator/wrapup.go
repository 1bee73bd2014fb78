package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/pavelanni/lessonforge/internal/llm"
	"github.com/pavelanni/lessonforge/internal/llm/prompts"
	"github.com/pavelanni/lessonforge/internal/model"
)

// WrapUpGenerator closes the lesson with reflection prompts that build on
// the discussion.
type WrapUpGenerator struct {
	llm llm.Completer
}

func NewWrapUpGenerator(c llm.Completer) *WrapUpGenerator {
	return &WrapUpGenerator{llm: c}
}

func (g *WrapUpGenerator) Name() string { return model.SectionWrapUp }

func (g *WrapUpGenerator) Generate(ctx context.Context, sc *model.SharedContext, prior []model.GeneratedSection) (model.SectionContent, int, error) {
	var discussion []string
	if c, ok := priorSection(prior, model.SectionDiscussion); ok {
		if list, ok := c.(model.StringListContent); ok {
			discussion = list.Items
		}
	}
	comp, err := g.llm.Complete(ctx, prompts.WrapUp(sc, discussion), llm.Options{Temperature: 0.7})
	if err != nil {
		return nil, 0, fmt.Errorf("wrap-up generation: %w", err)
	}
	return model.StringListContent{Items: prompts.Lines(comp.Text)}, comp.Tokens, nil
}

func (g *WrapUpGenerator) Validate(sc *model.SharedContext, content model.SectionContent) model.ValidationResult {
	list, ok := content.(model.StringListContent)
	if !ok {
		return result([]string{"wrap-up payload has the wrong type"}, nil)
	}
	cal := prompts.For(sc.Level)

	var issues, warnings []string
	if len(list.Items) < cal.WrapUpCount {
		issues = append(issues, fmt.Sprintf("expected %d wrap-up prompts, got %d", cal.WrapUpCount, len(list.Items)))
	}
	for i, item := range list.Items {
		if strings.TrimSpace(item) == "" {
			issues = append(issues, fmt.Sprintf("wrap-up prompt %d is empty", i+1))
		}
	}
	warnings = relevanceWarning(warnings, list.Items, sc, "wrap-up prompts")
	return result(issues, warnings)
}

func (g *WrapUpGenerator) Fallback(sc *model.SharedContext) model.SectionContent {
	return fallbackWrapUp(sc)
}
