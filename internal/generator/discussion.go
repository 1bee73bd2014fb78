package generator

import (
	"context"
	"fmt"

	"github.com/pavelanni/lessonforge/internal/llm"
	"github.com/pavelanni/lessonforge/internal/llm/prompts"
	"github.com/pavelanni/lessonforge/internal/model"
)

// DiscussionGenerator produces open questions that extend the reading
// into opinion and experience.
type DiscussionGenerator struct {
	llm llm.Completer
}

func NewDiscussionGenerator(c llm.Completer) *DiscussionGenerator {
	return &DiscussionGenerator{llm: c}
}

func (g *DiscussionGenerator) Name() string { return model.SectionDiscussion }

func (g *DiscussionGenerator) Generate(ctx context.Context, sc *model.SharedContext, prior []model.GeneratedSection) (model.SectionContent, int, error) {
	passage := readingPassage(prior)
	if passage == "" {
		return nil, 0, fmt.Errorf("discussion generation: no reading passage available")
	}
	comp, err := g.llm.Complete(ctx, prompts.Discussion(sc, passage), llm.Options{Temperature: 0.9})
	if err != nil {
		return nil, 0, fmt.Errorf("discussion generation: %w", err)
	}
	return model.StringListContent{Items: prompts.Lines(comp.Text)}, comp.Tokens, nil
}

func (g *DiscussionGenerator) Validate(sc *model.SharedContext, content model.SectionContent) model.ValidationResult {
	list, ok := content.(model.StringListContent)
	if !ok {
		return result([]string{"discussion payload has the wrong type"}, nil)
	}
	cal := prompts.For(sc.Level)

	var issues, warnings []string
	if len(list.Items) < cal.DiscussionCount {
		issues = append(issues, fmt.Sprintf("expected %d discussion questions, got %d", cal.DiscussionCount, len(list.Items)))
	}
	issues = append(issues, checkQuestions(list.Items, "discussion question")...)
	warnings = relevanceWarning(warnings, list.Items, sc, "discussion questions")
	return result(issues, warnings)
}

func (g *DiscussionGenerator) Fallback(sc *model.SharedContext) model.SectionContent {
	return fallbackDiscussion(sc)
}
