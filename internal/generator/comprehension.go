package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/pavelanni/lessonforge/internal/llm"
	"github.com/pavelanni/lessonforge/internal/llm/prompts"
	"github.com/pavelanni/lessonforge/internal/model"
)

// ComprehensionGenerator produces questions answerable from the reading
// passage alone.
type ComprehensionGenerator struct {
	llm llm.Completer
}

func NewComprehensionGenerator(c llm.Completer) *ComprehensionGenerator {
	return &ComprehensionGenerator{llm: c}
}

func (g *ComprehensionGenerator) Name() string { return model.SectionComprehension }

func (g *ComprehensionGenerator) Generate(ctx context.Context, sc *model.SharedContext, prior []model.GeneratedSection) (model.SectionContent, int, error) {
	passage := readingPassage(prior)
	if passage == "" {
		return nil, 0, fmt.Errorf("comprehension generation: no reading passage available")
	}
	comp, err := g.llm.Complete(ctx, prompts.Comprehension(sc, passage), llm.Options{Temperature: 0.6})
	if err != nil {
		return nil, 0, fmt.Errorf("comprehension generation: %w", err)
	}
	return model.StringListContent{Items: prompts.Lines(comp.Text)}, comp.Tokens, nil
}

func (g *ComprehensionGenerator) Validate(sc *model.SharedContext, content model.SectionContent) model.ValidationResult {
	list, ok := content.(model.StringListContent)
	if !ok {
		return result([]string{"comprehension payload has the wrong type"}, nil)
	}
	cal := prompts.For(sc.Level)

	var issues, warnings []string
	if len(list.Items) < cal.ComprehensionCount {
		issues = append(issues, fmt.Sprintf("expected %d comprehension questions, got %d", cal.ComprehensionCount, len(list.Items)))
	}
	issues = append(issues, checkQuestions(list.Items, "comprehension question")...)

	for i, q := range list.Items {
		if n := len(strings.Fields(q)); n > cal.SentenceMaxWords*2 {
			warnings = append(warnings, fmt.Sprintf("question %d is %d words, long for the level", i+1, n))
		}
	}
	return result(issues, warnings)
}

func (g *ComprehensionGenerator) Fallback(sc *model.SharedContext) model.SectionContent {
	return fallbackComprehension(sc)
}
