package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pavelanni/lessonforge/internal/llm"
	"github.com/pavelanni/lessonforge/internal/llm/prompts"
	"github.com/pavelanni/lessonforge/internal/model"
)

// ReadingGenerator produces the central passage of the lesson. It feeds
// the vocabulary chosen earlier into the prompt so the passage reinforces
// those words, and treats a length overrun by the model as usable partial
// output rather than a failure.
type ReadingGenerator struct {
	llm llm.Completer
}

func NewReadingGenerator(c llm.Completer) *ReadingGenerator {
	return &ReadingGenerator{llm: c}
}

func (g *ReadingGenerator) Name() string { return model.SectionReading }

func (g *ReadingGenerator) Generate(ctx context.Context, sc *model.SharedContext, prior []model.GeneratedSection) (model.SectionContent, int, error) {
	words := chosenVocabulary(sc, prior)
	comp, err := g.llm.Complete(ctx, prompts.Reading(sc, words), llm.Options{Temperature: 0.7})
	if err != nil {
		var mle *llm.MaxLengthError
		if errors.As(err, &mle) && strings.TrimSpace(mle.Partial) != "" {
			return model.ReadingContent{Passage: strings.TrimSpace(mle.Partial)}, comp.Tokens, nil
		}
		return nil, 0, fmt.Errorf("reading generation: %w", err)
	}
	return model.ReadingContent{Passage: strings.TrimSpace(comp.Text)}, comp.Tokens, nil
}

// chosenVocabulary prefers the words the vocabulary section actually
// produced over the raw context list.
func chosenVocabulary(sc *model.SharedContext, prior []model.GeneratedSection) []string {
	if c, ok := priorSection(prior, model.SectionVocabulary); ok {
		if vc, ok := c.(model.VocabularyContent); ok {
			words := make([]string, 0, len(vc.Entries))
			for _, e := range vc.Entries {
				words = append(words, e.Word)
			}
			return words
		}
	}
	return sc.KeyVocabulary
}

func (g *ReadingGenerator) Validate(sc *model.SharedContext, content model.SectionContent) model.ValidationResult {
	rc, ok := content.(model.ReadingContent)
	if !ok {
		return result([]string{"reading payload has the wrong type"}, nil)
	}
	cal := prompts.For(sc.Level)

	var issues, warnings []string
	passage := strings.TrimSpace(rc.Passage)
	if passage == "" {
		return result([]string{"reading passage is empty"}, nil)
	}
	runeLen := utf8.RuneCountInString(passage)
	if runeLen < cal.ReadingCharCap/3 {
		issues = append(issues, fmt.Sprintf("passage is only %d characters, too short for the level", runeLen))
	}
	if runeLen > cal.ReadingCharCap*2 {
		issues = append(issues, fmt.Sprintf("passage is %d characters, over twice the %d cap", runeLen, cal.ReadingCharCap))
	} else if runeLen > cal.ReadingCharCap {
		warnings = append(warnings, fmt.Sprintf("passage is %d characters, over the %d cap", runeLen, cal.ReadingCharCap))
	}

	missing := 0
	for _, w := range sc.KeyVocabulary {
		if !containsWord(passage, w) {
			missing++
		}
	}
	if n := len(sc.KeyVocabulary); n > 0 && missing > n/2 {
		warnings = append(warnings, fmt.Sprintf("passage uses only %d of %d vocabulary words", n-missing, n))
	}
	return result(issues, warnings)
}

func (g *ReadingGenerator) Fallback(sc *model.SharedContext) model.SectionContent {
	return fallbackReading(sc)
}
