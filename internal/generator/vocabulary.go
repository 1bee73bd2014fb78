package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/pavelanni/lessonforge/internal/llm"
	"github.com/pavelanni/lessonforge/internal/llm/prompts"
	"github.com/pavelanni/lessonforge/internal/model"
)

// batchCompleter is implemented by clients that can run a prompt batch
// concurrently. The real client does; test fakes usually answer one
// prompt at a time and fall through to the sequential path.
type batchCompleter interface {
	CompleteBatch(ctx context.Context, prompts []string, opts llm.Options) []llm.BatchResult
}

// VocabularyGenerator expands the context's key vocabulary into full
// entries: a learner definition plus level-calibrated example sentences
// per word. Definitions and examples for all words are independent, so
// they are issued as one batch when the client supports it.
type VocabularyGenerator struct {
	llm llm.Completer
}

func NewVocabularyGenerator(c llm.Completer) *VocabularyGenerator {
	return &VocabularyGenerator{llm: c}
}

func (g *VocabularyGenerator) Name() string { return model.SectionVocabulary }

func (g *VocabularyGenerator) Generate(ctx context.Context, sc *model.SharedContext, _ []model.GeneratedSection) (model.SectionContent, int, error) {
	cal := prompts.For(sc.Level)
	words := sc.KeyVocabulary
	if len(words) > cal.VocabularyCount {
		words = words[:cal.VocabularyCount]
	}
	if len(words) == 0 {
		return nil, 0, fmt.Errorf("vocabulary generation: shared context has no vocabulary")
	}

	// Two prompts per word: definition first, then examples.
	reqs := make([]string, 0, len(words)*2)
	for _, w := range words {
		reqs = append(reqs, prompts.VocabDefinition(sc, w))
		reqs = append(reqs, prompts.VocabExamples(sc, w, cal.ExamplesPerWord))
	}

	texts, tokens, err := g.completeAll(ctx, reqs)
	if err != nil {
		return nil, tokens, fmt.Errorf("vocabulary generation: %w", err)
	}

	entries := make([]model.VocabEntry, 0, len(words))
	for i, w := range words {
		entries = append(entries, model.VocabEntry{
			Word:     w,
			Meaning:  strings.TrimSpace(texts[2*i]),
			Examples: prompts.Lines(texts[2*i+1]),
		})
	}
	return model.VocabularyContent{Entries: entries}, tokens, nil
}

func (g *VocabularyGenerator) completeAll(ctx context.Context, reqs []string) ([]string, int, error) {
	opts := llm.Options{Temperature: 0.7}
	texts := make([]string, len(reqs))
	tokens := 0

	if bc, ok := g.llm.(batchCompleter); ok {
		for i, r := range bc.CompleteBatch(ctx, reqs, opts) {
			if r.Err != nil {
				return nil, tokens, r.Err
			}
			texts[i] = r.Text
			tokens += r.Tokens
		}
		return texts, tokens, nil
	}

	for i, p := range reqs {
		comp, err := g.llm.Complete(ctx, p, opts)
		if err != nil {
			return nil, tokens, err
		}
		texts[i] = comp.Text
		tokens += comp.Tokens
	}
	return texts, tokens, nil
}

func (g *VocabularyGenerator) Validate(sc *model.SharedContext, content model.SectionContent) model.ValidationResult {
	vc, ok := content.(model.VocabularyContent)
	if !ok {
		return result([]string{"vocabulary payload has the wrong type"}, nil)
	}
	cal := prompts.For(sc.Level)

	var issues, warnings []string
	if len(vc.Entries) == 0 {
		return result([]string{"vocabulary section has no entries"}, nil)
	}
	var allExamples []string
	for _, e := range vc.Entries {
		if e.Word == "" {
			issues = append(issues, "vocabulary entry with empty word")
			continue
		}
		if strings.TrimSpace(e.Meaning) == "" {
			issues = append(issues, fmt.Sprintf("entry %q has no definition", e.Word))
		}
		if len(e.Examples) == 0 {
			issues = append(issues, fmt.Sprintf("entry %q has no example sentences", e.Word))
		} else if len(e.Examples) < cal.ExamplesPerWord {
			warnings = append(warnings, fmt.Sprintf("entry %q has %d examples, wanted %d", e.Word, len(e.Examples), cal.ExamplesPerWord))
		}
		wordMissing, offBand := false, false
		for _, ex := range e.Examples {
			allExamples = append(allExamples, ex)
			if !wordMissing && !containsWord(ex, e.Word) {
				issues = append(issues, fmt.Sprintf("an example for %q does not use the word", e.Word))
				wordMissing = true
			}
			if n := len(strings.Fields(ex)); !offBand && (n < cal.SentenceMinWords || n > cal.SentenceMaxWords) {
				warnings = append(warnings, fmt.Sprintf("entry %q has an example outside the %d-%d word band", e.Word, cal.SentenceMinWords, cal.SentenceMaxWords))
				offBand = true
			}
		}
	}
	warnings = relevanceWarning(warnings, allExamples, sc, "vocabulary examples")
	return result(issues, warnings)
}

func (g *VocabularyGenerator) Fallback(sc *model.SharedContext) model.SectionContent {
	return fallbackVocabularySection(sc)
}
