package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/lessonforge/internal/content"
	"github.com/pavelanni/lessonforge/internal/lessonctx"
	"github.com/pavelanni/lessonforge/internal/llm"
	"github.com/pavelanni/lessonforge/internal/model"
)

// maxAttempts bounds model calls per section. After the final failed
// attempt the section degrades to its fallback or aborts the lesson.
const maxAttempts = 2

// detectedThemeCap limits how many themes one passage can add to the
// shared context.
const detectedThemeCap = 3

// Request describes one lesson to generate.
type Request struct {
	SourceText     string
	LessonType     string
	Level          model.CEFRLevel
	TargetLanguage string
}

// InputError reports source text rejected before any model call. Handlers
// map it to a client error rather than a server failure.
type InputError struct {
	Outcome content.Outcome
}

func (e *InputError) Error() string {
	return "source text rejected: " + e.Outcome.Reason
}

// Pipeline runs the full lesson generation flow: input validation,
// shared context construction, then the scheduled sections in dependency
// order with per-section validation, bounded retry and quality tracking.
type Pipeline struct {
	builder    *lessonctx.Builder
	tracker    *Tracker
	schedule   Schedule
	generators map[string]Generator
}

// NewPipeline wires the default schedule and one generator per section.
func NewPipeline(c llm.Completer, tracker *Tracker) (*Pipeline, error) {
	schedule := DefaultSchedule()
	if err := schedule.Validate(); err != nil {
		return nil, fmt.Errorf("lesson schedule: %w", err)
	}

	gens := []Generator{
		NewWarmUpGenerator(c),
		NewVocabularyGenerator(c),
		NewReadingGenerator(c),
		NewComprehensionGenerator(c),
		NewGrammarGenerator(c),
		NewDiscussionGenerator(c),
		NewPronunciationGenerator(c),
		NewDialoguePracticeGenerator(c),
		NewDialogueFillGapGenerator(c),
		NewWrapUpGenerator(c),
	}
	byName := make(map[string]Generator, len(gens))
	for _, g := range gens {
		byName[g.Name()] = g
	}
	for _, section := range schedule {
		if _, ok := byName[section.Name]; !ok {
			return nil, fmt.Errorf("no generator for scheduled section %q", section.Name)
		}
	}

	return &Pipeline{
		builder:    lessonctx.NewBuilder(c),
		tracker:    tracker,
		schedule:   schedule,
		generators: byName,
	}, nil
}

// Tracker exposes the quality tracker for reporting.
func (p *Pipeline) Tracker() *Tracker { return p.tracker }

// Run generates a complete lesson. It returns an InputError when the
// source text is unsuitable, and a plain error when a section without a
// fallback fails validation on every attempt. A lesson is returned only
// when every section succeeded or degraded to an accepted fallback.
func (p *Pipeline) Run(ctx context.Context, req Request) (*model.Lesson, error) {
	outcome := content.Validate(req.SourceText)
	if !outcome.IsValid {
		return nil, &InputError{Outcome: outcome}
	}
	if req.TargetLanguage == "" {
		req.TargetLanguage = "English"
	}
	if req.LessonType == "" {
		req.LessonType = "discussion"
	}

	sc := p.builder.Build(ctx, req.SourceText, req.LessonType, req.Level, req.TargetLanguage)

	var results []model.GeneratedSection
	for _, section := range p.schedule {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		gs, rec, err := p.runSection(ctx, section, sc, results)
		if err != nil {
			return nil, err
		}
		p.tracker.Record(rec)
		results = append(results, gs)
		p.updateContext(sc, gs)
	}

	return assembleLesson(sc, results), nil
}

// runSection drives one section through its attempt budget.
func (p *Pipeline) runSection(ctx context.Context, section model.LessonSection, sc *model.SharedContext, prior []model.GeneratedSection) (model.GeneratedSection, model.QualityRecord, error) {
	gen := p.generators[section.Name]
	start := time.Now()

	var lastResult model.ValidationResult
	tokens := 0

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		payload, used, err := gen.Generate(ctx, sc, prior)
		tokens += used
		if err != nil {
			if ctx.Err() != nil {
				return model.GeneratedSection{}, model.QualityRecord{}, ctx.Err()
			}
			slog.Warn("section generation failed",
				"section", section.Name, "attempt", attempt, "error", err)
			lastResult = model.ValidationResult{Issues: []string{err.Error()}}
			continue
		}

		vr := gen.Validate(sc, payload)
		lastResult = vr
		if vr.IsValid {
			for _, w := range vr.Warnings {
				slog.Debug("section warning", "section", section.Name, "warning", w)
			}
			return model.GeneratedSection{
					SectionName:        section.Name,
					Content:            payload,
					TokensUsed:         tokens,
					GenerationStrategy: StrategyModel,
				}, model.QualityRecord{
					SectionName:      section.Name,
					Score:            vr.Score,
					Attempts:         attempt,
					GenerationTimeMs: time.Since(start).Milliseconds(),
					IssueCount:       0,
					WarningCount:     len(vr.Warnings),
				}, nil
		}
		slog.Warn("section validation failed",
			"section", section.Name, "attempt", attempt, "issues", vr.Issues)
	}

	if !section.HasFallback {
		return model.GeneratedSection{}, model.QualityRecord{},
			fmt.Errorf("section %q failed validation after %d attempts: %v", section.Name, maxAttempts, lastResult.Issues)
	}
	fallback := gen.Fallback(sc)
	if fallback == nil {
		return model.GeneratedSection{}, model.QualityRecord{},
			fmt.Errorf("section %q has no fallback payload", section.Name)
	}

	slog.Warn("section degraded to fallback", "section", section.Name, "issues", lastResult.Issues)
	return model.GeneratedSection{
			SectionName:        section.Name,
			Content:            fallback,
			TokensUsed:         tokens,
			GenerationStrategy: StrategyFallback,
		}, model.QualityRecord{
			SectionName:      section.Name,
			Score:            lastResult.Score,
			Attempts:         maxAttempts,
			GenerationTimeMs: time.Since(start).Milliseconds(),
			IssueCount:       len(lastResult.Issues),
			WarningCount:     len(lastResult.Warnings),
		}, nil
}

// updateContext grows the shared context from a completed section.
// Vocabulary entries feed the word list; a generated passage can surface
// themes the source extraction missed. The context only ever grows.
func (p *Pipeline) updateContext(sc *model.SharedContext, gs model.GeneratedSection) {
	switch payload := gs.Content.(type) {
	case model.VocabularyContent:
		for _, e := range payload.Entries {
			sc.AddVocabulary(e.Word)
		}
	case model.ReadingContent:
		sc.AddThemes(lessonctx.DetectThemes(payload.Passage, detectedThemeCap)...)
	}
}

// assembleLesson builds the final artifact from completed sections.
func assembleLesson(sc *model.SharedContext, results []model.GeneratedSection) *model.Lesson {
	lesson := &model.Lesson{
		Title:          sc.LessonTitle,
		Level:          sc.Level,
		TargetLanguage: sc.TargetLanguage,
		LessonType:     sc.LessonType,
		Sections:       make(map[string]model.SectionContent, len(results)),
		CreatedAt:      time.Now().UTC(),
	}
	for _, gs := range results {
		lesson.SectionOrder = append(lesson.SectionOrder, gs.SectionName)
		lesson.Sections[gs.SectionName] = gs.Content
	}
	return lesson
}
