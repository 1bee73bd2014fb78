package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/pavelanni/lessonforge/internal/llm"
	"github.com/pavelanni/lessonforge/internal/llm/prompts"
	"github.com/pavelanni/lessonforge/internal/model"
)

// Speaker names the model is instructed to use.
const (
	speakerStudent = "Student"
	speakerPartner = "Partner"
)

// gapMarker is the blank placeholder in the fill-in-gap variant.
const gapMarker = "____"

// DialogueGenerator produces both dialogue sections. The practice variant
// adds follow-up questions; the gap variant blanks content words and
// recovers the answer key with a second model call. Neither variant has a
// fallback, since a canned dialogue would ignore the lesson topic
// entirely.
type DialogueGenerator struct {
	llm      llm.Completer
	withGaps bool
}

func NewDialoguePracticeGenerator(c llm.Completer) *DialogueGenerator {
	return &DialogueGenerator{llm: c}
}

func NewDialogueFillGapGenerator(c llm.Completer) *DialogueGenerator {
	return &DialogueGenerator{llm: c, withGaps: true}
}

func (g *DialogueGenerator) Name() string {
	if g.withGaps {
		return model.SectionDialogueFillGap
	}
	return model.SectionDialoguePractice
}

func (g *DialogueGenerator) Generate(ctx context.Context, sc *model.SharedContext, prior []model.GeneratedSection) (model.SectionContent, int, error) {
	passage := readingPassage(prior)
	if passage == "" {
		return nil, 0, fmt.Errorf("dialogue generation: no reading passage available")
	}
	cal := prompts.For(sc.Level)

	comp, err := g.llm.Complete(ctx, prompts.Dialogue(sc, passage, cal.DialogueMinLines, g.withGaps), llm.Options{Temperature: 0.8})
	if err != nil {
		return nil, 0, fmt.Errorf("dialogue generation: %w", err)
	}
	tokens := comp.Tokens

	lines := parseDialogue(comp.Text)
	dc := model.DialogueContent{Dialogue: lines}

	if g.withGaps {
		dc.Instruction = "Fill each blank with a suitable word, then practice the dialogue in pairs."
		answers, err := g.llm.Complete(ctx, prompts.GapAnswers(comp.Text), llm.Options{Temperature: 0.2})
		if err != nil {
			return nil, tokens, fmt.Errorf("gap answer recovery: %w", err)
		}
		tokens += answers.Tokens
		dc.Answers = prompts.Lines(answers.Text)
	} else {
		dc.Instruction = "Practice this dialogue in pairs, then swap roles."
		followUps, err := g.llm.Complete(ctx, prompts.DialogueFollowUps(sc, comp.Text), llm.Options{Temperature: 0.7})
		if err != nil {
			return nil, tokens, fmt.Errorf("dialogue follow-ups: %w", err)
		}
		tokens += followUps.Tokens
		dc.FollowUpQuestions = prompts.Lines(followUps.Text)
	}
	return dc, tokens, nil
}

// parseDialogue extracts "Speaker: text" lines. Lines without a speaker
// prefix are dropped, so stray prose around the dialogue does not corrupt
// the turn structure.
func parseDialogue(raw string) []model.DialogueLine {
	var out []model.DialogueLine
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		speaker, text, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		speaker = strings.TrimSpace(speaker)
		text = strings.TrimSpace(text)
		if speaker != speakerStudent && speaker != speakerPartner {
			continue
		}
		if text == "" {
			continue
		}
		out = append(out, model.DialogueLine{
			Character: speaker,
			Line:      text,
			IsGap:     strings.Contains(text, gapMarker),
		})
	}
	return out
}

func (g *DialogueGenerator) Validate(sc *model.SharedContext, content model.SectionContent) model.ValidationResult {
	dc, ok := content.(model.DialogueContent)
	if !ok {
		return result([]string{"dialogue payload has the wrong type"}, nil)
	}
	cal := prompts.For(sc.Level)

	var issues, warnings []string
	if len(dc.Dialogue) < cal.DialogueMinLines {
		issues = append(issues, fmt.Sprintf("dialogue has %d lines, expected at least %d", len(dc.Dialogue), cal.DialogueMinLines))
	}

	for i, line := range dc.Dialogue {
		want := speakerStudent
		if i%2 == 1 {
			want = speakerPartner
		}
		if line.Character != want {
			issues = append(issues, fmt.Sprintf("line %d spoken by %s, expected %s", i+1, line.Character, want))
			break
		}
	}

	if g.withGaps {
		issues = append(issues, g.validateGaps(dc, cal.GapMinBlanks)...)
	} else {
		if len(dc.FollowUpQuestions) == 0 {
			issues = append(issues, "practice dialogue has no follow-up questions")
		} else {
			issues = append(issues, checkQuestions(dc.FollowUpQuestions, "follow-up question")...)
		}
	}

	if len(sc.KeyVocabulary) > 0 && !dialogueUsesVocabulary(dc, sc.KeyVocabulary) {
		warnings = append(warnings, "dialogue uses none of the lesson vocabulary")
	}
	return result(issues, warnings)
}

func (g *DialogueGenerator) validateGaps(dc model.DialogueContent, minBlanks int) (issues []string) {
	blanks := 0
	for _, line := range dc.Dialogue {
		blanks += strings.Count(line.Line, gapMarker)
	}
	if blanks < minBlanks {
		issues = append(issues, fmt.Sprintf("gap dialogue has %d blanks, expected at least %d", blanks, minBlanks))
	}
	if len(dc.Answers) != blanks {
		issues = append(issues, fmt.Sprintf("answer key has %d entries for %d blanks", len(dc.Answers), blanks))
	}
	for i, a := range dc.Answers {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			issues = append(issues, fmt.Sprintf("answer %d is empty", i+1))
			continue
		}
		if gapStopWords[a] {
			issues = append(issues, fmt.Sprintf("answer %d (%q) is a function word, blanks must be content words", i+1, a))
		}
	}
	return issues
}

func dialogueUsesVocabulary(dc model.DialogueContent, vocabulary []string) bool {
	for _, line := range dc.Dialogue {
		for _, w := range vocabulary {
			if containsWord(line.Line, w) {
				return true
			}
		}
	}
	return false
}

// Fallback returns nil for both variants.
func (g *DialogueGenerator) Fallback(*model.SharedContext) model.SectionContent {
	return nil
}
