package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pavelanni/lessonforge/internal/llm"
	"github.com/pavelanni/lessonforge/internal/model"
)

// fakeLLM routes prompts to a reply function so tests can script every
// generation step.
type fakeLLM struct {
	reply func(prompt string) (string, error)
	calls int
}

func (f *fakeLLM) Complete(_ context.Context, prompt string, _ llm.Options) (llm.Completion, error) {
	f.calls++
	text, err := f.reply(prompt)
	if err != nil {
		return llm.Completion{}, err
	}
	return llm.Completion{Text: text, Tokens: 10}, nil
}

const sourceText = `Renewable energy is changing how the world produces electricity.
Solar panels appear on rooftops in many cities, and wind turbines turn steadily along the coast.
Governments invest in cleaner power because climate change worries many people today.
Engineers keep improving batteries so that homes can store solar energy for the night.
Many families want cheaper bills and a healthier environment for their children.
Schools now teach students how a turbine converts wind into useful electricity.
Some villages already run completely on renewable power during sunny months.`

// practiceDialogue builds n alternating lines mentioning the vocabulary.
func practiceDialogue(n int, gaps bool) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		speaker := "Student"
		if i%2 == 1 {
			speaker = "Partner"
		}
		line := fmt.Sprintf("I think the turbine near line %d is impressive.", i+1)
		if gaps && i < 6 {
			line = fmt.Sprintf("I think the ____ near line %d is impressive.", i+1)
		}
		fmt.Fprintf(&sb, "%s: %s\n", speaker, line)
	}
	return sb.String()
}

// scriptedReply answers every pipeline prompt with valid content for a
// B1 lesson.
func scriptedReply(prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "Suggest a short"):
		return "Powering Homes with Renewable Energy", nil
	case strings.Contains(prompt, "Select up to"):
		return "renewable\nturbine\nelectricity\nbattery\nclimate", nil
	case strings.Contains(prompt, "Identify up to"):
		return "clean energy\nclimate change", nil
	case strings.Contains(prompt, "Summarize this"):
		return "How renewable energy and better batteries are changing home electricity.", nil
	case strings.Contains(prompt, "warm-up questions"):
		return "Have you ever seen a wind turbine near your town?\n" +
			"What do you use electricity for every day?\n" +
			"Is renewable energy popular in your country?\n" +
			"Would you put solar panels on your home?", nil
	case strings.Contains(prompt, "Define the word"):
		return "A simple way to describe this renewable energy idea.", nil
	case strings.Contains(prompt, "example sentences using the word"):
		word := quotedWord(prompt)
		return fmt.Sprintf("The %s helps many families in our town save money.\n", word) +
			fmt.Sprintf("Our teacher explained how a modern %s works at school.\n", word) +
			fmt.Sprintf("Every %s needs regular care and attention from trained people.\n", word) +
			fmt.Sprintf("People often discuss the %s in the news these days.", word), nil
	case strings.Contains(prompt, "Write a reading passage"):
		return "Renewable energy is growing quickly in many countries. A modern turbine can power hundreds of homes with clean electricity. " +
			"Engineers improve every battery so families can store solar power for the evening. " +
			"Because the climate is changing, governments now support renewable projects everywhere.", nil
	case strings.Contains(prompt, "comprehension questions"):
		return "What can a modern turbine power?\n" +
			"Why do engineers improve batteries?\n" +
			"What do governments support now?\n" +
			"When do families use stored solar power?\n" +
			"Which energy sources does the passage mention?", nil
	case strings.Contains(prompt, "Choose ONE grammar point"):
		return `{"focus": "present simple for facts", "explanation": {"form": "subject + base verb", "usage": "general truths and routines", "level_notes": "solid ground before perfect tenses"}, "examples": ["A turbine turns in the wind.", "Engineers improve batteries.", "Governments support clean power."], "exercises": ["A turbine ___ (turn) in the wind.", "Engineers ___ (improve) batteries.", "The climate ___ (change) slowly."]}`, nil
	case strings.Contains(prompt, "open discussion questions"):
		return "Would you pay more for renewable electricity?\n" +
			"How could your school use solar energy?\n" +
			"What stops people from buying a battery for their home?\n" +
			"Do you trust your government on climate policy?", nil
	case strings.Contains(prompt, "tongue twisters"):
		return "Twelve turbines turn together tirelessly.\nBig batteries bring bright beams.", nil
	case strings.Contains(prompt, "blanked out as ____"):
		return "turbine\nturbine\nturbine\nturbine\nturbine\nturbine", nil
	case strings.Contains(prompt, "follow-up questions a teacher"):
		return "What does the student admire?\nHow does the partner respond?\nWhich vocabulary words did they reuse?", nil
	case strings.Contains(prompt, "dialogue of at least"):
		gaps := strings.Contains(prompt, "____")
		return practiceDialogue(12, gaps), nil
	case strings.Contains(prompt, "wrap-up prompts"):
		return "Name three new words about renewable energy and use each in a sentence.\n" +
			"Tell your partner the most interesting fact about turbines from today.\n" +
			"Write one sentence about how a battery stores electricity.", nil
	}
	return "", fmt.Errorf("unscripted prompt: %.60s", prompt)
}

func quotedWord(prompt string) string {
	start := strings.IndexByte(prompt, '"')
	if start == -1 {
		return "word"
	}
	end := strings.IndexByte(prompt[start+1:], '"')
	if end == -1 {
		return "word"
	}
	return prompt[start+1 : start+1+end]
}

func TestPipelineGeneratesFullLesson(t *testing.T) {
	tracker := NewTracker()
	p, err := NewPipeline(&fakeLLM{reply: scriptedReply}, tracker)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	lesson, err := p.Run(context.Background(), Request{
		SourceText: sourceText,
		LessonType: "discussion",
		Level:      model.LevelB1,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if lesson.Title != "Powering Homes with Renewable Energy" {
		t.Errorf("title = %q", lesson.Title)
	}
	if lesson.TargetLanguage != "English" {
		t.Errorf("default language not applied: %q", lesson.TargetLanguage)
	}
	if len(lesson.SectionOrder) != len(DefaultSchedule()) {
		t.Fatalf("section order = %v", lesson.SectionOrder)
	}
	for _, name := range lesson.SectionOrder {
		if _, ok := lesson.Sections[name]; !ok {
			t.Errorf("section %q listed but missing", name)
		}
	}

	grammar, ok := lesson.Sections[model.SectionGrammar].(model.GrammarContent)
	if !ok || grammar.Focus == "" {
		t.Errorf("grammar section = %#v", lesson.Sections[model.SectionGrammar])
	}
	gap, ok := lesson.Sections[model.SectionDialogueFillGap].(model.DialogueContent)
	if !ok || len(gap.Answers) == 0 {
		t.Errorf("gap dialogue = %#v", lesson.Sections[model.SectionDialogueFillGap])
	}

	summary := tracker.Summary()
	if summary.Sections != len(DefaultSchedule()) {
		t.Errorf("tracked %d sections", summary.Sections)
	}
	if summary.AverageScore < 60 {
		t.Errorf("average score = %.1f", summary.AverageScore)
	}
}

func TestPipelineRejectsPoorInput(t *testing.T) {
	p, err := NewPipeline(&fakeLLM{reply: scriptedReply}, NewTracker())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	_, err = p.Run(context.Background(), Request{SourceText: "too short", Level: model.LevelB1})
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("want InputError, got %v", err)
	}
	if inputErr.Outcome.IsValid {
		t.Error("outcome should be invalid")
	}
}

func TestRunSectionDegradesToFallback(t *testing.T) {
	// Warm-up replies never end with question marks, so both attempts
	// fail validation and the deterministic fallback is accepted.
	fake := &fakeLLM{reply: func(prompt string) (string, error) {
		return "this is not a question\nneither is this\nnor this\nnor this", nil
	}}
	p, err := NewPipeline(fake, NewTracker())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	sc := &model.SharedContext{Level: model.LevelB1, MainThemes: []string{"clean energy"}}
	section := model.LessonSection{Name: model.SectionWarmUp, HasFallback: true}

	gs, rec, err := p.runSection(context.Background(), section, sc, nil)
	if err != nil {
		t.Fatalf("runSection: %v", err)
	}
	if gs.GenerationStrategy != StrategyFallback {
		t.Errorf("strategy = %q", gs.GenerationStrategy)
	}
	if fake.calls != maxAttempts {
		t.Errorf("model called %d times, want %d", fake.calls, maxAttempts)
	}
	if rec.Attempts != maxAttempts || rec.IssueCount == 0 {
		t.Errorf("record = %+v", rec)
	}
	list, ok := gs.Content.(model.StringListContent)
	if !ok || len(list.Items) == 0 {
		t.Errorf("fallback payload = %#v", gs.Content)
	}
}

func TestRunSectionAbortsWithoutFallback(t *testing.T) {
	fake := &fakeLLM{reply: func(prompt string) (string, error) {
		return "", errors.New("model unavailable")
	}}
	p, err := NewPipeline(fake, NewTracker())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	sc := &model.SharedContext{Level: model.LevelB1, KeyVocabulary: []string{"turbine", "battery"}}
	section := model.LessonSection{Name: model.SectionPronunciation, HasFallback: false}

	if _, _, err := p.runSection(context.Background(), section, sc, nil); err == nil {
		t.Fatal("section without fallback should abort after final attempt")
	}
}

func TestUpdateContextGrowsThemes(t *testing.T) {
	p, err := NewPipeline(&fakeLLM{reply: scriptedReply}, NewTracker())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	sc := &model.SharedContext{Level: model.LevelB1}
	p.updateContext(sc, model.GeneratedSection{
		SectionName: model.SectionReading,
		Content:     model.ReadingContent{Passage: "Solar and wind energy reduce climate damage while renewable power grows."},
	})
	if len(sc.MainThemes) == 0 {
		t.Error("reading passage should contribute themes")
	}
}
