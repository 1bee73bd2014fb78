package lessonctx

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pavelanni/lessonforge/internal/llm"
	"github.com/pavelanni/lessonforge/internal/model"
)

// fakeLLM answers prompts by substring match against scripted responses.
type fakeLLM struct {
	responses map[string]string // prompt fragment -> response
	err       error
}

func (f *fakeLLM) Complete(_ context.Context, prompt string, _ llm.Options) (llm.Completion, error) {
	if f.err != nil {
		return llm.Completion{}, f.err
	}
	for fragment, resp := range f.responses {
		if strings.Contains(prompt, fragment) {
			return llm.Completion{Text: resp, Tokens: 10}, nil
		}
	}
	return llm.Completion{}, errors.New("no scripted response")
}

const energyText = `Renewable energy is changing how the world produces electricity.
Solar panels appear on rooftops in many cities. Wind turbines turn steadily along the coast.
Governments invest in cleaner power because climate change worries many people.
Engineers improve batteries so homes can store solar energy for the night.
Many families want cheaper bills and a healthier environment for their children.`

func TestBuildWithScriptedModel(t *testing.T) {
	fake := &fakeLLM{responses: map[string]string{
		"Suggest a short": "Powering the Future",
		"Select up to":    "renewable\nturbine\nelectricity\nbattery\nclimate",
		"Identify up to":  "clean energy\nclimate change",
		"Summarize this":  "A short text about how renewable energy is changing electricity production.",
	}}

	b := NewBuilder(fake)
	sc := b.Build(context.Background(), energyText, "discussion", model.LevelB1, "English")

	if sc.LessonTitle != "Powering the Future" {
		t.Errorf("title = %q", sc.LessonTitle)
	}
	if len(sc.KeyVocabulary) != 5 {
		t.Errorf("vocabulary = %v", sc.KeyVocabulary)
	}
	if sc.KeyVocabulary[0] != "renewable" {
		t.Errorf("relevance order lost: %v", sc.KeyVocabulary)
	}
	if len(sc.MainThemes) != 2 {
		t.Errorf("themes = %v", sc.MainThemes)
	}
	if sc.ContentSummary == "" {
		t.Error("summary should not be empty")
	}
	if sc.Level != model.LevelB1 || sc.TargetLanguage != "English" {
		t.Error("level/language not carried")
	}
}

func TestBuildFallsBackWhenModelFails(t *testing.T) {
	b := NewBuilder(&fakeLLM{err: errors.New("connection refused")})
	sc := b.Build(context.Background(), energyText, "discussion", model.LevelB1, "English")

	if sc.LessonTitle == "" {
		t.Error("fallback title should not be empty")
	}
	if len(sc.KeyVocabulary) == 0 {
		t.Error("fallback vocabulary should not be empty")
	}
	for _, w := range sc.KeyVocabulary {
		if w != strings.ToLower(w) {
			t.Errorf("fallback vocabulary should be lowercased, got %q", w)
		}
	}

	foundEnergy := false
	for _, theme := range sc.MainThemes {
		if strings.Contains(theme, "energy") {
			foundEnergy = true
		}
	}
	if !foundEnergy {
		t.Errorf("expected an energy theme, got %v", sc.MainThemes)
	}

	if len([]rune(sc.ContentSummary)) > SummaryCharCap+3 {
		t.Errorf("summary too long: %d runes", len([]rune(sc.ContentSummary)))
	}
}

func TestFallbackVocabularyExcludesStopAndProperWords(t *testing.T) {
	text := "Berlin is famous for museums. The museums attract visitors because the museums preserve history. Visitors enjoy history and visitors recommend Berlin."
	words := fallbackVocabulary(text, 5)

	for _, w := range words {
		if stopWords[w] {
			t.Errorf("stop word %q should be excluded", w)
		}
		if w == "berlin" {
			t.Error("proper noun Berlin should be excluded")
		}
	}
	if len(words) == 0 || words[0] != "museums" {
		t.Errorf("most frequent content word should rank first, got %v", words)
	}
}

func TestFallbackSummaryTruncatesAtWordBoundary(t *testing.T) {
	long := strings.Repeat("irrigation systems need maintenance ", 30)
	sum := fallbackSummary(long, 300)
	if len([]rune(sum)) > 303 {
		t.Errorf("summary too long: %d", len([]rune(sum)))
	}
	if !strings.HasSuffix(sum, "...") {
		t.Errorf("truncated summary should end with ellipsis, got %q", sum)
	}
	if strings.Contains(sum, "  ") {
		t.Error("summary should not contain double spaces")
	}
}

func TestFallbackThemesDefault(t *testing.T) {
	themes := fallbackThemes("xyzzy plugh nothing matches qqq", 5)
	if len(themes) != 1 || themes[0] != "everyday life" {
		t.Errorf("expected default theme, got %v", themes)
	}
}
