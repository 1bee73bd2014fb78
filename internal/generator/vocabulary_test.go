package generator

import (
	"strings"
	"testing"

	"github.com/pavelanni/lessonforge/internal/model"
)

func vocabContext(t *testing.T) *model.SharedContext {
	t.Helper()
	return &model.SharedContext{
		LessonTitle:    "Wind Power at Home",
		KeyVocabulary:  []string{"turbine", "electricity"},
		MainThemes:     []string{"renewable energy"},
		Level:          model.LevelB1,
		TargetLanguage: "English",
	}
}

func vocabSection(word string, examples ...string) model.VocabularyContent {
	return model.VocabularyContent{
		Entries: []model.VocabEntry{
			{Word: word, Meaning: "A machine that turns wind into power.", Examples: examples},
		},
	}
}

func TestVocabularyValidateAcceptsCalibratedEntries(t *testing.T) {
	g := NewVocabularyGenerator(nil)
	vr := g.Validate(vocabContext(t), vocabSection("turbine",
		"The turbine helps many families in our town save money.",
		"Our teacher explained how a modern turbine works at school.",
		"Every turbine needs regular care and attention from trained people.",
		"People often discuss the turbine in the news these days.",
	))

	if !vr.IsValid {
		t.Fatalf("issues = %v", vr.Issues)
	}
	if len(vr.Warnings) != 0 {
		t.Errorf("warnings = %v", vr.Warnings)
	}
}

func TestVocabularyValidateRejectsUnusedWord(t *testing.T) {
	g := NewVocabularyGenerator(nil)
	// Four in-band sentences, none of which contain the target word.
	vr := g.Validate(vocabContext(t), vocabSection("turbine",
		"The machine helps many families in our town save money.",
		"Our teacher explained how a modern generator works at school.",
		"Every device needs regular care and attention from trained people.",
		"People often discuss the electricity supply in the news these days.",
	))

	if vr.IsValid {
		t.Fatal("examples that never use the word must fail validation")
	}
	found := false
	for _, issue := range vr.Issues {
		if strings.Contains(issue, "turbine") && strings.Contains(issue, "does not use the word") {
			found = true
		}
	}
	if !found {
		t.Errorf("issues = %v", vr.Issues)
	}
}

func TestVocabularyValidateFlagsSentenceBand(t *testing.T) {
	g := NewVocabularyGenerator(nil)
	// The word is used, but the sentences fall below the B1 band of 8 words.
	vr := g.Validate(vocabContext(t), vocabSection("turbine",
		"A turbine turns.",
		"The turbine helps many families in our town save money.",
		"Our teacher explained how a modern turbine works at school.",
		"People often discuss the turbine in the news these days.",
	))

	if !vr.IsValid {
		t.Fatalf("sentence length alone must not fail validation: %v", vr.Issues)
	}
	found := false
	for _, w := range vr.Warnings {
		if strings.Contains(w, "word band") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v", vr.Warnings)
	}
}

func TestVocabularyValidateFlagsMissingExamples(t *testing.T) {
	g := NewVocabularyGenerator(nil)
	vr := g.Validate(vocabContext(t), vocabSection("turbine"))

	if vr.IsValid {
		t.Fatal("entry without examples must fail validation")
	}
}
