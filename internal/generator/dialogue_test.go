package generator

import (
	"strings"
	"testing"

	"github.com/pavelanni/lessonforge/internal/model"
)

func TestParseDialogue(t *testing.T) {
	raw := "Here is your dialogue:\n" +
		"Student: Do you walk to school?\n" +
		"Partner: Yes, I ____ every morning.\n" +
		"\n" +
		"Narrator: this speaker is not allowed\n" +
		"Student: That sounds healthy.\n"

	lines := parseDialogue(raw)
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %#v", len(lines), lines)
	}
	if lines[0].Character != "Student" || lines[1].Character != "Partner" {
		t.Errorf("speakers = %q, %q", lines[0].Character, lines[1].Character)
	}
	if !lines[1].IsGap {
		t.Error("line with blank should be marked as gap")
	}
	if lines[0].IsGap || lines[2].IsGap {
		t.Error("lines without blanks must not be marked")
	}
}

func TestDialogueValidateAlternation(t *testing.T) {
	g := NewDialoguePracticeGenerator(nil)
	sc := &model.SharedContext{Level: model.LevelA1}

	dialogue := make([]model.DialogueLine, 12)
	for i := range dialogue {
		speaker := "Student"
		if i%2 == 1 {
			speaker = "Partner"
		}
		dialogue[i] = model.DialogueLine{Character: speaker, Line: "Hello there."}
	}
	content := model.DialogueContent{
		Dialogue:          dialogue,
		FollowUpQuestions: []string{"What did they say?"},
	}
	if vr := g.Validate(sc, content); !vr.IsValid {
		t.Errorf("well-formed dialogue rejected: %v", vr.Issues)
	}

	// Partner opening breaks the turn contract.
	content.Dialogue[0].Character = "Partner"
	content.Dialogue[1].Character = "Student"
	if vr := g.Validate(sc, content); vr.IsValid {
		t.Error("dialogue not opened by Student should be rejected")
	}
}

func TestDialogueValidateTooShort(t *testing.T) {
	g := NewDialoguePracticeGenerator(nil)
	sc := &model.SharedContext{Level: model.LevelA1}

	content := model.DialogueContent{
		Dialogue: []model.DialogueLine{
			{Character: "Student", Line: "Hi."},
			{Character: "Partner", Line: "Hello."},
		},
		FollowUpQuestions: []string{"Was it short?"},
	}
	vr := g.Validate(sc, content)
	if vr.IsValid {
		t.Error("two-line dialogue should be rejected")
	}
	found := false
	for _, issue := range vr.Issues {
		if strings.Contains(issue, "lines") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a line-count issue, got %v", vr.Issues)
	}
}

func TestGapDialogueValidateAnswerKey(t *testing.T) {
	g := NewDialogueFillGapGenerator(nil)
	sc := &model.SharedContext{Level: model.LevelA1}

	dialogue := make([]model.DialogueLine, 12)
	for i := range dialogue {
		speaker := "Student"
		if i%2 == 1 {
			speaker = "Partner"
		}
		line := "We talk about school."
		if i < 3 {
			line = "We talk about ____."
		}
		dialogue[i] = model.DialogueLine{Character: speaker, Line: line, IsGap: i < 3}
	}

	content := model.DialogueContent{Dialogue: dialogue, Answers: []string{"school", "sport", "music"}}
	if vr := g.Validate(sc, content); !vr.IsValid {
		t.Errorf("valid gap dialogue rejected: %v", vr.Issues)
	}

	// Answer count must match blank count.
	content.Answers = []string{"school", "sport"}
	if vr := g.Validate(sc, content); vr.IsValid {
		t.Error("mismatched answer key should be rejected")
	}

	// Function words must never be blanked.
	content.Answers = []string{"school", "sport", "the"}
	if vr := g.Validate(sc, content); vr.IsValid {
		t.Error("function word answer should be rejected")
	}
}

func TestDialogueHasNoFallback(t *testing.T) {
	if NewDialoguePracticeGenerator(nil).Fallback(&model.SharedContext{}) != nil {
		t.Error("practice dialogue must not have a fallback")
	}
	if NewDialogueFillGapGenerator(nil).Fallback(&model.SharedContext{}) != nil {
		t.Error("gap dialogue must not have a fallback")
	}
}
