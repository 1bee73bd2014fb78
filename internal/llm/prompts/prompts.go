// Package prompts builds level-calibrated instruction sets for every
// generation step. Calibration is data: one table entry per CEFR level,
// consumed by the builders and by the output validators.
package prompts

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pavelanni/lessonforge/internal/model"
)

var (
	sourceTextRegex   = regexp.MustCompile(`(?i)</?\s*source-text\b[^>]*>`)
	instructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

// SourceTextLimit bounds the source prefix carried in the shared context.
const SourceTextLimit = 2000

// Calibration holds the per-level thresholds that shape both prompt
// construction and output validation.
type Calibration struct {
	SentenceMinWords int
	SentenceMaxWords int
	VocabularyBand   string
	AllowedGrammar   []string
	ForbiddenGrammar []string

	VocabularyCount    int // entries in the vocabulary section
	ExamplesPerWord    int // example sentences per vocabulary entry
	WarmUpCount        int
	ComprehensionCount int
	DiscussionCount    int
	WrapUpCount        int
	ReadingCharCap     int
	DialogueMinLines   int
	GapMinBlanks       int
	PronunciationWords int
}

var calibrations = map[model.CEFRLevel]Calibration{
	model.LevelA1: {
		SentenceMinWords: 4, SentenceMaxWords: 8,
		VocabularyBand:   "the 1000 most common words",
		AllowedGrammar:   []string{"present simple", "imperatives", "basic questions with do/does"},
		ForbiddenGrammar: []string{"perfect tenses", "passive voice", "relative clauses", "conditionals"},
		VocabularyCount: 6, ExamplesPerWord: 5,
		WarmUpCount: 3, ComprehensionCount: 4, DiscussionCount: 3, WrapUpCount: 3,
		ReadingCharCap: 180, DialogueMinLines: 12, GapMinBlanks: 3,
		PronunciationWords: 4,
	},
	model.LevelA2: {
		SentenceMinWords: 5, SentenceMaxWords: 10,
		VocabularyBand:   "the 2000 most common words",
		AllowedGrammar:   []string{"present simple", "past simple", "going to future", "comparatives"},
		ForbiddenGrammar: []string{"perfect tenses", "passive voice", "reported speech"},
		VocabularyCount: 7, ExamplesPerWord: 5,
		WarmUpCount: 3, ComprehensionCount: 4, DiscussionCount: 3, WrapUpCount: 3,
		ReadingCharCap: 250, DialogueMinLines: 12, GapMinBlanks: 4,
		PronunciationWords: 5,
	},
	model.LevelB1: {
		SentenceMinWords: 8, SentenceMaxWords: 15,
		VocabularyBand:   "the 3000 most common words plus topic vocabulary",
		AllowedGrammar:   []string{"all simple and continuous tenses", "present perfect", "first and second conditionals", "basic relative clauses"},
		ForbiddenGrammar: []string{"mixed conditionals", "inversion", "cleft sentences"},
		VocabularyCount: 8, ExamplesPerWord: 4,
		WarmUpCount: 4, ComprehensionCount: 5, DiscussionCount: 4, WrapUpCount: 3,
		ReadingCharCap: 350, DialogueMinLines: 12, GapMinBlanks: 5,
		PronunciationWords: 5,
	},
	model.LevelB2: {
		SentenceMinWords: 10, SentenceMaxWords: 20,
		VocabularyBand:   "a broad general vocabulary including common idioms",
		AllowedGrammar:   []string{"all tenses", "passive voice", "all conditionals", "relative clauses", "reported speech"},
		ForbiddenGrammar: []string{},
		VocabularyCount: 9, ExamplesPerWord: 3,
		WarmUpCount: 4, ComprehensionCount: 5, DiscussionCount: 4, WrapUpCount: 4,
		ReadingCharCap: 500, DialogueMinLines: 14, GapMinBlanks: 6,
		PronunciationWords: 6,
	},
	model.LevelC1: {
		SentenceMinWords: 12, SentenceMaxWords: 25,
		VocabularyBand:   "sophisticated vocabulary including low-frequency words and idioms",
		AllowedGrammar:   []string{"all structures", "inversion", "cleft sentences", "mixed conditionals"},
		ForbiddenGrammar: []string{},
		VocabularyCount: 10, ExamplesPerWord: 2,
		WarmUpCount: 4, ComprehensionCount: 6, DiscussionCount: 5, WrapUpCount: 4,
		ReadingCharCap: 650, DialogueMinLines: 14, GapMinBlanks: 6,
		PronunciationWords: 6,
	},
}

// For returns the calibration table entry for a level.
func For(level model.CEFRLevel) Calibration {
	return calibrations[level]
}

// constraintBlock renders the shared level instructions used by every
// section prompt.
func constraintBlock(level model.CEFRLevel, lang string) string {
	cal := For(level)
	var sb strings.Builder
	fmt.Fprintf(&sb, "TARGET LEVEL: CEFR %s\n", level)
	fmt.Fprintf(&sb, "LANGUAGE: %s\n", lang)
	fmt.Fprintf(&sb, "- Use sentences of %d to %d words.\n", cal.SentenceMinWords, cal.SentenceMaxWords)
	fmt.Fprintf(&sb, "- Restrict vocabulary to %s.\n", cal.VocabularyBand)
	fmt.Fprintf(&sb, "- Permitted grammar: %s.\n", strings.Join(cal.AllowedGrammar, ", "))
	if len(cal.ForbiddenGrammar) > 0 {
		fmt.Fprintf(&sb, "- Do NOT use: %s.\n", strings.Join(cal.ForbiddenGrammar, ", "))
	}
	return sb.String()
}

func contextBlock(c *model.SharedContext) string {
	var sb strings.Builder
	sb.WriteString("LESSON TOPIC: " + c.LessonTitle + "\n")
	if len(c.MainThemes) > 0 {
		sb.WriteString("THEMES: " + strings.Join(c.MainThemes, ", ") + "\n")
	}
	if c.ContentSummary != "" {
		sb.WriteString("SUMMARY: " + c.ContentSummary + "\n")
	}
	return sb.String()
}

// Title asks for a short lesson title.
func Title(sourceText, lessonType string) string {
	var sb strings.Builder
	sb.WriteString("Suggest a short, engaging title for a " + lessonType + " language lesson based on this text.\n")
	sb.WriteString("Respond with the title only, no quotes, at most 8 words.\n\n")
	sb.WriteString("TEXT:\n" + SanitizeSource(sourceText) + "\n")
	return sb.String()
}

// Vocabulary asks for key vocabulary candidates from the source text.
func Vocabulary(sourceText string, level model.CEFRLevel, maxWords int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Select up to %d vocabulary words from this text that a CEFR %s learner should study.\n", maxWords, level)
	sb.WriteString("Pick single content words that appear in the text. Exclude names of people and places.\n")
	sb.WriteString("Respond with one word per line, most useful first, no numbering, no definitions.\n\n")
	sb.WriteString("TEXT:\n" + SanitizeSource(sourceText) + "\n")
	return sb.String()
}

// Themes asks for the main themes of the source text.
func Themes(sourceText string, maxThemes int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Identify up to %d main themes of this text.\n", maxThemes)
	sb.WriteString("Respond with one short theme phrase per line (1-3 words), no numbering.\n\n")
	sb.WriteString("TEXT:\n" + SanitizeSource(sourceText) + "\n")
	return sb.String()
}

// Summary asks for a compact summary of the source text.
func Summary(sourceText string, charCap int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Summarize this text in at most %d characters, in plain prose.\n", charCap)
	sb.WriteString("Respond with the summary only.\n\n")
	sb.WriteString("TEXT:\n" + SanitizeSource(sourceText) + "\n")
	return sb.String()
}

// WarmUp builds the warm-up question prompt. Warm-up questions precede the
// reading, so the model is told to activate general topic familiarity and
// never to assume knowledge of specific facts from the source.
func WarmUp(c *model.SharedContext) string {
	cal := For(c.Level)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write %d warm-up questions for the start of a language lesson.\n\n", cal.WarmUpCount)
	sb.WriteString(contextBlock(c))
	sb.WriteString(constraintBlock(c.Level, c.TargetLanguage))
	sb.WriteString("\nINSTRUCTIONS:\n")
	sb.WriteString("- The learner has NOT read the lesson text yet. Do not assume knowledge of any specific fact, number, name or event from it.\n")
	sb.WriteString("- Ask only about the learner's own experience and general familiarity with the topic.\n")
	sb.WriteString("- Each question must end with a question mark.\n")
	sb.WriteString("- Respond with one question per line, no numbering.\n")
	return sb.String()
}

// VocabDefinition asks for a learner definition of one word.
func VocabDefinition(c *model.SharedContext, word string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Define the word %q for a CEFR %s learner of %s.\n", word, c.Level, c.TargetLanguage)
	sb.WriteString("Use simpler words than the word itself. Respond with the definition only, one sentence, no lead-in.\n")
	return sb.String()
}

// VocabExamples asks for n example sentences using the word.
func VocabExamples(c *model.SharedContext, word string, n int) string {
	cal := For(c.Level)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write %d example sentences using the word %q.\n\n", n, word)
	sb.WriteString(contextBlock(c))
	sb.WriteString(constraintBlock(c.Level, c.TargetLanguage))
	sb.WriteString("\nINSTRUCTIONS:\n")
	fmt.Fprintf(&sb, "- Every sentence must contain the word %q.\n", word)
	fmt.Fprintf(&sb, "- Keep each sentence between %d and %d words.\n", cal.SentenceMinWords, cal.SentenceMaxWords)
	sb.WriteString("- Relate the sentences to the lesson topic where natural.\n")
	sb.WriteString("- Respond with one sentence per line, no numbering.\n")
	return sb.String()
}

// Reading builds the reading passage prompt. The passage must reuse the
// vocabulary chosen earlier, which is why reading depends on vocabulary.
func Reading(c *model.SharedContext, chosenWords []string) string {
	cal := For(c.Level)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a reading passage of at most %d characters for a language lesson.\n\n", cal.ReadingCharCap)
	sb.WriteString(contextBlock(c))
	sb.WriteString(constraintBlock(c.Level, c.TargetLanguage))
	sb.WriteString("\nINSTRUCTIONS:\n")
	if len(chosenWords) > 0 {
		sb.WriteString("- Naturally include these vocabulary words: " + strings.Join(chosenWords, ", ") + ".\n")
	}
	sb.WriteString("- Base the passage on the source text below without copying sentences verbatim.\n")
	sb.WriteString("- Respond with the passage only, plain prose, no title.\n\n")
	sb.WriteString("SOURCE TEXT:\n" + SanitizeSource(c.SourceText) + "\n")
	return sb.String()
}

// Comprehension builds questions about the generated passage.
func Comprehension(c *model.SharedContext, passage string) string {
	cal := For(c.Level)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write %d comprehension questions about this reading passage.\n\n", cal.ComprehensionCount)
	sb.WriteString(constraintBlock(c.Level, c.TargetLanguage))
	sb.WriteString("\nINSTRUCTIONS:\n")
	sb.WriteString("- Every question must be answerable from the passage alone.\n")
	sb.WriteString("- Each question must end with a question mark.\n")
	sb.WriteString("- Respond with one question per line, no numbering.\n\n")
	sb.WriteString("PASSAGE:\n" + passage + "\n")
	return sb.String()
}

// Discussion builds open discussion questions building on reading and
// comprehension.
func Discussion(c *model.SharedContext, passage string) string {
	cal := For(c.Level)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write %d open discussion questions that go beyond this reading passage.\n\n", cal.DiscussionCount)
	sb.WriteString(contextBlock(c))
	sb.WriteString(constraintBlock(c.Level, c.TargetLanguage))
	sb.WriteString("\nINSTRUCTIONS:\n")
	sb.WriteString("- Ask for opinions, personal experience and speculation, not facts from the passage.\n")
	sb.WriteString("- Each question must end with a question mark.\n")
	sb.WriteString("- Respond with one question per line, no numbering.\n\n")
	sb.WriteString("PASSAGE:\n" + passage + "\n")
	return sb.String()
}

// Grammar requests one grammar point with examples and exercises as a
// single structured JSON response matching the declared shape.
func Grammar(c *model.SharedContext, passage string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Choose ONE grammar point from this passage appropriate for a CEFR %s learner and explain it.\n\n", c.Level)
	sb.WriteString(constraintBlock(c.Level, c.TargetLanguage))
	sb.WriteString("\nRespond ONLY with a JSON object with exactly these fields:\n")
	sb.WriteString(`{"focus": "<grammar point name>", "explanation": {"form": "<how it is formed>", "usage": "<when to use it>", "level_notes": "<note for this level>"}, "examples": ["<3 example sentences>"], "exercises": ["<3 gap-fill exercises with ___ for the blank>"]}`)
	sb.WriteString("\n\nPASSAGE:\n" + passage + "\n")
	return sb.String()
}

// TongueTwisters asks for short tongue twisters featuring the drill words.
func TongueTwisters(c *model.SharedContext, words []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write %d short tongue twisters for pronunciation practice.\n\n", 2)
	sb.WriteString(constraintBlock(c.Level, c.TargetLanguage))
	sb.WriteString("\nINSTRUCTIONS:\n")
	sb.WriteString("- Each twister should feature at least one of these words: " + strings.Join(words, ", ") + ".\n")
	sb.WriteString("- Respond with one twister per line, no numbering.\n")
	return sb.String()
}

// Dialogue builds the practice dialogue prompt with an exact turn contract:
// strict alternation, the learner speaks first, at least minLines lines.
func Dialogue(c *model.SharedContext, passage string, minLines int, withGaps bool) string {
	cal := For(c.Level)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a dialogue of at least %d lines between Student and Partner about the lesson topic.\n\n", minLines)
	sb.WriteString(contextBlock(c))
	sb.WriteString(constraintBlock(c.Level, c.TargetLanguage))
	sb.WriteString("\nINSTRUCTIONS:\n")
	sb.WriteString("- The first line is spoken by Student.\n")
	sb.WriteString("- Speakers alternate strictly: Student, Partner, Student, Partner...\n")
	sb.WriteString("- Format every line exactly as 'Student: <text>' or 'Partner: <text>'.\n")
	if withGaps {
		fmt.Fprintf(&sb, "- Replace at least %d meaningful content words (nouns, verbs, adjectives) with ____. Never blank words like 'the', 'a', 'is' or 'and'.\n", cal.GapMinBlanks)
	}
	if len(c.KeyVocabulary) > 0 {
		limit := min(len(c.KeyVocabulary), 6)
		sb.WriteString("- Reuse some of this vocabulary: " + strings.Join(c.KeyVocabulary[:limit], ", ") + ".\n")
	}
	sb.WriteString("- Respond with the dialogue lines only, no title, no stage directions.\n\n")
	sb.WriteString("PASSAGE FOR CONTEXT:\n" + passage + "\n")
	return sb.String()
}

// DialogueFollowUps asks for follow-up questions about a finished dialogue.
func DialogueFollowUps(c *model.SharedContext, dialogue string) string {
	var sb strings.Builder
	sb.WriteString("Write 3 follow-up questions a teacher could ask about this dialogue.\n\n")
	sb.WriteString(constraintBlock(c.Level, c.TargetLanguage))
	sb.WriteString("\nRespond with one question per line, no numbering.\n\n")
	sb.WriteString("DIALOGUE:\n" + dialogue + "\n")
	return sb.String()
}

// GapAnswers recovers the blanked words from a gap dialogue, in order.
func GapAnswers(dialogue string) string {
	var sb strings.Builder
	sb.WriteString("This dialogue has words blanked out as ____. List the missing words in the order the blanks appear.\n")
	sb.WriteString("Respond with one word per line, no numbering, nothing else.\n\n")
	sb.WriteString("DIALOGUE:\n" + dialogue + "\n")
	return sb.String()
}

// WrapUp builds closing reflection prompts that follow the discussion.
func WrapUp(c *model.SharedContext, discussionQuestions []string) string {
	cal := For(c.Level)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write %d wrap-up prompts to close a language lesson.\n\n", cal.WrapUpCount)
	sb.WriteString(contextBlock(c))
	sb.WriteString(constraintBlock(c.Level, c.TargetLanguage))
	sb.WriteString("\nINSTRUCTIONS:\n")
	sb.WriteString("- Ask the learner to reflect on what they learned and to reuse new vocabulary.\n")
	if len(discussionQuestions) > 0 {
		sb.WriteString("- Build on the discussion the class just had: " + discussionQuestions[0] + "\n")
	}
	sb.WriteString("- Respond with one prompt per line, no numbering.\n")
	return sb.String()
}

// SanitizeSource strips markup that could impersonate instructions and
// bounds the text to SourceTextLimit runes.
func SanitizeSource(text string) string {
	text = sourceTextRegex.ReplaceAllString(text, "")
	text = instructionsRegex.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if utf8.RuneCountInString(text) > SourceTextLimit {
		runes := []rune(text)
		text = string(runes[:SourceTextLimit])
	}
	return text
}
