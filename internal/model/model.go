package model

import (
	"context"
	"fmt"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleEditor can generate and manage lessons.
	UserRoleEditor UserRole = "editor"
	// UserRoleAdmin can additionally manage users.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// CEFRLevel is a language proficiency band. The five supported bands are
// totally ordered by difficulty and drive every length, vocabulary and
// grammar threshold in the pipeline.
type CEFRLevel string

const (
	LevelA1 CEFRLevel = "A1"
	LevelA2 CEFRLevel = "A2"
	LevelB1 CEFRLevel = "B1"
	LevelB2 CEFRLevel = "B2"
	LevelC1 CEFRLevel = "C1"
)

var levelOrder = map[CEFRLevel]int{
	LevelA1: 0,
	LevelA2: 1,
	LevelB1: 2,
	LevelB2: 3,
	LevelC1: 4,
}

// Levels lists all supported bands in ascending difficulty.
func Levels() []CEFRLevel {
	return []CEFRLevel{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1}
}

// ParseLevel validates a level string.
func ParseLevel(s string) (CEFRLevel, error) {
	l := CEFRLevel(s)
	if _, ok := levelOrder[l]; !ok {
		return "", fmt.Errorf("unknown CEFR level %q", s)
	}
	return l, nil
}

// Index returns the position of the level in difficulty order (A1 = 0).
func (l CEFRLevel) Index() int {
	return levelOrder[l]
}

// AtMost reports whether l is at or below other in difficulty.
func (l CEFRLevel) AtMost(other CEFRLevel) bool {
	return levelOrder[l] <= levelOrder[other]
}

// SharedContext is the accumulating state threaded through every section
// generator for one lesson. KeyVocabulary only grows across updates and
// SourceText is immutable once the context is built.
type SharedContext struct {
	LessonTitle    string
	KeyVocabulary  []string // insertion order is relevance order
	MainThemes     []string
	Level          CEFRLevel
	ContentSummary string
	SourceText     string // truncated prefix of the original input
	LessonType     string
	TargetLanguage string

	vocabSeen map[string]bool
	themeSeen map[string]bool
}

// AddVocabulary appends words not already present, preserving insertion order.
func (c *SharedContext) AddVocabulary(words ...string) {
	if c.vocabSeen == nil {
		c.vocabSeen = make(map[string]bool, len(c.KeyVocabulary))
		for _, w := range c.KeyVocabulary {
			c.vocabSeen[w] = true
		}
	}
	for _, w := range words {
		if w == "" || c.vocabSeen[w] {
			continue
		}
		c.vocabSeen[w] = true
		c.KeyVocabulary = append(c.KeyVocabulary, w)
	}
}

// AddThemes appends themes not already present.
func (c *SharedContext) AddThemes(themes ...string) {
	if c.themeSeen == nil {
		c.themeSeen = make(map[string]bool, len(c.MainThemes))
		for _, t := range c.MainThemes {
			c.themeSeen[t] = true
		}
	}
	for _, t := range themes {
		if t == "" || c.themeSeen[t] {
			continue
		}
		c.themeSeen[t] = true
		c.MainThemes = append(c.MainThemes, t)
	}
}

// Section names, in generation order.
const (
	SectionWarmUp           = "warm_up"
	SectionVocabulary       = "vocabulary"
	SectionReading          = "reading"
	SectionComprehension    = "comprehension"
	SectionGrammar          = "grammar"
	SectionDiscussion       = "discussion"
	SectionPronunciation    = "pronunciation"
	SectionDialoguePractice = "dialogue_practice"
	SectionDialogueFillGap  = "dialogue_fill_gap"
	SectionWrapUp           = "wrap_up"
)

// LessonSection is one entry in the generation schedule. Dependencies must
// name sections that appear earlier in the fixed order; a violation is a
// configuration error, not a runtime condition.
type LessonSection struct {
	Name         string
	Priority     int
	Dependencies []string
	// HasFallback declares whether the section has a safe deterministic
	// payload to fall back to when validation still fails after the
	// final attempt. Sections without one abort the whole lesson.
	HasFallback bool
}

// SectionContent is the typed payload of one generated section.
type SectionContent interface {
	sectionContent()
}

// StringListContent holds sections that are plain question or sentence
// lists: warm-up, comprehension, discussion and wrap-up.
type StringListContent struct {
	Items []string `json:"items"`
}

// ReadingContent is the generated reading passage.
type ReadingContent struct {
	Passage string `json:"passage"`
}

// VocabEntry is a single vocabulary item with its level-calibrated examples.
type VocabEntry struct {
	Word     string   `json:"word"`
	Meaning  string   `json:"meaning"`
	Examples []string `json:"examples"`
}

// VocabularyContent holds the vocabulary section entries.
type VocabularyContent struct {
	Entries []VocabEntry `json:"entries"`
}

// GrammarExplanation describes one grammar point.
type GrammarExplanation struct {
	Form       string `json:"form"`
	Usage      string `json:"usage"`
	LevelNotes string `json:"level_notes"`
}

// GrammarContent is the structured grammar section: one focus point with
// examples and exercises.
type GrammarContent struct {
	Focus       string             `json:"focus"`
	Explanation GrammarExplanation `json:"explanation"`
	Examples    []string           `json:"examples"`
	Exercises   []string           `json:"exercises"`
}

// PronunciationContent holds the pronunciation drill.
type PronunciationContent struct {
	Instruction    string   `json:"instruction"`
	Words          []string `json:"words"`
	TongueTwisters []string `json:"tongue_twisters"`
}

// DialogueLine is a single turn in a dialogue. IsGap marks a line whose
// content word has been blanked in the fill-in-gap variant.
type DialogueLine struct {
	Character string `json:"character"`
	Line      string `json:"line"`
	IsGap     bool   `json:"is_gap,omitempty"`
}

// DialogueContent holds either dialogue variant. FollowUpQuestions is set
// for the practice variant, Answers for the fill-in-gap variant.
type DialogueContent struct {
	Instruction       string         `json:"instruction"`
	Dialogue          []DialogueLine `json:"dialogue"`
	FollowUpQuestions []string       `json:"follow_up_questions,omitempty"`
	Answers           []string       `json:"answers,omitempty"`
}

func (StringListContent) sectionContent()    {}
func (ReadingContent) sectionContent()       {}
func (VocabularyContent) sectionContent()    {}
func (GrammarContent) sectionContent()       {}
func (PronunciationContent) sectionContent() {}
func (DialogueContent) sectionContent()      {}

// GeneratedSection is one completed section. Immutable once appended to the
// pipeline's result list.
type GeneratedSection struct {
	SectionName        string
	Content            SectionContent
	TokensUsed         int
	GenerationStrategy string
}

// ValidationResult is the outcome of a per-section output validation.
// IsValid is true exactly when Issues is empty; warnings never affect it.
type ValidationResult struct {
	IsValid  bool
	Score    int // 0..100
	Issues   []string
	Warnings []string
}

// QualityRecord captures one section's generation quality for post-hoc
// reporting. Appended once per section, never mutated.
type QualityRecord struct {
	SectionName      string `json:"section_name"`
	Score            int    `json:"score"`
	Attempts         int    `json:"attempts"`
	GenerationTimeMs int64  `json:"generation_time_ms"`
	IssueCount       int    `json:"issue_count"`
	WarningCount     int    `json:"warning_count"`
}

// Lesson is the final assembled artifact. It is created only after every
// scheduled section has succeeded or been accepted with warnings, and is
// never partially persisted.
type Lesson struct {
	ID             int64                     `json:"id,omitempty"`
	Title          string                    `json:"title"`
	Level          CEFRLevel                 `json:"level"`
	TargetLanguage string                    `json:"target_language"`
	LessonType     string                    `json:"lesson_type"`
	SectionOrder   []string                  `json:"section_order"`
	Sections       map[string]SectionContent `json:"sections"`
	CreatedAt      time.Time                 `json:"created_at"`
}

// ServeConfig holds runtime server parameters set via CLI flags.
type ServeConfig struct {
	BasePath      string // URL prefix for sub-path deployments
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
	UILang        string // language for exported section headings
}
