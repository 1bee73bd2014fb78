package generator

import (
	"fmt"
	"strings"

	"github.com/pavelanni/lessonforge/internal/model"
)

// minTopicCoverage is the fraction of items in a list section that must
// mention the lesson topic before relevance is flagged. Coverage below it
// is a warning only; topical drift is acceptable, structural defects are
// not.
const minTopicCoverage = 0.6

// result builds a ValidationResult from collected issues and warnings.
// The score starts at 100 and each issue costs 25 points, each warning 10.
func result(issues, warnings []string) model.ValidationResult {
	score := 100 - 25*len(issues) - 10*len(warnings)
	if score < 0 {
		score = 0
	}
	return model.ValidationResult{
		IsValid:  len(issues) == 0,
		Score:    score,
		Issues:   issues,
		Warnings: warnings,
	}
}

// topicTokens collects the lowercase content tokens of the lesson title,
// themes and vocabulary for relevance checks.
func topicTokens(sc *model.SharedContext) map[string]bool {
	tokens := make(map[string]bool)
	add := func(s string) {
		for _, f := range strings.Fields(strings.ToLower(s)) {
			f = strings.Trim(f, ".,!?;:\"'()")
			if len(f) >= 4 && !gapStopWords[f] {
				tokens[f] = true
			}
		}
	}
	add(sc.LessonTitle)
	for _, t := range sc.MainThemes {
		add(t)
	}
	for _, w := range sc.KeyVocabulary {
		add(w)
	}
	return tokens
}

// coverage returns the fraction of items that mention at least one topic
// token.
func coverage(items []string, tokens map[string]bool) float64 {
	if len(items) == 0 || len(tokens) == 0 {
		return 0
	}
	hit := 0
	for _, item := range items {
		for _, f := range strings.Fields(strings.ToLower(item)) {
			f = strings.Trim(f, ".,!?;:\"'()")
			if tokens[f] {
				hit++
				break
			}
		}
	}
	return float64(hit) / float64(len(items))
}

// relevanceWarning appends a coverage warning when too few items touch
// the lesson topic.
func relevanceWarning(warnings []string, items []string, sc *model.SharedContext, what string) []string {
	if c := coverage(items, topicTokens(sc)); c < minTopicCoverage {
		warnings = append(warnings, fmt.Sprintf("only %.0f%% of %s mention the lesson topic", c*100, what))
	}
	return warnings
}

// checkQuestions verifies a list of question items: each non-empty and
// ending with a question mark.
func checkQuestions(items []string, what string) (issues []string) {
	for i, q := range items {
		q = strings.TrimSpace(q)
		if q == "" {
			issues = append(issues, fmt.Sprintf("%s %d is empty", what, i+1))
			continue
		}
		if !strings.HasSuffix(q, "?") {
			issues = append(issues, fmt.Sprintf("%s %d does not end with a question mark", what, i+1))
		}
	}
	return issues
}

// containsWord reports whether text contains word as a standalone token,
// case-insensitive, allowing simple inflection by prefix match.
func containsWord(text, word string) bool {
	word = strings.ToLower(word)
	for _, f := range strings.Fields(strings.ToLower(text)) {
		f = strings.Trim(f, ".,!?;:\"'()")
		if f == word || (len(word) >= 4 && strings.HasPrefix(f, word)) {
			return true
		}
	}
	return false
}

// gapStopWords are function words that must never be blanked in a gap
// dialogue and do not count as topic tokens.
var gapStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "am": true,
	"and": true, "or": true, "but": true, "of": true, "to": true,
	"in": true, "on": true, "at": true, "for": true, "with": true,
	"it": true, "its": true, "this": true, "that": true, "these": true,
	"i": true, "you": true, "he": true, "she": true, "we": true,
	"they": true, "my": true, "your": true, "his": true, "her": true,
	"do": true, "does": true, "did": true, "have": true, "has": true,
	"will": true, "would": true, "can": true, "could": true, "not": true,
	"about": true, "what": true, "which": true, "there": true, "very": true,
}
