// Package content gates raw source text before any generation call is made,
// so unusable input never costs a model request.
package content

import (
	"fmt"
	"strings"
	"unicode"
)

// MinimumWordCount is the hard floor on source text length.
const MinimumWordCount = 50

const (
	minSentenceCount = 3
	minQualityScore  = 60
)

// Outcome is the result of validating source text.
type Outcome struct {
	IsValid     bool     `json:"is_valid"`
	Score       int      `json:"score"`
	Reason      string   `json:"reason,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// MinimumWords returns the minimum accepted word count.
func MinimumWords() int { return MinimumWordCount }

// Validate checks that source text is long enough, structured enough and of
// sufficient quality to build a lesson from. Rejections carry suggestions
// tied to whichever factor failed.
func Validate(text string) Outcome {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Outcome{
			IsValid:     false,
			Reason:      "no content provided",
			Suggestions: []string{"paste or upload the text you want to build a lesson from"},
		}
	}

	stats := analyze(trimmed)

	if stats.words < MinimumWordCount {
		return Outcome{
			IsValid: false,
			Score:   stats.score(),
			Reason:  fmt.Sprintf("content length too short: %d words, need at least %d", stats.words, MinimumWordCount),
			Suggestions: []string{
				fmt.Sprintf("add more content: at least %d words, ideally 200 or more", MinimumWordCount),
			},
		}
	}

	if stats.sentences < minSentenceCount {
		return Outcome{
			IsValid: false,
			Score:   stats.score(),
			Reason:  fmt.Sprintf("too unstructured: %d sentences, need at least %d", stats.sentences, minSentenceCount),
			Suggestions: []string{
				"split the text into complete sentences ending with . ! or ?",
			},
		}
	}

	score := stats.score()
	if score < minQualityScore {
		return Outcome{
			IsValid:     false,
			Score:       score,
			Reason:      fmt.Sprintf("content quality score %d below minimum %d", score, minQualityScore),
			Suggestions: stats.suggestions(),
		}
	}

	return Outcome{IsValid: true, Score: score}
}

type textStats struct {
	words         int
	sentences     int     // word-bearing sentence segments
	avgSentence   float64 // words per sentence
	uniqueRatio   float64 // distinct words / total words
	completeRatio float64 // segments ending in terminal punctuation
}

func analyze(text string) textStats {
	var stats textStats

	words := strings.Fields(text)
	stats.words = len(words)

	unique := make(map[string]bool, len(words))
	for _, w := range words {
		unique[strings.ToLower(strings.Trim(w, ".,!?;:\"'()"))] = true
	}
	if stats.words > 0 {
		stats.uniqueRatio = float64(len(unique)) / float64(stats.words)
	}

	segments, completed := splitSentences(text)
	stats.sentences = len(segments)
	if len(segments) > 0 {
		total := 0
		for _, s := range segments {
			total += len(strings.Fields(s))
		}
		stats.avgSentence = float64(total) / float64(len(segments))
		stats.completeRatio = float64(completed) / float64(len(segments))
	}
	return stats
}

// splitSentences cuts text into sentence segments at terminal punctuation or
// line breaks. It returns the word-bearing segments and how many of them
// ended in terminal punctuation.
func splitSentences(text string) (segments []string, completed int) {
	var current strings.Builder
	flush := func(terminal bool) {
		s := strings.TrimSpace(current.String())
		current.Reset()
		if len(strings.Fields(s)) == 0 {
			return
		}
		segments = append(segments, s)
		if terminal {
			completed++
		}
	}

	for _, r := range text {
		switch {
		case r == '.' || r == '!' || r == '?':
			flush(true)
		case r == '\n':
			flush(false)
		case unicode.IsSpace(r):
			current.WriteRune(' ')
		default:
			current.WriteRune(r)
		}
	}
	flush(false)
	return segments, completed
}

// score is a 0-100 weighted sum: word-count adequacy (30), sentence-length
// suitability (25), vocabulary variety (25), sentence completeness (20).
func (s textStats) score() int {
	score := 0

	// Word count, saturating at 200 words.
	adequacy := s.words * 30 / 200
	if adequacy > 30 {
		adequacy = 30
	}
	score += adequacy

	switch {
	case s.avgSentence >= 8 && s.avgSentence <= 25:
		score += 25
	case s.avgSentence >= 5 && s.avgSentence < 8:
		score += 15
	}

	switch {
	case s.uniqueRatio > 0.4:
		score += 25
	case s.uniqueRatio > 0.25:
		score += 15
	}

	switch {
	case s.completeRatio >= 0.7:
		score += 20
	case s.completeRatio >= 0.5:
		score += 10
	}

	return score
}

func (s textStats) suggestions() []string {
	var out []string
	if s.words < 200 {
		out = append(out, "longer content produces better lessons: aim for 200 or more words")
	}
	if s.avgSentence < 8 || s.avgSentence > 25 {
		out = append(out, "use medium-length sentences of roughly 8 to 25 words")
	}
	if s.uniqueRatio <= 0.4 {
		out = append(out, "vary the vocabulary: the text repeats the same words often")
	}
	if s.completeRatio < 0.7 {
		out = append(out, "finish sentences with terminal punctuation (. ! ?)")
	}
	if len(out) == 0 {
		out = append(out, "provide clearer, better structured source text")
	}
	return out
}
