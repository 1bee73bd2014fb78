package lessonctx

import (
	"sort"
	"strings"
	"unicode"
)

// stopWords are excluded from fallback vocabulary extraction.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "of": true, "for": true,
	"with": true, "from": true, "by": true, "about": true, "as": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true,
	"can": true, "could": true, "should": true, "may": true, "might": true,
	"this": true, "that": true, "these": true, "those": true, "it": true,
	"its": true, "they": true, "them": true, "their": true, "we": true,
	"our": true, "you": true, "your": true, "he": true, "she": true,
	"his": true, "her": true, "i": true, "my": true, "me": true,
	"not": true, "no": true, "so": true, "if": true, "then": true,
	"than": true, "when": true, "where": true, "which": true, "who": true,
	"what": true, "how": true, "all": true, "some": true, "any": true,
	"more": true, "most": true, "other": true, "into": true, "also": true,
	"there": true, "here": true, "very": true, "just": true, "only": true,
	"because": true, "while": true, "after": true, "before": true,
	"between": true, "through": true, "during": true, "over": true,
	"under": true, "many": true, "much": true, "each": true, "both": true,
}

// themeKeywords maps a theme label to keywords that signal it in the text.
var themeKeywords = map[string][]string{
	"energy and environment": {"energy", "solar", "wind", "climate", "environment", "renewable", "pollution", "carbon", "green"},
	"technology":             {"technology", "computer", "internet", "digital", "software", "robot", "device", "online", "data"},
	"health":                 {"health", "doctor", "medicine", "disease", "exercise", "diet", "hospital", "mental"},
	"travel":                 {"travel", "trip", "country", "tourist", "flight", "hotel", "journey", "visit"},
	"food and cooking":       {"food", "cook", "meal", "recipe", "restaurant", "eat", "dish", "ingredient"},
	"education":              {"school", "student", "teacher", "learn", "university", "study", "education", "class"},
	"work and business":      {"work", "job", "company", "business", "career", "employee", "market", "economy", "money"},
	"culture and society":    {"culture", "tradition", "society", "community", "family", "people", "history", "art", "music"},
	"science":                {"science", "research", "scientist", "experiment", "discovery", "space", "brain", "theory"},
	"sports":                 {"sport", "game", "team", "player", "match", "competition", "train", "win"},
}

// fallbackTitle builds a title from the opening words of the text.
func fallbackTitle(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "Language Lesson"
	}
	n := min(len(fields), 7)
	title := strings.Join(fields[:n], " ")
	title = strings.TrimRight(title, ".,;:!?")
	return strings.ToUpper(title[:1]) + title[1:]
}

// fallbackVocabulary ranks content words by frequency, excluding stop words
// and likely proper nouns (words that only ever appear capitalized).
func fallbackVocabulary(text string, max int) []string {
	type candidate struct {
		word  string
		count int
		first int
	}

	freq := make(map[string]*candidate)
	lowerSeen := make(map[string]bool)

	for i, raw := range strings.Fields(text) {
		cleaned := strings.Trim(raw, ".,!?;:\"'()[]")
		if cleaned == "" {
			continue
		}
		if r := []rune(cleaned)[0]; unicode.IsLower(r) {
			lowerSeen[strings.ToLower(cleaned)] = true
		}
		w := strings.ToLower(cleaned)
		if len(w) < 4 || stopWords[w] || hasDigit(w) {
			continue
		}
		if c, ok := freq[w]; ok {
			c.count++
		} else {
			freq[w] = &candidate{word: w, count: 1, first: i}
		}
	}

	var candidates []*candidate
	for _, c := range freq {
		// Words never seen lowercased are treated as proper nouns.
		if !lowerSeen[c.word] {
			continue
		}
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].first < candidates[j].first
	})

	var words []string
	for _, c := range candidates {
		words = append(words, c.word)
		if len(words) == max {
			break
		}
	}
	return words
}

// fallbackThemes detects themes and falls back to a neutral default when
// nothing matches.
func fallbackThemes(text string, max int) []string {
	themes := DetectThemes(text, max)
	if len(themes) == 0 {
		themes = []string{"everyday life"}
	}
	return themes
}

// DetectThemes matches text against a fixed keyword table and returns the
// themes with the most hits, strongest first. Also used on generated
// passages to grow the shared context between sections.
func DetectThemes(text string, max int) []string {
	lower := strings.ToLower(text)

	type hit struct {
		theme string
		count int
	}
	var hits []hit
	for theme, keywords := range themeKeywords {
		count := 0
		for _, kw := range keywords {
			count += strings.Count(lower, kw)
		}
		if count > 0 {
			hits = append(hits, hit{theme, count})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].count != hits[j].count {
			return hits[i].count > hits[j].count
		}
		return hits[i].theme < hits[j].theme
	})

	var themes []string
	for _, h := range hits {
		themes = append(themes, h.theme)
		if len(themes) == max {
			break
		}
	}
	return themes
}

// fallbackSummary truncates at a word boundary within the cap.
func fallbackSummary(text string, charCap int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= charCap {
		return string(runes)
	}
	cut := string(runes[:charCap])
	if idx := strings.LastIndexByte(cut, ' '); idx > charCap/2 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, ".,;: ") + "..."
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
