package generator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pavelanni/lessonforge/internal/llm"
	"github.com/pavelanni/lessonforge/internal/llm/prompts"
	"github.com/pavelanni/lessonforge/internal/model"
)

// PronunciationGenerator builds a drill from the lesson vocabulary. Word
// selection is deterministic: words are scored for phonetic difficulty
// and picked to cover as many distinct sound features as possible. Only
// the tongue twisters come from the model. There is no fallback; a drill
// with wrong words would teach the wrong sounds, so a final validation
// failure aborts the lesson.
type PronunciationGenerator struct {
	llm llm.Completer
}

func NewPronunciationGenerator(c llm.Completer) *PronunciationGenerator {
	return &PronunciationGenerator{llm: c}
}

func (g *PronunciationGenerator) Name() string { return model.SectionPronunciation }

// Sound features that make a word worth drilling.
const (
	featDigraph     = "digraph"
	featVowels      = "vowel cluster"
	featSilent      = "silent letter"
	featCluster     = "consonant cluster"
	featStressShift = "stress-shifting suffix"
)

var digraphs = []string{"th", "ch", "sh", "ph", "gh", "wh"}

var stressSuffixes = []string{"tion", "ity", "ic", "ate", "ify", "ology"}

// soundFeatures returns the difficulty score of a word and the features
// that contribute to it.
func soundFeatures(word string) (int, []string) {
	w := strings.ToLower(word)
	score := 0
	var feats []string

	for _, d := range digraphs {
		if strings.Contains(w, d) {
			score += 3
			feats = append(feats, featDigraph)
			break
		}
	}

	if run := longestVowelRun(w); run >= 3 {
		score += 4
		feats = append(feats, featVowels)
	} else if run == 2 {
		score += 2
		feats = append(feats, featVowels)
	}

	if hasSilentLetters(w) {
		score += 3
		feats = append(feats, featSilent)
	}

	if longestConsonantRun(w) >= 3 {
		score += 3
		feats = append(feats, featCluster)
	}

	for _, s := range stressSuffixes {
		if strings.HasSuffix(w, s) {
			score += 2
			feats = append(feats, featStressShift)
			break
		}
	}
	return score, feats
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

func longestVowelRun(w string) int {
	best, run := 0, 0
	for i := 0; i < len(w); i++ {
		if isVowel(w[i]) {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 0
		}
	}
	return best
}

func longestConsonantRun(w string) int {
	best, run := 0, 0
	for i := 0; i < len(w); i++ {
		c := w[i]
		if c >= 'a' && c <= 'z' && !isVowel(c) {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 0
		}
	}
	return best
}

func hasSilentLetters(w string) bool {
	if strings.HasPrefix(w, "kn") || strings.HasPrefix(w, "wr") || strings.HasPrefix(w, "gn") {
		return true
	}
	if strings.HasSuffix(w, "mb") {
		return true
	}
	// Final silent e after a consonant, as in "note" or "climate".
	if len(w) >= 3 && w[len(w)-1] == 'e' && !isVowel(w[len(w)-2]) {
		return true
	}
	return false
}

// selectDrillWords picks up to n vocabulary words, preferring coverage of
// distinct sound features, then raw difficulty.
func selectDrillWords(vocabulary []string, n int) []string {
	type scored struct {
		word  string
		score int
		feats []string
	}
	candidates := make([]scored, 0, len(vocabulary))
	for _, w := range vocabulary {
		s, feats := soundFeatures(w)
		candidates = append(candidates, scored{word: w, score: s, feats: feats})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	covered := make(map[string]bool)
	var picked []string
	pickedSet := make(map[string]bool)

	// First pass: one word per uncovered feature.
	for _, c := range candidates {
		if len(picked) >= n {
			break
		}
		fresh := false
		for _, f := range c.feats {
			if !covered[f] {
				fresh = true
			}
		}
		if !fresh {
			continue
		}
		picked = append(picked, c.word)
		pickedSet[c.word] = true
		for _, f := range c.feats {
			covered[f] = true
		}
	}
	// Second pass: fill remaining slots by score.
	for _, c := range candidates {
		if len(picked) >= n {
			break
		}
		if !pickedSet[c.word] {
			picked = append(picked, c.word)
			pickedSet[c.word] = true
		}
	}
	return picked
}

func (g *PronunciationGenerator) Generate(ctx context.Context, sc *model.SharedContext, _ []model.GeneratedSection) (model.SectionContent, int, error) {
	cal := prompts.For(sc.Level)
	words := selectDrillWords(sc.KeyVocabulary, cal.PronunciationWords)
	if len(words) == 0 {
		return nil, 0, fmt.Errorf("pronunciation generation: shared context has no vocabulary")
	}

	comp, err := g.llm.Complete(ctx, prompts.TongueTwisters(sc, words), llm.Options{Temperature: 0.9})
	if err != nil {
		return nil, 0, fmt.Errorf("pronunciation generation: %w", err)
	}

	return model.PronunciationContent{
		Instruction:    "Listen to your teacher, then repeat each word slowly. Pay attention to the difficult sounds. Finish with the tongue twisters.",
		Words:          words,
		TongueTwisters: prompts.Lines(comp.Text),
	}, comp.Tokens, nil
}

func (g *PronunciationGenerator) Validate(sc *model.SharedContext, content model.SectionContent) model.ValidationResult {
	pc, ok := content.(model.PronunciationContent)
	if !ok {
		return result([]string{"pronunciation payload has the wrong type"}, nil)
	}

	var issues, warnings []string
	if len(pc.Words) == 0 {
		issues = append(issues, "pronunciation drill has no words")
	}
	known := make(map[string]bool, len(sc.KeyVocabulary))
	for _, w := range sc.KeyVocabulary {
		known[strings.ToLower(w)] = true
	}
	for _, w := range pc.Words {
		if !known[strings.ToLower(w)] {
			issues = append(issues, fmt.Sprintf("drill word %q is not lesson vocabulary", w))
		}
	}

	if len(pc.TongueTwisters) == 0 {
		issues = append(issues, "pronunciation drill has no tongue twisters")
	}
	for i, tw := range pc.TongueTwisters {
		uses := false
		for _, w := range pc.Words {
			if containsWord(tw, w) {
				uses = true
				break
			}
		}
		if !uses {
			warnings = append(warnings, fmt.Sprintf("tongue twister %d uses none of the drill words", i+1))
		}
	}
	return result(issues, warnings)
}

// Fallback returns nil: there is no safe canned pronunciation drill.
func (g *PronunciationGenerator) Fallback(*model.SharedContext) model.SectionContent {
	return nil
}
