package generator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pavelanni/lessonforge/internal/llm/prompts"
	"github.com/pavelanni/lessonforge/internal/model"
)

// Deterministic fallback payloads. They are intentionally plain: a usable
// lesson section built only from the shared context, produced when the
// model cannot deliver a valid one within the attempt budget.

func fallbackWarmUp(sc *model.SharedContext) model.StringListContent {
	topic := fallbackTopic(sc)
	templates := []string{
		"What do you already know about %s?",
		"Have you ever talked about %s in your language?",
		"What words do you think of when you hear about %s?",
		"Why might %s be interesting to learn about?",
	}
	n := prompts.For(sc.Level).WarmUpCount
	return model.StringListContent{Items: fillTemplates(templates, topic, n)}
}

func fallbackVocabularySection(sc *model.SharedContext) model.VocabularyContent {
	cal := prompts.For(sc.Level)
	words := sc.KeyVocabulary
	if len(words) > cal.VocabularyCount {
		words = words[:cal.VocabularyCount]
	}
	entries := make([]model.VocabEntry, 0, len(words))
	for _, w := range words {
		entry := model.VocabEntry{
			Word:    w,
			Meaning: fmt.Sprintf("An important word from this lesson. Look up %q in your dictionary and write your own definition.", w),
		}
		for i := 0; i < cal.ExamplesPerWord; i++ {
			entry.Examples = append(entry.Examples, exampleTemplate(i, w))
		}
		entries = append(entries, entry)
	}
	return model.VocabularyContent{Entries: entries}
}

func exampleTemplate(i int, word string) string {
	switch i % 3 {
	case 0:
		return fmt.Sprintf("The text uses the word %q in an important way.", word)
	case 1:
		return fmt.Sprintf("Try to make your own sentence with %q.", word)
	default:
		return fmt.Sprintf("Ask your teacher how to use %q in conversation.", word)
	}
}

func fallbackReading(sc *model.SharedContext) model.ReadingContent {
	charCap := prompts.For(sc.Level).ReadingCharCap
	text := strings.TrimSpace(sc.SourceText)
	if text == "" {
		text = sc.ContentSummary
	}
	if utf8.RuneCountInString(text) > charCap {
		runes := []rune(text)
		cut := charCap
		for cut > 0 && runes[cut-1] != ' ' {
			cut--
		}
		if cut == 0 {
			cut = charCap
		}
		text = strings.TrimSpace(string(runes[:cut])) + "..."
	}
	return model.ReadingContent{Passage: text}
}

func fallbackComprehension(sc *model.SharedContext) model.StringListContent {
	topic := fallbackTopic(sc)
	templates := []string{
		"What is the main idea of the text about %s?",
		"Which detail about %s did you find most important?",
		"What does the text say happens with %s?",
		"Which words in the text helped you understand %s?",
		"What question would you still ask about %s?",
		"How would you retell the part about %s in one sentence?",
	}
	n := prompts.For(sc.Level).ComprehensionCount
	return model.StringListContent{Items: fillTemplates(templates, topic, n)}
}

func fallbackDiscussion(sc *model.SharedContext) model.StringListContent {
	topic := fallbackTopic(sc)
	templates := []string{
		"What is your own experience with %s?",
		"Do people in your country talk about %s, and why?",
		"How might %s change in the next ten years?",
		"Would you recommend learning more about %s to a friend?",
		"What surprised you most about %s?",
	}
	n := prompts.For(sc.Level).DiscussionCount
	return model.StringListContent{Items: fillTemplates(templates, topic, n)}
}

func fallbackWrapUp(sc *model.SharedContext) model.StringListContent {
	topic := fallbackTopic(sc)
	templates := []string{
		"Name three new words from this lesson and use each in a sentence.",
		"What was the most interesting thing you learned about %s?",
		"Which part of the lesson about %s was most difficult for you?",
		"What will you try to remember from today's lesson?",
	}
	n := prompts.For(sc.Level).WrapUpCount
	return model.StringListContent{Items: fillTemplates(templates, topic, n)}
}

// fallbackGrammar returns a canned grammar point appropriate for the level.
func fallbackGrammar(sc *model.SharedContext) model.GrammarContent {
	switch sc.Level {
	case model.LevelA1:
		return model.GrammarContent{
			Focus: "present simple",
			Explanation: model.GrammarExplanation{
				Form:       "subject + base verb (add -s for he/she/it)",
				Usage:      "Use it for habits, routines and facts.",
				LevelNotes: "The most important tense at this level. Watch the -s in 'she works'.",
			},
			Examples:  []string{"I read the news every day.", "She works in a shop.", "The sun rises in the east."},
			Exercises: []string{"He ___ (walk) to school.", "They ___ (live) in a city.", "My friend ___ (like) music."},
		}
	case model.LevelA2:
		return model.GrammarContent{
			Focus: "past simple",
			Explanation: model.GrammarExplanation{
				Form:       "subject + verb in past form (-ed for regular verbs)",
				Usage:      "Use it for finished actions at a known time in the past.",
				LevelNotes: "Learn the common irregular forms: went, saw, made, took.",
			},
			Examples:  []string{"We visited the museum yesterday.", "She saw an interesting film.", "They talked about the text."},
			Exercises: []string{"Last week I ___ (watch) a documentary.", "He ___ (go) home early.", "We ___ (read) the whole article."},
		}
	case model.LevelB1:
		return model.GrammarContent{
			Focus: "present perfect",
			Explanation: model.GrammarExplanation{
				Form:       "have/has + past participle",
				Usage:      "Use it for experiences and for past actions with a present result.",
				LevelNotes: "Do not name a finished past time with it. Say 'I have read it', not 'I have read it yesterday'.",
			},
			Examples:  []string{"I have never thought about this topic before.", "She has already finished the exercise.", "We have learned many new words."},
			Exercises: []string{"I ___ (never / visit) that country.", "She ___ (just / hear) the news.", "They ___ (not / decide) yet."},
		}
	case model.LevelB2:
		return model.GrammarContent{
			Focus: "passive voice",
			Explanation: model.GrammarExplanation{
				Form:       "be + past participle",
				Usage:      "Use it when the action matters more than who performs it.",
				LevelNotes: "Common in articles and reports. Keep the agent only when it adds information.",
			},
			Examples:  []string{"The article was written last year.", "New methods are being developed.", "The results have been published."},
			Exercises: []string{"The report ___ (finish) yesterday.", "These words ___ (use) in formal writing.", "The problem ___ (discuss) at the meeting next week."},
		}
	default:
		return model.GrammarContent{
			Focus: "inversion for emphasis",
			Explanation: model.GrammarExplanation{
				Form:       "negative or limiting adverbial + auxiliary + subject + verb",
				Usage:      "Use it in formal writing and speech to emphasize a point.",
				LevelNotes: "After 'rarely', 'not only', 'no sooner' the auxiliary moves before the subject.",
			},
			Examples:  []string{"Rarely have I read such a clear explanation.", "Not only does the text inform, it also persuades.", "No sooner had we started than the discussion grew heated."},
			Exercises: []string{"Never ___ (I / see) such a result.", "Only then ___ (she / understand) the argument.", "Under no circumstances ___ (you / should) skip this step."},
		}
	}
}

// fallbackTopic picks the best available topic phrase from the context.
func fallbackTopic(sc *model.SharedContext) string {
	if len(sc.MainThemes) > 0 {
		return sc.MainThemes[0]
	}
	if sc.LessonTitle != "" {
		return strings.ToLower(sc.LessonTitle)
	}
	return "this topic"
}

// fillTemplates renders up to n templates with the topic. Templates
// without a placeholder are used as-is.
func fillTemplates(templates []string, topic string, n int) []string {
	if n > len(templates) {
		n = len(templates)
	}
	items := make([]string, 0, n)
	for _, t := range templates[:n] {
		if strings.Contains(t, "%s") {
			items = append(items, fmt.Sprintf(t, topic))
		} else {
			items = append(items, t)
		}
	}
	return items
}
