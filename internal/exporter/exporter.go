// Package exporter renders an assembled lesson as markdown and as a
// standalone HTML document with localized section headings.
package exporter

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/pavelanni/lessonforge/internal/i18n"
	"github.com/pavelanni/lessonforge/internal/model"
)

// Markdown renders the lesson as a markdown document. Headings come from
// the localizer in ctx.
func Markdown(ctx context.Context, lesson *model.Lesson) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", lesson.Title)
	fmt.Fprintf(&b, "**%s:** %s · **%s:** %s\n\n",
		i18n.T(ctx, "LabelLevel"), lesson.Level,
		i18n.T(ctx, "LabelLanguage"), lesson.TargetLanguage)

	for _, name := range lesson.SectionOrder {
		content, ok := lesson.Sections[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", i18n.SectionHeading(ctx, name))
		writeSection(ctx, &b, content)
	}
	return b.String()
}

func writeSection(ctx context.Context, b *strings.Builder, content model.SectionContent) {
	switch c := content.(type) {
	case model.StringListContent:
		for i, item := range c.Items {
			fmt.Fprintf(b, "%d. %s\n", i+1, item)
		}
		b.WriteString("\n")

	case model.ReadingContent:
		b.WriteString(c.Passage + "\n\n")

	case model.VocabularyContent:
		for _, e := range c.Entries {
			fmt.Fprintf(b, "### %s\n\n%s\n\n", e.Word, e.Meaning)
			if len(e.Examples) > 0 {
				fmt.Fprintf(b, "**%s**\n\n", i18n.T(ctx, "LabelExamples"))
				for _, ex := range e.Examples {
					fmt.Fprintf(b, "- %s\n", ex)
				}
				b.WriteString("\n")
			}
		}

	case model.GrammarContent:
		fmt.Fprintf(b, "**%s**\n\n", c.Focus)
		fmt.Fprintf(b, "- **%s:** %s\n", i18n.T(ctx, "LabelForm"), c.Explanation.Form)
		fmt.Fprintf(b, "- **%s:** %s\n", i18n.T(ctx, "LabelUsage"), c.Explanation.Usage)
		if c.Explanation.LevelNotes != "" {
			fmt.Fprintf(b, "- **%s:** %s\n", i18n.T(ctx, "LabelLevelNotes"), c.Explanation.LevelNotes)
		}
		b.WriteString("\n")
		if len(c.Examples) > 0 {
			fmt.Fprintf(b, "**%s**\n\n", i18n.T(ctx, "LabelExamples"))
			for _, ex := range c.Examples {
				fmt.Fprintf(b, "- %s\n", ex)
			}
			b.WriteString("\n")
		}
		if len(c.Exercises) > 0 {
			fmt.Fprintf(b, "**%s**\n\n", i18n.T(ctx, "LabelExercises"))
			for i, ex := range c.Exercises {
				fmt.Fprintf(b, "%d. %s\n", i+1, ex)
			}
			b.WriteString("\n")
		}

	case model.PronunciationContent:
		b.WriteString(c.Instruction + "\n\n")
		for _, w := range c.Words {
			fmt.Fprintf(b, "- **%s**\n", w)
		}
		b.WriteString("\n")
		if len(c.TongueTwisters) > 0 {
			fmt.Fprintf(b, "**%s**\n\n", i18n.T(ctx, "LabelTongueTwisters"))
			for _, tw := range c.TongueTwisters {
				fmt.Fprintf(b, "- %s\n", tw)
			}
			b.WriteString("\n")
		}

	case model.DialogueContent:
		if c.Instruction != "" {
			b.WriteString(c.Instruction + "\n\n")
		}
		for _, line := range c.Dialogue {
			fmt.Fprintf(b, "**%s:** %s\n\n", line.Character, line.Line)
		}
		if len(c.FollowUpQuestions) > 0 {
			fmt.Fprintf(b, "**%s**\n\n", i18n.T(ctx, "LabelFollowUpQuestions"))
			for i, q := range c.FollowUpQuestions {
				fmt.Fprintf(b, "%d. %s\n", i+1, q)
			}
			b.WriteString("\n")
		}
		if len(c.Answers) > 0 {
			fmt.Fprintf(b, "**%s**\n\n", i18n.T(ctx, "LabelAnswers"))
			for i, a := range c.Answers {
				fmt.Fprintf(b, "%d. %s\n", i+1, a)
			}
			b.WriteString("\n")
		}
	}
}

// HTML renders the lesson markdown into a self-contained HTML document.
func HTML(ctx context.Context, lesson *model.Lesson) (string, error) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(ctx, lesson)), &body); err != nil {
		return "", fmt.Errorf("render lesson html: %w", err)
	}

	var doc strings.Builder
	doc.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&doc, "<title>%s</title>\n", html.EscapeString(lesson.Title))
	doc.WriteString("<style>\n")
	doc.WriteString("body { font-family: Georgia, serif; max-width: 46rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.6; }\n")
	doc.WriteString("h1 { border-bottom: 2px solid #333; padding-bottom: 0.3rem; }\n")
	doc.WriteString("h2 { margin-top: 2rem; color: #234; }\n")
	doc.WriteString("</style>\n</head>\n<body>\n")
	doc.Write(body.Bytes())
	doc.WriteString("</body>\n</html>\n")
	return doc.String(), nil
}
