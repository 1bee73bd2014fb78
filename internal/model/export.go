package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// LessonSummary is the listing shape for stored lessons.
type LessonSummary struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Level          CEFRLevel `json:"level"`
	TargetLanguage string    `json:"target_language"`
	LessonType     string    `json:"lesson_type"`
	AverageScore   float64   `json:"average_score"`
	CreatedAt      time.Time `json:"created_at"`
}

// StoredLesson mirrors Lesson with raw section payloads, for decoding the
// JSON blob persisted in the store back into typed content.
type StoredLesson struct {
	ID             int64                      `json:"id,omitempty"`
	Title          string                     `json:"title"`
	Level          CEFRLevel                  `json:"level"`
	TargetLanguage string                     `json:"target_language"`
	LessonType     string                     `json:"lesson_type"`
	SectionOrder   []string                   `json:"section_order"`
	Sections       map[string]json.RawMessage `json:"sections"`
	CreatedAt      time.Time                  `json:"created_at"`
}

// Decode converts the stored form back into a typed Lesson.
func (s StoredLesson) Decode() (Lesson, error) {
	lesson := Lesson{
		ID:             s.ID,
		Title:          s.Title,
		Level:          s.Level,
		TargetLanguage: s.TargetLanguage,
		LessonType:     s.LessonType,
		SectionOrder:   s.SectionOrder,
		Sections:       make(map[string]SectionContent, len(s.Sections)),
		CreatedAt:      s.CreatedAt,
	}
	for name, raw := range s.Sections {
		content, err := DecodeSectionContent(name, raw)
		if err != nil {
			return Lesson{}, fmt.Errorf("decode section %s: %w", name, err)
		}
		lesson.Sections[name] = content
	}
	return lesson, nil
}

// DecodeSectionContent unmarshals a raw section payload into the concrete
// type for the named section.
func DecodeSectionContent(name string, raw []byte) (SectionContent, error) {
	switch name {
	case SectionWarmUp, SectionComprehension, SectionDiscussion, SectionWrapUp:
		var c StringListContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case SectionVocabulary:
		var c VocabularyContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case SectionReading:
		var c ReadingContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case SectionGrammar:
		var c GrammarContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case SectionPronunciation:
		var c PronunciationContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case SectionDialoguePractice, SectionDialogueFillGap:
		var c DialogueContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown section name %q", name)
	}
}

// LessonExport is the top-level JSON structure for the export command.
type LessonExport struct {
	ExportedAt time.Time       `json:"exported_at"`
	Lesson     Lesson          `json:"lesson"`
	Quality    []QualityRecord `json:"quality,omitempty"`
}
