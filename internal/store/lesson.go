package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pavelanni/lessonforge/internal/model"
)

// SaveLesson persists a finished lesson with its quality records in one
// transaction. The lesson payload is stored as one JSON blob; metadata
// columns are duplicated for listing without decoding.
func (s *Store) SaveLesson(lesson *model.Lesson, records []model.QualityRecord) (int64, error) {
	payload, err := json.Marshal(lesson)
	if err != nil {
		return 0, fmt.Errorf("encode lesson: %w", err)
	}

	avg := 0.0
	if len(records) > 0 {
		total := 0
		for _, r := range records {
			total += r.Score
		}
		avg = float64(total) / float64(len(records))
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO lessons (title, level, target_language, lesson_type, payload, average_score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		lesson.Title, lesson.Level, lesson.TargetLanguage, lesson.LessonType, string(payload), avg, lesson.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, r := range records {
		_, err := tx.Exec(
			`INSERT INTO quality_records (lesson_id, section_name, score, attempts, generation_time_ms, issue_count, warning_count)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, r.SectionName, r.Score, r.Attempts, r.GenerationTimeMs, r.IssueCount, r.WarningCount,
		)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	slog.Info("lesson saved", "id", id, "title", lesson.Title, "level", lesson.Level, "avg_score", avg)
	return id, nil
}

// GetLesson loads one lesson with typed section payloads. Returns nil
// when the ID is unknown.
func (s *Store) GetLesson(id int64) (*model.Lesson, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM lessons WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var stored model.StoredLesson
	if err := json.Unmarshal([]byte(payload), &stored); err != nil {
		return nil, fmt.Errorf("decode lesson %d: %w", id, err)
	}
	stored.ID = id
	lesson, err := stored.Decode()
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

// ListLessons returns stored lesson metadata, newest first.
func (s *Store) ListLessons() ([]model.LessonSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, title, level, target_language, lesson_type, average_score, created_at
		 FROM lessons ORDER BY id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.LessonSummary
	for rows.Next() {
		var l model.LessonSummary
		if err := rows.Scan(&l.ID, &l.Title, &l.Level, &l.TargetLanguage, &l.LessonType, &l.AverageScore, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// DeleteLesson removes a lesson and its quality records.
func (s *Store) DeleteLesson(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM quality_records WHERE lesson_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM lessons WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// GetQualityRecords returns the per-section records for a lesson.
func (s *Store) GetQualityRecords(lessonID int64) ([]model.QualityRecord, error) {
	rows, err := s.db.Query(
		`SELECT section_name, score, attempts, generation_time_ms, issue_count, warning_count
		 FROM quality_records WHERE lesson_id = ? ORDER BY id`, lessonID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.QualityRecord
	for rows.Next() {
		var r model.QualityRecord
		if err := rows.Scan(&r.SectionName, &r.Score, &r.Attempts, &r.GenerationTimeMs, &r.IssueCount, &r.WarningCount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// QualityAggregate is the all-time quality view over stored lessons.
type QualityAggregate struct {
	Lessons       int     `json:"lessons"`
	Sections      int     `json:"sections"`
	AverageScore  float64 `json:"average_score"`
	TotalAttempts int     `json:"total_attempts"`
	TotalIssues   int     `json:"total_issues"`
}

// AggregateQuality summarizes all persisted quality records.
func (s *Store) AggregateQuality() (QualityAggregate, error) {
	var agg QualityAggregate
	err := s.db.QueryRow(`SELECT COUNT(*) FROM lessons`).Scan(&agg.Lessons)
	if err != nil {
		return agg, err
	}
	err = s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(AVG(score), 0), COALESCE(SUM(attempts), 0), COALESCE(SUM(issue_count), 0)
		 FROM quality_records`,
	).Scan(&agg.Sections, &agg.AverageScore, &agg.TotalAttempts, &agg.TotalIssues)
	return agg, err
}

// LessonCount returns the number of stored lessons.
func (s *Store) LessonCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM lessons`).Scan(&count)
	return count, err
}
