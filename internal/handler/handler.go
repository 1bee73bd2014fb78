// Package handler exposes the JSON API for generating, retrieving and
// exporting lessons.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/lessonforge/internal/exporter"
	"github.com/pavelanni/lessonforge/internal/generator"
	appI18n "github.com/pavelanni/lessonforge/internal/i18n"
	"github.com/pavelanni/lessonforge/internal/model"
	"github.com/pavelanni/lessonforge/internal/store"
)

// maxRequestBody bounds lesson and resume payloads.
const maxRequestBody = 1 << 20

// LessonRunner is the pipeline surface the handlers need. The concrete
// implementation is *generator.Pipeline; tests substitute a fake.
type LessonRunner interface {
	Run(ctx context.Context, req generator.Request) (*model.Lesson, error)
	Tracker() *generator.Tracker
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	pipeline LessonRunner
	config   model.ServeConfig
}

// New creates a new Handler.
func New(s *store.Store, p LessonRunner, cfg model.ServeConfig) *Handler {
	return &Handler{store: s, pipeline: p, config: cfg}
}

// Routes registers all API routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/login", h.handleLogin)
	r.Post("/api/logout", h.handleLogout)

	r.Get("/api/lessons", h.handleListLessons)
	r.Get("/api/lessons/{id}", h.handleGetLesson)
	r.Get("/api/lessons/{id}/html", h.handleGetLessonHTML)
	r.Get("/api/quality/summary", h.handleQualitySummary)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/api/lessons", h.handleCreateLesson)
		r.Delete("/api/lessons/{id}", h.handleDeleteLesson)
		r.Put("/api/sessions/{key}", h.handleSaveSession)
		r.Get("/api/sessions/{key}", h.handleGetSession)
		r.Delete("/api/sessions/{key}", h.handleDeleteSession)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/api/users", h.handleListUsers)
			r.Post("/api/users", h.handleCreateUser)
			r.Post("/api/users/{id}/toggle", h.handleToggleUser)
		})
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

type createLessonRequest struct {
	SourceText     string `json:"source_text"`
	Level          string `json:"level"`
	LessonType     string `json:"lesson_type"`
	TargetLanguage string `json:"target_language"`
}

func (h *Handler) handleCreateLesson(w http.ResponseWriter, r *http.Request) {
	var req createLessonRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, appI18n.T(r.Context(), "ErrInvalidRequest"))
		return
	}
	level, err := model.ParseLevel(req.Level)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.pipeline.Tracker().Reset()
	lesson, err := h.pipeline.Run(r.Context(), generator.Request{
		SourceText:     req.SourceText,
		LessonType:     req.LessonType,
		Level:          level,
		TargetLanguage: req.TargetLanguage,
	})
	if err != nil {
		var inputErr *generator.InputError
		if errors.As(err, &inputErr) {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"reason":      inputErr.Outcome.Reason,
				"suggestions": inputErr.Outcome.Suggestions,
				"score":       inputErr.Outcome.Score,
			})
			return
		}
		slog.Error("lesson generation failed", "error", err)
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	records := h.pipeline.Tracker().Records()
	id, err := h.store.SaveLesson(lesson, records)
	if err != nil {
		slog.Error("save lesson", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save lesson")
		return
	}
	lesson.ID = id
	respondJSON(w, http.StatusOK, lesson)
}

func (h *Handler) handleListLessons(w http.ResponseWriter, r *http.Request) {
	lessons, err := h.store.ListLessons()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if lessons == nil {
		lessons = []model.LessonSummary{}
	}
	respondJSON(w, http.StatusOK, lessons)
}

func (h *Handler) lessonFromPath(w http.ResponseWriter, r *http.Request) (*model.Lesson, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid lesson ID")
		return nil, false
	}
	lesson, err := h.store.GetLesson(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if lesson == nil {
		respondError(w, http.StatusNotFound, appI18n.T(r.Context(), "ErrLessonNotFound"))
		return nil, false
	}
	return lesson, true
}

func (h *Handler) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	lesson, ok := h.lessonFromPath(w, r)
	if !ok {
		return
	}
	quality, err := h.store.GetQualityRecords(lesson.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"lesson":  lesson,
		"quality": quality,
	})
}

func (h *Handler) handleGetLessonHTML(w http.ResponseWriter, r *http.Request) {
	lesson, ok := h.lessonFromPath(w, r)
	if !ok {
		return
	}
	doc, err := exporter.HTML(r.Context(), lesson)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := io.WriteString(w, doc); err != nil {
		slog.Error("write lesson html", "error", err)
	}
}

func (h *Handler) handleDeleteLesson(w http.ResponseWriter, r *http.Request) {
	lesson, ok := h.lessonFromPath(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteLesson(lesson.ID); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleQualitySummary(w http.ResponseWriter, r *http.Request) {
	stored, err := h.store.AggregateQuality()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"last_run": h.pipeline.Tracker().Summary(),
		"stored":   stored,
	})
}

func (h *Handler) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil || len(payload) == 0 {
		respondError(w, http.StatusBadRequest, appI18n.T(r.Context(), "ErrInvalidRequest"))
		return
	}
	if err := h.store.SaveResumeSession(key, string(payload), store.DefaultResumeTTL); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	payload, found, err := h.store.GetResumeSession(key)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if _, err := io.WriteString(w, payload); err != nil {
		slog.Error("write session payload", "error", err)
	}
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteResumeSession(chi.URLParam(r, "key")); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
