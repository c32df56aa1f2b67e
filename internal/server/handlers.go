package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/nudiguru/nudiguru-api/internal/audio"
	"github.com/nudiguru/nudiguru-api/internal/battle"
	"github.com/nudiguru/nudiguru-api/internal/evaluation"
	"github.com/nudiguru/nudiguru-api/internal/lesson"
	"github.com/nudiguru/nudiguru-api/internal/reference"
)

// defaultMaxUpload is the upload limit when none is configured.
const defaultMaxUpload = 10 << 20

// Evaluator scores recordings.
type Evaluator interface {
	Evaluate(ctx context.Context, clip []byte, lessonID string) (*evaluation.Response, error)
	Pipelines() []string
}

// ReferenceSource serves reference recordings.
type ReferenceSource interface {
	Resolve(ctx context.Context, lessonID string) (reference.Audio, error)
	Status(ctx context.Context) reference.Status
	SynthesisEnabled() bool
}

// Battles runs pronunciation battles.
type Battles interface {
	Create(ctx context.Context) (*battle.Room, error)
	Get(ctx context.Context, code string) (*battle.Room, error)
	Submit(ctx context.Context, code, playerID string, clip []byte) (*battle.Outcome, error)
	Watch(ctx context.Context, code string) (<-chan *battle.Room, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	catalog    *lesson.Catalog
	evaluator  Evaluator
	references ReferenceSource
	battles    Battles
	validator  *validator.Validate
	logger     *slog.Logger
	maxUpload  int64
	origins    []string
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxUpload sets the maximum accepted request body size in bytes.
func WithMaxUpload(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// WithWebSocketOrigins sets the origin patterns accepted for WebSocket upgrades.
func WithWebSocketOrigins(patterns []string) HandlerOption {
	return func(h *Handlers) {
		h.origins = patterns
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(catalog *lesson.Catalog, evaluator Evaluator, references ReferenceSource, battles Battles, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		catalog:    catalog,
		evaluator:  evaluator,
		references: references,
		battles:    battles,
		validator:  validator.New(),
		logger:     logger,
		maxUpload:  defaultMaxUpload,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	pipelines := h.evaluator.Pipelines()
	status := "ok"
	if len(pipelines) == 0 {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Pipelines: pipelines,
		TTS:       h.references.SynthesisEnabled(),
		Lessons:   h.catalog.Len(),
	})
}

// ListLessons handles GET /lessons requests.
func (h *Handlers) ListLessons(w http.ResponseWriter, r *http.Request) {
	lessons := h.catalog.List()
	resp := make([]LessonResponse, 0, len(lessons))
	for _, l := range lessons {
		resp = append(resp, newLessonResponse(l))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Evaluate handles POST /evaluate requests.
func (h *Handlers) Evaluate(w http.ResponseWriter, r *http.Request) {
	clip, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	form := EvaluateForm{LessonID: r.FormValue("lesson_id")}
	if err := h.validator.Struct(form); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	resp, err := h.evaluator.Evaluate(r.Context(), clip, form.LessonID)
	if err != nil {
		h.writeScoringError(w, err, slog.String("lesson_id", form.LessonID))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetReferenceAudio handles GET /tts/generate/{id} requests.
func (h *Handlers) GetReferenceAudio(w http.ResponseWriter, r *http.Request) {
	lessonID := r.PathValue("id")

	ref, err := h.references.Resolve(r.Context(), lessonID)
	if err != nil {
		switch {
		case errors.Is(err, lesson.ErrLessonNotFound):
			writeError(w, http.StatusNotFound, "lesson not found", "LESSON_NOT_FOUND")
		case errors.Is(err, reference.ErrUnavailable):
			writeError(w, http.StatusServiceUnavailable, "reference audio unavailable", "REFERENCE_UNAVAILABLE")
		default:
			h.logger.Error("failed to resolve reference audio",
				slog.String("lesson_id", lessonID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to resolve reference audio", "REFERENCE_FAILED")
		}
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", reference.Key(lessonID)))
	w.Header().Set("X-Reference-Source", string(ref.Source))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(ref.Data); err != nil {
		h.logger.Warn("failed to write reference audio",
			slog.String("lesson_id", lessonID),
			slog.String("error", err.Error()),
		)
	}
}

// ReferenceStatus handles GET /tts/status requests.
func (h *Handlers) ReferenceStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.references.Status(r.Context()))
}

// CreateRoom handles POST /battle/create requests.
func (h *Handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.battles.Create(r.Context())
	if err != nil {
		h.logger.Error("failed to create battle room",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create room", "ROOM_CREATION_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, CreateRoomResponse{
		RoomCode:   room.Code,
		LessonID:   room.LessonID,
		LessonText: room.LessonText,
	})
}

// GetRoom handles GET /battle/room/{code} requests.
func (h *Handlers) GetRoom(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	room, err := h.battles.Get(r.Context(), code)
	if err != nil {
		if errors.Is(err, battle.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "room not found", "ROOM_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get battle room",
			slog.String("room_code", code),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get room", "ROOM_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, newRoomResponse(room))
}

// SubmitScore handles POST /battle/score requests.
func (h *Handlers) SubmitScore(w http.ResponseWriter, r *http.Request) {
	clip, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	form := BattleScoreForm{
		RoomCode: r.FormValue("room_code"),
		PlayerID: r.FormValue("player_id"),
	}
	if err := h.validator.Struct(form); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	out, err := h.battles.Submit(r.Context(), form.RoomCode, form.PlayerID, clip)
	if err != nil {
		switch {
		case errors.Is(err, battle.ErrRoomNotFound):
			writeError(w, http.StatusNotFound, "room not found", "ROOM_NOT_FOUND")
		case errors.Is(err, battle.ErrRoomFull):
			writeError(w, http.StatusConflict, "room is full", "ROOM_FULL")
		case errors.Is(err, battle.ErrInvalidPlayer):
			writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		default:
			h.writeScoringError(w, err, slog.String("room_code", form.RoomCode))
		}
		return
	}

	writeJSON(w, http.StatusOK, BattleScoreResponse{
		Score:      out.Score,
		PlayerID:   out.PlayerID,
		RoomStatus: string(out.Status),
		Winner:     out.Winner,
		AllScores:  playerScores(out.Players),
	})
}

// readUpload parses a multipart body and returns the "audio" file contents.
// On failure it writes the error response and returns false.
func (h *Handlers) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large", "UPLOAD_TOO_LARGE")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "invalid multipart body", "INVALID_MULTIPART")
		return nil, false
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required", "MISSING_AUDIO")
		return nil, false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read audio file", "INVALID_AUDIO")
		return nil, false
	}
	return data, true
}

// writeScoringError maps evaluation errors to HTTP responses.
func (h *Handlers) writeScoringError(w http.ResponseWriter, err error, attrs ...any) {
	switch {
	case errors.Is(err, audio.ErrInvalidAudio):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_AUDIO")
	case errors.Is(err, lesson.ErrLessonNotFound):
		writeError(w, http.StatusNotFound, "lesson not found", "LESSON_NOT_FOUND")
	case errors.Is(err, evaluation.ErrScoringUnavailable):
		h.logger.Warn("scoring unavailable", append(attrs, slog.String("error", err.Error()))...)
		writeError(w, http.StatusServiceUnavailable, "scoring unavailable", "SCORING_UNAVAILABLE")
	default:
		h.logger.Error("evaluation failed", append(attrs, slog.String("error", err.Error()))...)
		writeError(w, http.StatusInternalServerError, "evaluation failed", "EVALUATION_FAILED")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
