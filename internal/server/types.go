// Package server provides the HTTP server for the NudiGuru API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"time"

	"github.com/nudiguru/nudiguru-api/internal/battle"
	"github.com/nudiguru/nudiguru-api/internal/lesson"
)

// EvaluateForm holds the non-file fields of POST /evaluate.
type EvaluateForm struct {
	// LessonID is the lesson the recording attempts.
	LessonID string `validate:"required,max=64"`
}

// BattleScoreForm holds the non-file fields of POST /battle/score.
type BattleScoreForm struct {
	// RoomCode is the six-character room code.
	RoomCode string `validate:"required,len=6,hexadecimal,uppercase"`
	// PlayerID identifies the submitting player.
	PlayerID string `validate:"required,max=64"`
}

// LessonResponse is one entry of GET /lessons.
type LessonResponse struct {
	ID         string   `json:"id"`
	Order      int      `json:"order"`
	Title      string   `json:"title"`
	Text       string   `json:"kannada_text"`
	Syllables  []string `json:"syllables"`
	Difficulty string   `json:"difficulty"`
}

func newLessonResponse(l lesson.Lesson) LessonResponse {
	return LessonResponse{
		ID:         l.ID,
		Order:      l.Order,
		Title:      l.Text,
		Text:       l.Text,
		Syllables:  l.Syllables,
		Difficulty: l.Difficulty(),
	}
}

// CreateRoomResponse is the HTTP response after creating a battle room.
type CreateRoomResponse struct {
	RoomCode   string `json:"room_code"`
	LessonID   string `json:"lesson_id"`
	LessonText string `json:"lesson_text"`
}

// PlayerScoreResponse is one player's entry in a room.
type PlayerScoreResponse struct {
	Score    int       `json:"score"`
	ScoredAt time.Time `json:"scored_at"`
}

// RoomResponse is the HTTP response for getting room details. It is also the
// message streamed over the room WebSocket.
type RoomResponse struct {
	RoomCode   string                         `json:"room_code"`
	LessonID   string                         `json:"lesson_id"`
	LessonText string                         `json:"lesson_text"`
	Players    map[string]PlayerScoreResponse `json:"players"`
	Status     string                         `json:"status"`
	Winner     string                         `json:"winner,omitempty"`
}

func newRoomResponse(r *battle.Room) RoomResponse {
	return RoomResponse{
		RoomCode:   r.Code,
		LessonID:   r.LessonID,
		LessonText: r.LessonText,
		Players:    playerScores(r.Players),
		Status:     string(r.Status()),
		Winner:     r.Winner(),
	}
}

// BattleScoreResponse is the HTTP response after a battle submission.
type BattleScoreResponse struct {
	Score      int                            `json:"score"`
	PlayerID   string                         `json:"player_id"`
	RoomStatus string                         `json:"room_status"`
	Winner     string                         `json:"winner,omitempty"`
	AllScores  map[string]PlayerScoreResponse `json:"all_scores"`
}

func playerScores(in map[string]battle.PlayerScore) map[string]PlayerScoreResponse {
	out := make(map[string]PlayerScoreResponse, len(in))
	for id, p := range in {
		out[id] = PlayerScoreResponse{Score: p.Score, ScoredAt: p.ScoredAt}
	}
	return out
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
	// Pipelines lists the scoring pipelines that are loaded.
	Pipelines []string `json:"pipelines"`
	// TTS reports whether reference audio can be synthesized.
	TTS bool `json:"tts"`
	// Lessons is the number of lessons in the catalog.
	Lessons int `json:"lessons"`
}
