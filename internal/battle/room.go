// Package battle runs two-player pronunciation battles: a room is created
// for a lesson, each player submits one recording, and the higher score wins.
package battle

import (
	"errors"
	"maps"
	"sort"
	"time"
)

// Status represents the state of a Room. It is derived from the number of
// players that have scored.
type Status string

const (
	// StatusWaiting indicates fewer than two players have scored.
	StatusWaiting Status = "waiting"
	// StatusComplete indicates both players have scored. It is terminal.
	StatusComplete Status = "complete"
)

// MaxPlayers is the number of players a room holds.
const MaxPlayers = 2

// Tie is reported as the winner when both players scored the same.
const Tie = "tie"

// Static errors for rooms.
var (
	// ErrRoomNotFound is returned when a room cannot be found by code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned when a third player tries to join a complete room.
	ErrRoomFull = errors.New("room is full")
	// ErrRoomExists is returned when a room code is already taken.
	ErrRoomExists = errors.New("room already exists")
	// ErrInvalidPlayer is returned for an empty player id.
	ErrInvalidPlayer = errors.New("player id is required")
)

// PlayerScore is one player's latest submission.
type PlayerScore struct {
	Score    int       `json:"score"`
	ScoredAt time.Time `json:"scored_at"`
}

// Room is a battle between two players on one lesson.
type Room struct {
	// Code is the short identifier players share.
	Code string
	// LessonID is the lesson both players attempt.
	LessonID string
	// LessonText is the lesson's display text.
	LessonText string
	// Players maps player id to their latest score.
	Players map[string]PlayerScore
	// CreatedAt is when the room was created.
	CreatedAt time.Time
	// UpdatedAt is when a score last landed.
	UpdatedAt time.Time
	// Version increases by one with every recorded score.
	Version int
}

// NewRoom creates an empty room.
func NewRoom(roomCode, lessonID, lessonText string) *Room {
	now := time.Now()
	return &Room{
		Code:       roomCode,
		LessonID:   lessonID,
		LessonText: lessonText,
		Players:    make(map[string]PlayerScore),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Status derives the room state from its players.
func (r *Room) Status() Status {
	if len(r.Players) >= MaxPlayers {
		return StatusComplete
	}
	return StatusWaiting
}

// Winner returns the player with the strictly higher score, Tie on equal
// scores, or "" while the room is waiting. It is recomputed on every call.
func (r *Room) Winner() string {
	if r.Status() != StatusComplete {
		return ""
	}

	ids := r.PlayerIDs()
	a, b := r.Players[ids[0]], r.Players[ids[1]]
	switch {
	case a.Score > b.Score:
		return ids[0]
	case b.Score > a.Score:
		return ids[1]
	default:
		return Tie
	}
}

// PlayerIDs returns the ids of players who have scored, sorted.
func (r *Room) PlayerIDs() []string {
	ids := make([]string, 0, len(r.Players))
	for id := range r.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Record stores a player's score. A player may resubmit any number of times,
// overwriting their previous score; a new player cannot join once the room
// is complete.
func (r *Room) Record(playerID string, score int, at time.Time) error {
	if playerID == "" {
		return ErrInvalidPlayer
	}
	if _, ok := r.Players[playerID]; !ok && len(r.Players) >= MaxPlayers {
		return ErrRoomFull
	}
	r.Players[playerID] = PlayerScore{Score: score, ScoredAt: at}
	r.UpdatedAt = at
	r.Version++
	return nil
}

// Clone creates a deep copy of the room for safe reads.
func (r *Room) Clone() *Room {
	c := *r
	c.Players = maps.Clone(r.Players)
	if c.Players == nil {
		c.Players = make(map[string]PlayerScore)
	}
	return &c
}
