package battle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nudiguru/nudiguru-api/internal/battle/code"
	"github.com/nudiguru/nudiguru-api/internal/lesson"
	"github.com/nudiguru/nudiguru-api/internal/observe"
)

// maxCodeAttempts bounds retries when a generated code collides.
const maxCodeAttempts = 8

// watchBuffer is the per-subscriber event buffer.
const watchBuffer = 4

// ErrNoFreeCode is returned when no unused room code could be generated.
var ErrNoFreeCode = errors.New("could not allocate a room code")

// Scorer produces an overall accuracy score for a recording of a lesson.
type Scorer interface {
	Score(ctx context.Context, clip []byte, lessonID string) (int, error)
}

// Outcome is the result of one submission.
type Outcome struct {
	Score    int
	PlayerID string
	Status   Status
	Winner   string
	Players  map[string]PlayerScore
}

// Coordinator creates rooms and records scored submissions.
// It is safe for concurrent use.
type Coordinator struct {
	repo    Repository
	catalog *lesson.Catalog
	scorer  Scorer
	policy  LessonPolicy
	logger  *slog.Logger
	metrics *observe.Metrics
	newCode func() string
	now     func() time.Time

	mu       sync.Mutex
	watchers map[string]map[chan *Room]*watcher
}

// watcher tracks the newest room version delivered to one subscriber.
type watcher struct {
	last int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPolicy sets how a new room picks its lesson.
func WithPolicy(p LessonPolicy) Option {
	return func(c *Coordinator) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithMetrics records room and submission metrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithCodeGenerator overrides room code generation.
func WithCodeGenerator(gen func() string) Option {
	return func(c *Coordinator) {
		c.newCode = gen
	}
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(repo Repository, catalog *lesson.Catalog, scorer Scorer, logger *slog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		repo:     repo,
		catalog:  catalog,
		scorer:   scorer,
		policy:   FirstLesson,
		logger:   logger,
		metrics:  observe.Noop(),
		newCode:  code.Generate,
		now:      time.Now,
		watchers: make(map[string]map[chan *Room]*watcher),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create opens a new waiting room on a lesson chosen by the policy.
func (c *Coordinator) Create(ctx context.Context) (*Room, error) {
	l := c.policy(c.catalog)

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		room := NewRoom(c.newCode(), l.ID, l.Text)
		err := c.repo.Create(ctx, room)
		if errors.Is(err, ErrRoomExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create room: %w", err)
		}

		c.metrics.BattleRooms.Add(ctx, 1)
		c.logger.Info("battle room created",
			slog.String("room_code", room.Code),
			slog.String("lesson_id", room.LessonID),
		)
		return room, nil
	}
	return nil, ErrNoFreeCode
}

// Get returns a snapshot of a room.
func (c *Coordinator) Get(ctx context.Context, roomCode string) (*Room, error) {
	return c.repo.Get(ctx, roomCode)
}

// Submit scores a player's recording against the room's lesson and records
// the result. Scoring runs outside the room lock.
func (c *Coordinator) Submit(ctx context.Context, roomCode, playerID string, clip []byte) (*Outcome, error) {
	if playerID == "" {
		return nil, ErrInvalidPlayer
	}

	room, err := c.repo.Get(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	// Fail fast before paying for scoring.
	if _, ok := room.Players[playerID]; !ok && room.Status() == StatusComplete {
		c.metrics.RecordBattleSubmission(ctx, "full")
		return nil, ErrRoomFull
	}

	score, err := c.scorer.Score(ctx, clip, room.LessonID)
	if err != nil {
		c.metrics.RecordBattleSubmission(ctx, "error")
		return nil, fmt.Errorf("score submission: %w", err)
	}

	updated, err := c.repo.Update(ctx, roomCode, func(r *Room) error {
		return r.Record(playerID, score, c.now())
	})
	if err != nil {
		if errors.Is(err, ErrRoomFull) {
			c.metrics.RecordBattleSubmission(ctx, "full")
		}
		return nil, err
	}

	status := updated.Status()
	c.metrics.RecordBattleSubmission(ctx, string(status))
	c.logger.Info("battle score recorded",
		slog.String("room_code", roomCode),
		slog.String("player_id", playerID),
		slog.Int("score", score),
		slog.String("room_status", string(status)),
	)

	c.publish(updated)

	return &Outcome{
		Score:    score,
		PlayerID: playerID,
		Status:   status,
		Winner:   updated.Winner(),
		Players:  updated.Players,
	}, nil
}

// Watch subscribes to updates of a room. The current state, or a newer one,
// is delivered first. The channel is closed when ctx is done. Slow subscribers miss
// intermediate updates but always see a later state, and never an older
// state after a newer one.
func (c *Coordinator) Watch(ctx context.Context, roomCode string) (<-chan *Room, error) {
	ch := make(chan *Room, watchBuffer)
	w := &watcher{last: -1}

	// Register before reading the snapshot so a score recorded in between
	// is published to this subscriber.
	c.mu.Lock()
	subs, ok := c.watchers[roomCode]
	if !ok {
		subs = make(map[chan *Room]*watcher)
		c.watchers[roomCode] = subs
	}
	subs[ch] = w
	c.mu.Unlock()

	room, err := c.repo.Get(ctx, roomCode)
	if err != nil {
		c.mu.Lock()
		c.unwatch(roomCode, ch)
		c.mu.Unlock()
		return nil, err
	}

	c.mu.Lock()
	c.deliver(ch, w, room)
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		defer c.mu.Unlock()
		c.unwatch(roomCode, ch)
		close(ch)
	}()

	return ch, nil
}

func (c *Coordinator) publish(room *Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ch, w := range c.watchers[room.Code] {
		c.deliver(ch, w, room)
	}
}

// deliver sends room to ch unless the subscriber already has that version
// or a newer one. Callers hold c.mu.
func (c *Coordinator) deliver(ch chan *Room, w *watcher, room *Room) {
	if room.Version <= w.last {
		return
	}
	w.last = room.Version
	select {
	case ch <- room.Clone():
	default:
		// Drop the oldest queued state so the newest always lands.
		select {
		case <-ch:
		default:
		}
		ch <- room.Clone()
		c.logger.Debug("battle watcher lagging",
			slog.String("room_code", room.Code),
		)
	}
}

// unwatch removes a subscriber. Callers hold c.mu.
func (c *Coordinator) unwatch(roomCode string, ch chan *Room) {
	delete(c.watchers[roomCode], ch)
	if len(c.watchers[roomCode]) == 0 {
		delete(c.watchers, roomCode)
	}
}
