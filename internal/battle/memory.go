package battle

import (
	"context"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// Rooms live for the life of the process. One lock serializes updates
// across all rooms.
type MemoryRepository struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewMemoryRepository creates a new in-memory room repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		rooms: make(map[string]*Room),
	}
}

// Create stores a clone of room.
func (r *MemoryRepository) Create(_ context.Context, room *Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[room.Code]; ok {
		return ErrRoomExists
	}
	r.rooms[room.Code] = room.Clone()
	return nil
}

// Get returns a clone to prevent external mutations.
func (r *MemoryRepository) Get(_ context.Context, code string) (*Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.Clone(), nil
}

// Update mutates a working copy and swaps it in only when fn succeeds.
func (r *MemoryRepository) Update(_ context.Context, code string, fn func(*Room) error) (*Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	working := room.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	r.rooms[code] = working
	return working.Clone(), nil
}

// List returns clones of all rooms.
func (r *MemoryRepository) List(_ context.Context) ([]*Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		result = append(result, room.Clone())
	}
	return result, nil
}
