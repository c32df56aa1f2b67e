package battle

import "context"

// Repository defines the interface for room persistence.
type Repository interface {
	// Create stores a new room. Returns ErrRoomExists if the code is taken.
	Create(ctx context.Context, room *Room) error

	// Get retrieves a room by code.
	// Returns ErrRoomNotFound if the room does not exist.
	Get(ctx context.Context, code string) (*Room, error)

	// Update applies fn to the stored room under the room's lock and returns
	// a copy of the result. If fn returns an error the room is left unchanged.
	Update(ctx context.Context, code string, fn func(*Room) error) (*Room, error)

	// List returns all rooms.
	List(ctx context.Context) ([]*Room, error)
}
