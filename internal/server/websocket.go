package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/nudiguru/nudiguru-api/internal/battle"
)

// WatchRoom handles GET /battle/room/{code}/ws. It streams a RoomResponse
// each time a score lands and closes normally once the room is complete.
func (h *Handlers) WatchRoom(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	if _, err := h.battles.Get(r.Context(), code); err != nil {
		if errors.Is(err, battle.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "room not found", "ROOM_NOT_FOUND")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get room", "ROOM_FETCH_FAILED")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			slog.String("room_code", code),
			slog.String("error", err.Error()),
		)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	// Clients only listen; CloseRead cancels ctx when they go away.
	ctx := conn.CloseRead(r.Context())

	events, err := h.battles.Watch(ctx, code)
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "room unavailable")
		return
	}

	for room := range events {
		if err := wsjson.Write(ctx, conn, newRoomResponse(room)); err != nil {
			h.logger.Debug("websocket write failed",
				slog.String("room_code", code),
				slog.String("error", err.Error()),
			)
			return
		}
		if room.Status() == battle.StatusComplete {
			_ = conn.Close(websocket.StatusNormalClosure, "battle complete")
			return
		}
	}
}
