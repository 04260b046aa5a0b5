package game

import (
	"errors"
	"sync"

	"github.com/partydraw/partydraw-backend/internal"
	"github.com/rs/zerolog"
)

// ErrUnknownMode rejects a JOIN that would create a room with a mode the
// server does not know.
var ErrUnknownMode = errors.New("unknown game mode")

// Registry owns every live room. One mutex serializes creation and removal
// so two racing creates for the same id can never both win.
type Registry struct {
	mu    sync.Mutex
	rooms map[int]*Room
	log   zerolog.Logger
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		rooms: make(map[int]*Room),
		log:   log.With().Str("component", "registry").Logger(),
	}
}

// GetOrCreate returns the room for roomID, creating it with the given mode
// and host when absent. An existing room is returned unchanged; first join
// decides the mode and the mode argument is ignored afterwards.
func (reg *Registry) GetOrCreate(roomID int, mode internal.GameMode, hostID int) (*Room, bool, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if room, ok := reg.rooms[roomID]; ok {
		return room, false, nil
	}
	if _, err := internal.ParseGameMode(string(mode)); err != nil {
		return nil, false, ErrUnknownMode
	}
	room := NewRoom(roomID, mode, hostID)
	reg.rooms[roomID] = room
	reg.log.Info().Int("room_id", roomID).Str("mode", string(mode)).Int("host_id", hostID).
		Msg("room created")
	return room, true, nil
}

func (reg *Registry) Get(roomID int) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[roomID]
	return room, ok
}

// Rooms returns a snapshot of all live rooms.
func (reg *Registry) Rooms() []*Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	out := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		out = append(out, room)
	}
	return out
}

// Remove reclaims a room, done after a leave empties its roster.
func (reg *Registry) Remove(roomID int) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.rooms[roomID]; ok {
		delete(reg.rooms, roomID)
		reg.log.Info().Int("room_id", roomID).Msg("empty room reclaimed")
	}
}
