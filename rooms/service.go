package rooms

import (
	"context"
	"time"

	"github.com/BaSui01/warmflow/types"
)

// Service is the room lifecycle facade used by the transfer machine and the
// HTTP handlers. All operations delegate to the external media provider and
// may block on the network; callers must not invoke them while holding
// in-memory state locks.
type Service interface {
	// CreateRoom creates a room with the given capacity.
	CreateRoom(ctx context.Context, name string, maxParticipants int) (*types.RoomInfo, error)

	// ListRooms returns all active rooms.
	ListRooms(ctx context.Context) ([]types.RoomInfo, error)

	// GetRoom returns a single room by name, or a NotFound error.
	GetRoom(ctx context.Context, name string) (*types.RoomInfo, error)

	// DeleteRoom deletes a room and disconnects its participants. Deleting
	// an already-absent room succeeds: transfer cleanup must not fail merely
	// because a room auto-expired for emptiness first.
	DeleteRoom(ctx context.Context, name string) error

	// ListParticipants returns the participants currently in a room.
	ListParticipants(ctx context.Context, room string) ([]types.ParticipantInfo, error)

	// RemoveParticipant disconnects a participant from a room.
	RemoveParticipant(ctx context.Context, room, identity string) error

	// UpdateParticipantMetadata replaces a participant's metadata blob.
	UpdateParticipantMetadata(ctx context.Context, room, identity, metadata string) error

	// SendData delivers a data-channel payload to targets, or to every
	// participant when targets is empty.
	SendData(ctx context.Context, room string, payload []byte, targets []string) error

	// RoomStats returns occupancy statistics derived from participant flags.
	RoomStats(ctx context.Context, room string) (*types.RoomStats, error)
}

// TokenSource mints short-lived admin credentials for provider API calls.
type TokenSource interface {
	IssueAdmin(room string, ttl time.Duration) (string, error)
}
