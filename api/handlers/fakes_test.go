package handlers

import (
	"context"
	"sync"

	"github.com/BaSui01/warmflow/llm"
	"github.com/BaSui01/warmflow/types"
)

// stubRoomService is an in-memory rooms.Service for handler tests.
type stubRoomService struct {
	mu        sync.Mutex
	rooms     map[string]*types.RoomInfo
	listErr   error
	createErr error
}

func newStubRoomService() *stubRoomService {
	return &stubRoomService{rooms: make(map[string]*types.RoomInfo)}
}

func (s *stubRoomService) CreateRoom(ctx context.Context, name string, maxParticipants int) (*types.RoomInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	info := &types.RoomInfo{SID: "RM_" + name, Name: name, MaxParticipants: maxParticipants}
	s.rooms[name] = info
	return info, nil
}

func (s *stubRoomService) ListRooms(ctx context.Context) ([]types.RoomInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]types.RoomInfo, 0, len(s.rooms))
	for _, info := range s.rooms {
		out = append(out, *info)
	}
	return out, nil
}

func (s *stubRoomService) GetRoom(ctx context.Context, name string) (*types.RoomInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.rooms[name]; ok {
		cp := *info
		return &cp, nil
	}
	return nil, types.NewError(types.ErrNotFound, "room not found: "+name)
}

func (s *stubRoomService) DeleteRoom(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, name)
	return nil
}

func (s *stubRoomService) ListParticipants(ctx context.Context, room string) ([]types.ParticipantInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room]; !ok {
		return nil, types.NewError(types.ErrNotFound, "room not found: "+room)
	}
	return []types.ParticipantInfo{{SID: "PA_1", Identity: "caller-1"}}, nil
}

func (s *stubRoomService) RemoveParticipant(ctx context.Context, room, identity string) error {
	return nil
}

func (s *stubRoomService) UpdateParticipantMetadata(ctx context.Context, room, identity, metadata string) error {
	return nil
}

func (s *stubRoomService) SendData(ctx context.Context, room string, payload []byte, targets []string) error {
	return nil
}

func (s *stubRoomService) RoomStats(ctx context.Context, room string) (*types.RoomStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room]; !ok {
		return nil, types.NewError(types.ErrNotFound, "room not found: "+room)
	}
	return &types.RoomStats{Publishers: 1, Subscribers: 1}, nil
}

// stubCompleter returns canned LLM responses for handler tests.
type stubCompleter struct {
	response string
	err      error
}

func (s *stubCompleter) Completion(ctx context.Context, messages []llm.Message) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}
