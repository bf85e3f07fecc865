package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BaSui01/warmflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRoomFixture(t *testing.T) (*RoomHandler, *stubRoomService) {
	t.Helper()
	roomSvc := newStubRoomService()
	return NewRoomHandler(roomSvc, nil, zap.NewNop()), roomSvc
}

func TestHandleCreateRoom(t *testing.T) {
	h, roomSvc := newRoomFixture(t)

	body := `{"room_name":"caller-room-1","max_participants":4}`
	req := httptest.NewRequest(http.MethodPost, "/api/create-room", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleCreateRoom(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data types.RoomInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "caller-room-1", resp.Data.Name)
	assert.Equal(t, 4, resp.Data.MaxParticipants)

	_, err := roomSvc.GetRoom(context.Background(), "caller-room-1")
	assert.NoError(t, err)
}

func TestHandleCreateRoom_MissingName(t *testing.T) {
	h, _ := newRoomFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/create-room", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.HandleCreateRoom(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeResponse(t, rec).Error.Code)
}

func TestHandleCreateRoom_ProviderError(t *testing.T) {
	h, roomSvc := newRoomFixture(t)
	roomSvc.createErr = types.NewError(types.ErrTransient, "livekit unavailable").WithRetryable(true)

	body := `{"room_name":"caller-room-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/create-room", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleCreateRoom(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "TRANSIENT", decodeResponse(t, rec).Error.Code)
}

func TestHandleListRooms(t *testing.T) {
	h, roomSvc := newRoomFixture(t)
	_, err := roomSvc.CreateRoom(context.Background(), "caller-room-1", 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	rec := httptest.NewRecorder()
	h.HandleListRooms(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []types.RoomInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "caller-room-1", resp.Data[0].Name)
}

func TestHandleDeleteRoom(t *testing.T) {
	h, roomSvc := newRoomFixture(t)
	_, err := roomSvc.CreateRoom(context.Background(), "caller-room-1", 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/rooms/caller-room-1", nil)
	req.SetPathValue("name", "caller-room-1")
	rec := httptest.NewRecorder()
	h.HandleDeleteRoom(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err = roomSvc.GetRoom(context.Background(), "caller-room-1")
	assert.Error(t, err)
}

func TestHandleListParticipants(t *testing.T) {
	h, roomSvc := newRoomFixture(t)
	_, err := roomSvc.CreateRoom(context.Background(), "caller-room-1", 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/caller-room-1/participants", nil)
	req.SetPathValue("name", "caller-room-1")
	rec := httptest.NewRecorder()
	h.HandleListParticipants(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []types.ParticipantInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "caller-1", resp.Data[0].Identity)
}

func TestHandleListParticipants_RoomNotFound(t *testing.T) {
	h, _ := newRoomFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/missing/participants", nil)
	req.SetPathValue("name", "missing")
	rec := httptest.NewRecorder()
	h.HandleListParticipants(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRoomStats(t *testing.T) {
	h, roomSvc := newRoomFixture(t)
	_, err := roomSvc.CreateRoom(context.Background(), "caller-room-1", 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/caller-room-1/stats", nil)
	req.SetPathValue("name", "caller-room-1")
	rec := httptest.NewRecorder()
	h.HandleRoomStats(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data types.RoomStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Publishers)
}

func TestExtractRoomName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/rooms/caller-room-1", "caller-room-1"},
		{"/api/rooms/caller-room-1/participants", "caller-room-1"},
		{"/api/rooms/", ""},
		{"/api/other", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		assert.Equal(t, tt.want, extractRoomName(req), tt.path)
	}
}
