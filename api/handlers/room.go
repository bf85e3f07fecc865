package handlers

import (
	"net/http"
	"strings"

	"github.com/BaSui01/warmflow/rooms"
	"github.com/BaSui01/warmflow/types"
	"go.uber.org/zap"
)

// =============================================================================
// Room Management Handler
// =============================================================================

// RoomMetrics records room lifecycle observations.
type RoomMetrics interface {
	RecordRoomCreated()
	RecordRoomAPIError(operation, code string)
}

// RoomHandler exposes the room facade over HTTP.
type RoomHandler struct {
	rooms   rooms.Service
	metrics RoomMetrics
	logger  *zap.Logger
}

// CreateRoomRequest is the room creation request body.
type CreateRoomRequest struct {
	RoomName        string `json:"room_name" binding:"required"`
	MaxParticipants int    `json:"max_participants,omitempty"`
}

// NewRoomHandler creates a room handler.
func NewRoomHandler(roomSvc rooms.Service, metrics RoomMetrics, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{
		rooms:   roomSvc,
		metrics: metrics,
		logger:  logger,
	}
}

// HandleCreateRoom creates a room
// @Summary Create room
// @Description Create a room with an optional participant cap
// @Tags room
// @Accept json
// @Produce json
// @Param request body CreateRoomRequest true "Room request"
// @Success 201 {object} Response{data=types.RoomInfo} "Created room"
// @Failure 400 {object} Response "Invalid request"
// @Failure 502 {object} Response "Provider error"
// @Security ApiKeyAuth
// @Router /api/create-room [post]
func (h *RoomHandler) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if req.RoomName == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"room_name is required", h.logger)
		return
	}

	info, err := h.rooms.CreateRoom(r.Context(), req.RoomName, req.MaxParticipants)
	if err != nil {
		h.recordError("CreateRoom", err)
		writeAnyError(w, err, h.logger)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordRoomCreated()
	}

	WriteCreated(w, info)
}

// HandleListRooms lists active rooms
// @Summary List rooms
// @Description List all active rooms
// @Tags room
// @Produce json
// @Success 200 {object} Response{data=[]types.RoomInfo} "Room list"
// @Failure 502 {object} Response "Provider error"
// @Security ApiKeyAuth
// @Router /api/rooms [get]
func (h *RoomHandler) HandleListRooms(w http.ResponseWriter, r *http.Request) {
	list, err := h.rooms.ListRooms(r.Context())
	if err != nil {
		h.recordError("ListRooms", err)
		writeAnyError(w, err, h.logger)
		return
	}

	WriteSuccess(w, list)
}

// HandleDeleteRoom deletes a room
// @Summary Delete room
// @Description Delete a room and disconnect its participants
// @Tags room
// @Produce json
// @Param name path string true "Room name"
// @Success 200 {object} Response "Deleted"
// @Failure 400 {object} Response "Invalid request"
// @Failure 502 {object} Response "Provider error"
// @Security ApiKeyAuth
// @Router /api/rooms/{name} [delete]
func (h *RoomHandler) HandleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	name := extractRoomName(r)
	if name == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"room name is required", h.logger)
		return
	}

	if err := h.rooms.DeleteRoom(r.Context(), name); err != nil {
		h.recordError("DeleteRoom", err)
		writeAnyError(w, err, h.logger)
		return
	}

	WriteSuccess(w, map[string]string{"room_name": name, "status": "deleted"})
}

// HandleListParticipants lists room participants
// @Summary List participants
// @Description List the participants currently in a room
// @Tags room
// @Produce json
// @Param name path string true "Room name"
// @Success 200 {object} Response{data=[]types.ParticipantInfo} "Participants"
// @Failure 404 {object} Response "Room not found"
// @Security ApiKeyAuth
// @Router /api/rooms/{name}/participants [get]
func (h *RoomHandler) HandleListParticipants(w http.ResponseWriter, r *http.Request) {
	name := extractRoomName(r)
	if name == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"room name is required", h.logger)
		return
	}

	participants, err := h.rooms.ListParticipants(r.Context(), name)
	if err != nil {
		h.recordError("ListParticipants", err)
		writeAnyError(w, err, h.logger)
		return
	}

	WriteSuccess(w, participants)
}

// HandleRoomStats returns room occupancy statistics
// @Summary Room statistics
// @Description Publisher, subscriber and track counts for a room
// @Tags room
// @Produce json
// @Param name path string true "Room name"
// @Success 200 {object} Response{data=types.RoomStats} "Room stats"
// @Failure 404 {object} Response "Room not found"
// @Security ApiKeyAuth
// @Router /api/rooms/{name}/stats [get]
func (h *RoomHandler) HandleRoomStats(w http.ResponseWriter, r *http.Request) {
	name := extractRoomName(r)
	if name == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"room name is required", h.logger)
		return
	}

	stats, err := h.rooms.RoomStats(r.Context(), name)
	if err != nil {
		h.recordError("RoomStats", err)
		writeAnyError(w, err, h.logger)
		return
	}

	WriteSuccess(w, stats)
}

// =============================================================================
// Helper Functions
// =============================================================================

func (h *RoomHandler) recordError(operation string, err error) {
	if h.metrics != nil {
		h.metrics.RecordRoomAPIError(operation, string(types.GetErrorCode(err)))
	}
}

// extractRoomName extracts the room name from the URL path.
// Supports /api/rooms/{name} and /api/rooms/{name}/participants.
func extractRoomName(r *http.Request) string {
	if name := r.PathValue("name"); name != "" {
		return name
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/rooms/")
	if path == "" || path == r.URL.Path {
		return ""
	}
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		path = path[:idx]
	}
	return path
}
