package handlers

import (
	"net/http"
	"strings"

	"github.com/BaSui01/warmflow/rooms"
	"github.com/BaSui01/warmflow/summary"
	"github.com/BaSui01/warmflow/transfer"
	"github.com/BaSui01/warmflow/types"
	"go.uber.org/zap"
)

// =============================================================================
// Warm Transfer Handler
// =============================================================================

// TransferHandler drives the warm-transfer workflow over HTTP.
type TransferHandler struct {
	machine   *transfer.Machine
	rooms     rooms.Service
	summaries *summary.Store
	logger    *zap.Logger
}

// InitiateTransferRequest starts a warm transfer.
type InitiateTransferRequest struct {
	CallerRoom string `json:"caller_room" binding:"required"`
	AgentAID   string `json:"agent_a_id" binding:"required"`
	AgentBID   string `json:"agent_b_id" binding:"required"`
	Context    string `json:"context,omitempty"`
}

// CompleteTransferRequest finishes a warm transfer.
type CompleteTransferRequest struct {
	TransferID string `json:"transfer_id" binding:"required"`
	CallerRoom string `json:"caller_room,omitempty"`
}

// StatsResponse is the aggregate service view.
type StatsResponse struct {
	ActiveRooms       int                 `json:"active_rooms"`
	Transfers         types.TransferStats `json:"transfers"`
	SummariesRetained int                 `json:"summaries_retained"`
}

// NewTransferHandler creates a transfer handler.
func NewTransferHandler(machine *transfer.Machine, roomSvc rooms.Service, summaries *summary.Store, logger *zap.Logger) *TransferHandler {
	return &TransferHandler{
		machine:   machine,
		rooms:     roomSvc,
		summaries: summaries,
		logger:    logger,
	}
}

// HandleInitiateTransfer starts a warm transfer
// @Summary Initiate warm transfer
// @Description Create a briefing room and issue agent tokens for a warm transfer
// @Tags transfer
// @Accept json
// @Produce json
// @Param request body InitiateTransferRequest true "Initiate request"
// @Success 201 {object} Response{data=transfer.InitiateResult} "Transfer initiated"
// @Failure 400 {object} Response "Invalid request"
// @Failure 502 {object} Response "Provider error"
// @Security ApiKeyAuth
// @Router /api/initiate-transfer [post]
func (h *TransferHandler) HandleInitiateTransfer(w http.ResponseWriter, r *http.Request) {
	var req InitiateTransferRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	result, err := h.machine.Initiate(r.Context(), req.CallerRoom, req.AgentAID, req.AgentBID, req.Context)
	if err != nil {
		writeAnyError(w, err, h.logger)
		return
	}

	WriteCreated(w, result)
}

// HandleCompleteTransfer completes a warm transfer
// @Summary Complete warm transfer
// @Description Transition the session to completed and issue Agent B's caller-room token
// @Tags transfer
// @Accept json
// @Produce json
// @Param request body CompleteTransferRequest true "Complete request"
// @Success 200 {object} Response{data=transfer.CompleteResult} "Transfer completed"
// @Failure 404 {object} Response "Transfer not found"
// @Failure 409 {object} Response "Transfer not in initiated state"
// @Security ApiKeyAuth
// @Router /api/complete-transfer [post]
func (h *TransferHandler) HandleCompleteTransfer(w http.ResponseWriter, r *http.Request) {
	var req CompleteTransferRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if req.TransferID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"transfer_id is required", h.logger)
		return
	}

	result, err := h.machine.Complete(r.Context(), req.TransferID, req.CallerRoom)
	if err != nil {
		writeAnyError(w, err, h.logger)
		return
	}

	WriteSuccess(w, result)
}

// HandleAbandonTransfer abandons an in-flight transfer
// @Summary Abandon warm transfer
// @Description Cancel an initiated transfer and tear down its briefing room
// @Tags transfer
// @Produce json
// @Param id path string true "Transfer ID"
// @Success 200 {object} Response{data=types.TransferSession} "Transfer abandoned"
// @Failure 404 {object} Response "Transfer not found"
// @Failure 409 {object} Response "Transfer already terminal"
// @Security ApiKeyAuth
// @Router /api/transfer/{id}/abandon [post]
func (h *TransferHandler) HandleAbandonTransfer(w http.ResponseWriter, r *http.Request) {
	id := extractTransferID(r)
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"transfer ID is required", h.logger)
		return
	}

	sess, err := h.machine.Abandon(r.Context(), id)
	if err != nil {
		writeAnyError(w, err, h.logger)
		return
	}

	WriteSuccess(w, sess)
}

// HandleGetTransfer returns a transfer session's status
// @Summary Transfer status
// @Description Read-only view of a transfer session
// @Tags transfer
// @Produce json
// @Param id path string true "Transfer ID"
// @Success 200 {object} Response{data=types.TransferSession} "Transfer session"
// @Failure 404 {object} Response "Transfer not found"
// @Security ApiKeyAuth
// @Router /api/transfer/{id} [get]
func (h *TransferHandler) HandleGetTransfer(w http.ResponseWriter, r *http.Request) {
	id := extractTransferID(r)
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"transfer ID is required", h.logger)
		return
	}

	sess, err := h.machine.GetStatus(id)
	if err != nil {
		writeAnyError(w, err, h.logger)
		return
	}

	WriteSuccess(w, sess)
}

// HandleStats returns the aggregate service statistics
// @Summary Service statistics
// @Description Active rooms, transfer counts and retained summaries
// @Tags transfer
// @Produce json
// @Success 200 {object} Response{data=StatsResponse} "Statistics"
// @Security ApiKeyAuth
// @Router /api/stats [get]
func (h *TransferHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := StatsResponse{
		Transfers: h.machine.Stats(),
	}
	if h.summaries != nil {
		stats.SummariesRetained = h.summaries.Len()
	}

	// Room listing is best-effort: provider downtime must not break stats.
	if list, err := h.rooms.ListRooms(r.Context()); err == nil {
		stats.ActiveRooms = len(list)
	} else {
		h.logger.Warn("room listing failed during stats", zap.Error(err))
	}

	WriteSuccess(w, stats)
}

// =============================================================================
// Helper Functions
// =============================================================================

// extractTransferID extracts the transfer ID from the URL path.
// Supports /api/transfer/{id} and /api/transfer/{id}/abandon.
func extractTransferID(r *http.Request) string {
	if id := r.PathValue("id"); id != "" {
		return id
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/transfer/")
	if path == "" || path == r.URL.Path {
		return ""
	}
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		path = path[:idx]
	}
	return path
}
