package handlers

import (
	"net/http"
	"time"

	"github.com/BaSui01/warmflow/token"
	"github.com/BaSui01/warmflow/types"
	"go.uber.org/zap"
)

// =============================================================================
// Token Issuance Handler
// =============================================================================

// TokenMetrics records token issuance for the collector.
type TokenMetrics interface {
	RecordTokenIssued(role string)
}

// TokenHandler issues room access tokens.
type TokenHandler struct {
	issuer  *token.Issuer
	metrics TokenMetrics
	logger  *zap.Logger
}

// TokenRequest is the token issuance request body.
type TokenRequest struct {
	Identity   string `json:"identity" binding:"required"`
	RoomName   string `json:"room_name" binding:"required"`
	Role       string `json:"role,omitempty"`
	TTLSeconds int    `json:"ttl_seconds,omitempty"`
}

// TokenResponse carries the signed token and its parameters.
type TokenResponse struct {
	Token     string `json:"token"`
	Identity  string `json:"identity"`
	RoomName  string `json:"room_name"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expires_at"`
}

// NewTokenHandler creates a token handler.
func NewTokenHandler(issuer *token.Issuer, metrics TokenMetrics, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{
		issuer:  issuer,
		metrics: metrics,
		logger:  logger,
	}
}

// HandleCreateToken issues a room access token
// @Summary Issue access token
// @Description Issue a signed room access token for an identity and role
// @Tags token
// @Accept json
// @Produce json
// @Param request body TokenRequest true "Token request"
// @Success 200 {object} Response{data=TokenResponse} "Signed token"
// @Failure 400 {object} Response "Invalid request"
// @Failure 500 {object} Response "Signing failed"
// @Security ApiKeyAuth
// @Router /api/token [post]
func (h *TokenHandler) HandleCreateToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if req.Identity == "" || req.RoomName == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"identity and room_name are required", h.logger)
		return
	}

	role := token.Role(req.Role)
	if req.Role == "" {
		role = token.RoleParticipant
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = token.DefaultTTL
	}

	signed, err := h.issuer.Issue(req.Identity, req.RoomName, role, ttl)
	if err != nil {
		writeAnyError(w, err, h.logger)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordTokenIssued(string(role))
	}

	WriteSuccess(w, TokenResponse{
		Token:     signed,
		Identity:  req.Identity,
		RoomName:  req.RoomName,
		Role:      string(role),
		ExpiresAt: time.Now().Add(ttl).UTC().Format(time.RFC3339),
	})
}
