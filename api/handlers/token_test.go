package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BaSui01/warmflow/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTokenFixture(t *testing.T) (*TokenHandler, *token.Issuer) {
	t.Helper()
	issuer := token.NewIssuer("api-key", "api-secret-at-least-32-bytes-long", zap.NewNop())
	return NewTokenHandler(issuer, nil, zap.NewNop()), issuer
}

func TestHandleCreateToken(t *testing.T) {
	h, issuer := newTokenFixture(t)

	body := `{"identity":"caller-1","room_name":"caller-room-1","role":"caller"}`
	req := httptest.NewRequest(http.MethodPost, "/api/token", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleCreateToken(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "caller-1", resp.Data.Identity)
	assert.Equal(t, "caller", resp.Data.Role)

	// The token verifies and carries the caller permission set.
	claims, err := issuer.Validate(resp.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, "caller-1", claims.Subject)
	assert.Equal(t, "caller-room-1", claims.Video.Room)
	require.NotNil(t, claims.Video.CanPublish)
	assert.True(t, *claims.Video.CanPublish)
	require.NotNil(t, claims.Video.CanPublishData)
	assert.False(t, *claims.Video.CanPublishData, "callers never publish data")
}

func TestHandleCreateToken_DefaultsToParticipant(t *testing.T) {
	h, issuer := newTokenFixture(t)

	body := `{"identity":"guest-1","room_name":"caller-room-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/token", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleCreateToken(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(token.RoleParticipant), resp.Data.Role)

	claims, err := issuer.Validate(resp.Data.Token)
	require.NoError(t, err)
	require.NotNil(t, claims.Video.CanPublishData)
	assert.False(t, *claims.Video.CanPublishData)
}

func TestHandleCreateToken_MissingFields(t *testing.T) {
	h, _ := newTokenFixture(t)

	tests := []string{
		`{"room_name":"caller-room-1"}`,
		`{"identity":"caller-1"}`,
		`{}`,
	}
	for _, body := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/token", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.HandleCreateToken(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestHandleCreateToken_SigningFailure(t *testing.T) {
	issuer := token.NewIssuer("api-key", "", zap.NewNop()) // no secret configured
	h := NewTokenHandler(issuer, nil, zap.NewNop())

	body := `{"identity":"caller-1","room_name":"caller-room-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/token", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleCreateToken(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "SIGNING_FAILED", decodeResponse(t, rec).Error.Code)
}
