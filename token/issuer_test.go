package token

import (
	"testing"
	"time"

	"github.com/BaSui01/warmflow/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestIssuer() *Issuer {
	return NewIssuer("test-api-key", "test-api-secret-0123456789", zap.NewNop())
}

func TestIssue_RolePermissionTable(t *testing.T) {
	issuer := newTestIssuer()

	tests := []struct {
		name           string
		role           Role
		canPublishData bool
		canUpdateMeta  bool
	}{
		{name: "caller has no data channel", role: RoleCaller, canPublishData: false, canUpdateMeta: false},
		{name: "participant has no data channel", role: RoleParticipant, canPublishData: false, canUpdateMeta: false},
		{name: "agent_a has full permissions", role: RoleAgentA, canPublishData: true, canUpdateMeta: true},
		{name: "agent_b has full permissions", role: RoleAgentB, canPublishData: true, canUpdateMeta: true},
		{name: "unknown role falls back to participant", role: Role("supervisor"), canPublishData: false, canUpdateMeta: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := issuer.Issue("user-1", "room-1", tt.role, time.Hour)
			require.NoError(t, err)

			claims, err := issuer.Validate(tok)
			require.NoError(t, err)

			assert.Equal(t, "user-1", claims.Subject)
			assert.Equal(t, "room-1", claims.Video.Room)
			assert.True(t, claims.Video.RoomJoin)
			require.NotNil(t, claims.Video.CanPublish)
			require.NotNil(t, claims.Video.CanSubscribe)
			require.NotNil(t, claims.Video.CanPublishData)
			require.NotNil(t, claims.Video.CanUpdateMetadata)
			assert.True(t, *claims.Video.CanPublish)
			assert.True(t, *claims.Video.CanSubscribe)
			assert.Equal(t, tt.canPublishData, *claims.Video.CanPublishData)
			assert.Equal(t, tt.canUpdateMeta, *claims.Video.CanUpdateMetadata)
		})
	}
}

func TestIssue_DefaultTTL(t *testing.T) {
	issuer := newTestIssuer()

	tok, err := issuer.Issue("user-1", "room-1", RoleCaller, 0)
	require.NoError(t, err)

	claims, err := issuer.Validate(tok)
	require.NoError(t, err)

	expiry := claims.ExpiresAt.Time
	assert.WithinDuration(t, time.Now().Add(DefaultTTL), expiry, time.Minute)
}

func TestIssue_InputValidation(t *testing.T) {
	issuer := newTestIssuer()

	_, err := issuer.Issue("", "room-1", RoleCaller, time.Hour)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))

	_, err = issuer.Issue("user-1", "", RoleCaller, time.Hour)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestIssue_MissingSecret(t *testing.T) {
	issuer := NewIssuer("key", "", zap.NewNop())

	tok, err := issuer.Issue("user-1", "room-1", RoleCaller, time.Hour)
	require.Error(t, err)
	assert.Empty(t, tok)
	assert.Equal(t, types.ErrSigningFailed, types.GetErrorCode(err))
}

func TestValidate_RejectsExpired(t *testing.T) {
	issuer := newTestIssuer()

	now := time.Now().Add(-2 * time.Hour)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test-api-key",
			Subject:   "user-1",
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Video: VideoGrant{RoomJoin: true, Room: "room-1"},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("test-api-secret-0123456789"))
	require.NoError(t, err)

	_, err = issuer.Validate(expired)
	require.Error(t, err)
	assert.Equal(t, types.ErrPermanent, types.GetErrorCode(err))
}

func TestValidate_RejectsMalformed(t *testing.T) {
	issuer := newTestIssuer()

	tests := []string{"", "not-a-jwt", "aaa.bbb.ccc"}
	for _, tok := range tests {
		_, err := issuer.Validate(tok)
		assert.Error(t, err, "token %q should be rejected", tok)
	}
}

func TestValidate_RejectsWrongSecret(t *testing.T) {
	issuer := newTestIssuer()
	other := NewIssuer("test-api-key", "a-different-secret-entirely", zap.NewNop())

	tok, err := other.Issue("user-1", "room-1", RoleCaller, time.Hour)
	require.NoError(t, err)

	_, err = issuer.Validate(tok)
	require.Error(t, err)
}

func TestIssueAdmin_Grants(t *testing.T) {
	issuer := newTestIssuer()

	tok, err := issuer.IssueAdmin("room-1", time.Minute)
	require.NoError(t, err)

	claims, err := issuer.Validate(tok)
	require.NoError(t, err)

	assert.True(t, claims.Video.RoomCreate)
	assert.True(t, claims.Video.RoomList)
	assert.True(t, claims.Video.RoomAdmin)
	assert.Equal(t, "room-1", claims.Video.Room)
	assert.Equal(t, "test-api-key", claims.Subject)
}
