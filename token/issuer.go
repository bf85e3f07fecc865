package token

import (
	"time"

	"github.com/BaSui01/warmflow/types"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Role identifies a participant's function in the transfer workflow.
type Role string

const (
	RoleCaller      Role = "caller"
	RoleAgentA      Role = "agent_a"
	RoleAgentB      Role = "agent_b"
	RoleParticipant Role = "participant"
)

// DefaultTTL is the token validity window when the caller passes zero.
const DefaultTTL = 2 * time.Hour

// Permissions are the media-level rights embedded in a token's video grant.
type Permissions struct {
	CanPublish        bool
	CanSubscribe      bool
	CanPublishData    bool
	CanUpdateMetadata bool
}

// rolePermissions is the fixed role-to-permission table. Unknown roles fall
// back to the participant set, the most restrictive one.
var rolePermissions = map[Role]Permissions{
	RoleCaller:      {CanPublish: true, CanSubscribe: true},
	RoleAgentA:      {CanPublish: true, CanSubscribe: true, CanPublishData: true, CanUpdateMetadata: true},
	RoleAgentB:      {CanPublish: true, CanSubscribe: true, CanPublishData: true, CanUpdateMetadata: true},
	RoleParticipant: {CanPublish: true, CanSubscribe: true},
}

// PermissionsForRole resolves the permission set for a role.
func PermissionsForRole(role Role) Permissions {
	if p, ok := rolePermissions[role]; ok {
		return p
	}
	return rolePermissions[RoleParticipant]
}

// VideoGrant is the room-scoped grant claim understood by the media provider.
type VideoGrant struct {
	RoomJoin          bool   `json:"room_join,omitempty"`
	Room              string `json:"room,omitempty"`
	RoomCreate        bool   `json:"room_create,omitempty"`
	RoomList          bool   `json:"room_list,omitempty"`
	RoomAdmin         bool   `json:"room_admin,omitempty"`
	CanPublish        *bool  `json:"can_publish,omitempty"`
	CanSubscribe      *bool  `json:"can_subscribe,omitempty"`
	CanPublishData    *bool  `json:"can_publish_data,omitempty"`
	CanUpdateMetadata *bool  `json:"can_update_own_metadata,omitempty"`
}

// Claims is the full JWT claim set for an issued token.
type Claims struct {
	jwt.RegisteredClaims
	Name  string     `json:"name,omitempty"`
	Video VideoGrant `json:"video"`
}

// Issuer builds signed access tokens for a (room, identity) pair. It is
// stateless and safe for concurrent use.
type Issuer struct {
	apiKey    string
	apiSecret []byte
	logger    *zap.Logger
}

// NewIssuer creates an Issuer from the media provider API key pair.
func NewIssuer(apiKey, apiSecret string, logger *zap.Logger) *Issuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Issuer{
		apiKey:    apiKey,
		apiSecret: []byte(apiSecret),
		logger:    logger.With(zap.String("component", "token_issuer")),
	}
}

// Issue returns a signed token granting identity access to room with the
// permissions of role, expiring at now + ttl (DefaultTTL when ttl is zero).
func (i *Issuer) Issue(identity, room string, role Role, ttl time.Duration) (string, error) {
	if identity == "" {
		return "", types.NewError(types.ErrInvalidRequest, "token identity must not be empty").
			WithOperation("token.Issue")
	}
	if room == "" {
		return "", types.NewError(types.ErrInvalidRequest, "token room must not be empty").
			WithOperation("token.Issue")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	perms := PermissionsForRole(role)
	grant := VideoGrant{
		RoomJoin:          true,
		Room:              room,
		CanPublish:        boolPtr(perms.CanPublish),
		CanSubscribe:      boolPtr(perms.CanSubscribe),
		CanPublishData:    boolPtr(perms.CanPublishData),
		CanUpdateMetadata: boolPtr(perms.CanUpdateMetadata),
	}

	tok, err := i.sign(identity, ttl, grant)
	if err != nil {
		return "", err
	}

	i.logger.Debug("issued room token",
		zap.String("identity", identity),
		zap.String("room", room),
		zap.String("role", string(role)),
		zap.Duration("ttl", ttl),
	)
	return tok, nil
}

// IssueAdmin returns a server-API token with room management grants. When
// room is empty the grant covers room creation and listing globally.
func (i *Issuer) IssueAdmin(room string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	grant := VideoGrant{
		Room:       room,
		RoomCreate: true,
		RoomList:   true,
		RoomAdmin:  true,
	}
	return i.sign(i.apiKey, ttl, grant)
}

func (i *Issuer) sign(identity string, ttl time.Duration, grant VideoGrant) (string, error) {
	if len(i.apiSecret) == 0 {
		return "", types.NewError(types.ErrSigningFailed, "media API secret not configured").
			WithOperation("token.sign")
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.apiKey,
			Subject:   identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:  identity,
		Video: grant,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.apiSecret)
	if err != nil {
		return "", types.NewError(types.ErrSigningFailed, "failed to sign access token").
			WithCause(err).
			WithOperation("token.sign")
	}
	return signed, nil
}

// Validate parses and verifies a presented token. Expired or malformed
// tokens are rejected outright; a non-nil Claims is returned only for a
// token with a valid signature inside its validity window.
func (i *Issuer) Validate(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, types.NewError(types.ErrPermanent, "unexpected signing method: "+t.Method.Alg())
		}
		return i.apiSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, types.NewError(types.ErrPermanent, "invalid or expired token").
			WithCause(err).
			WithOperation("token.Validate")
	}
	if !tok.Valid {
		return nil, types.NewError(types.ErrPermanent, "invalid token claims").
			WithOperation("token.Validate")
	}
	return claims, nil
}

func boolPtr(b bool) *bool { return &b }
