package transfer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/BaSui01/warmflow/rooms"
	"github.com/BaSui01/warmflow/token"
	"github.com/BaSui01/warmflow/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenIssuer mints role-scoped room tokens for the machine.
type TokenIssuer interface {
	Issue(identity, room string, role token.Role, ttl time.Duration) (string, error)
}

// Config tunes the transfer machine.
type Config struct {
	// TokenTTL is the validity window for tokens issued during a transfer.
	// Zero means the issuer default.
	TokenTTL time.Duration

	// BriefingRoomCapacity caps the briefing room. Exactly the two agents.
	BriefingRoomCapacity int

	// CleanupTimeout bounds best-effort room cleanup after a failed or
	// abandoned transfer.
	CleanupTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.BriefingRoomCapacity == 0 {
		c.BriefingRoomCapacity = 2
	}
	if c.CleanupTimeout == 0 {
		c.CleanupTimeout = 5 * time.Second
	}
}

// InitiateResult is returned to the orchestrator starting a transfer.
type InitiateResult struct {
	TransferID   string              `json:"transfer_id"`
	BriefingRoom string              `json:"briefing_room"`
	State        types.TransferState `json:"state"`
	AgentAToken  string              `json:"agent_a_token"`
	AgentBToken  string              `json:"agent_b_token"`
}

// CompleteResult proves Agent B's authorization to join the caller room.
type CompleteResult struct {
	TransferID  string              `json:"transfer_id"`
	State       types.TransferState `json:"state"`
	CallerRoom  string              `json:"caller_room"`
	AgentBToken string              `json:"agent_b_token"`
}

// Machine drives the transfer session lifecycle. It creates briefing rooms
// through the room facade, issues tokens through the issuer, and records
// every session in the store. All state transitions serialize in the store;
// the machine never performs provider calls while a store lock is held.
type Machine struct {
	cfg     Config
	store   *Store
	rooms   rooms.Service
	tokens  TokenIssuer
	logger  *zap.Logger
	metrics Metrics
}

// NewMachine wires the transfer machine.
func NewMachine(cfg Config, store *Store, roomSvc rooms.Service, tokens TokenIssuer, logger *zap.Logger, metrics Metrics) *Machine {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Machine{
		cfg:     cfg,
		store:   store,
		rooms:   roomSvc,
		tokens:  tokens,
		logger:  logger.With(zap.String("component", "transfer_machine")),
		metrics: metrics,
	}
}

// Initiate starts a warm transfer: it allocates a fresh session id, creates
// the two-party briefing room, issues one agent token per agent into that
// room, and records the session as initiated. The step is atomic: if any
// part fails, nothing is recorded and the briefing room is torn down again.
func (m *Machine) Initiate(ctx context.Context, callerRoom, agentAID, agentBID, callContext string) (*InitiateResult, error) {
	if callerRoom == "" || agentAID == "" || agentBID == "" {
		return nil, types.NewError(types.ErrInvalidRequest,
			"caller_room, agent_a_id and agent_b_id are required").
			WithHTTPStatus(http.StatusBadRequest).
			WithOperation("transfer.Initiate")
	}

	id := uuid.NewString()
	briefingRoom := "transfer_" + id

	if _, err := m.rooms.CreateRoom(ctx, briefingRoom, m.cfg.BriefingRoomCapacity); err != nil {
		return nil, wrapOp(err, "transfer.Initiate",
			fmt.Sprintf("failed to create briefing room for transfer %s", id))
	}

	tokenA, err := m.tokens.Issue(agentAID, briefingRoom, token.RoleAgentA, m.cfg.TokenTTL)
	if err != nil {
		// Roll back the briefing room so no half-initialized transfer survives.
		m.cleanupRoom(briefingRoom)
		return nil, wrapOp(err, "transfer.Initiate",
			fmt.Sprintf("failed to issue agent A token for transfer %s", id))
	}
	tokenB, err := m.tokens.Issue(agentBID, briefingRoom, token.RoleAgentB, m.cfg.TokenTTL)
	if err != nil {
		m.cleanupRoom(briefingRoom)
		return nil, wrapOp(err, "transfer.Initiate",
			fmt.Sprintf("failed to issue agent B token for transfer %s", id))
	}

	sess := &types.TransferSession{
		ID:           id,
		CallerRoom:   callerRoom,
		BriefingRoom: briefingRoom,
		AgentAID:     agentAID,
		AgentBID:     agentBID,
		State:        types.TransferInitiated,
		Context:      callContext,
		CreatedAt:    time.Now().UTC(),
	}
	if err := m.store.Put(sess); err != nil {
		m.cleanupRoom(briefingRoom)
		return nil, err
	}

	m.metrics.RecordTokenIssued(string(token.RoleAgentA))
	m.metrics.RecordTokenIssued(string(token.RoleAgentB))
	m.logger.Info("initiated transfer",
		zap.String("transfer_id", id),
		zap.String("caller_room", callerRoom),
		zap.String("briefing_room", briefingRoom),
		zap.String("agent_a", agentAID),
		zap.String("agent_b", agentBID),
	)
	return &InitiateResult{
		TransferID:   id,
		BriefingRoom: briefingRoom,
		State:        types.TransferInitiated,
		AgentAToken:  tokenA,
		AgentBToken:  tokenB,
	}, nil
}

// Complete finishes the handoff for Agent B. Exactly one of any number of
// concurrent Complete calls on the same session wins the initiated ->
// completed transition; every other caller observes InvalidState. The
// caller-room token is minted only on the winning path, so a token for the
// handoff is issued at most once.
func (m *Machine) Complete(ctx context.Context, id, callerRoom string) (*CompleteResult, error) {
	sess, ok := m.store.Get(id)
	if !ok {
		return nil, types.NewError(types.ErrNotFound,
			fmt.Sprintf("transfer session not found: %s", id)).
			WithHTTPStatus(http.StatusNotFound).
			WithOperation("transfer.Complete")
	}
	if callerRoom != "" && callerRoom != sess.CallerRoom {
		return nil, types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("caller room %q does not match transfer %s", callerRoom, id)).
			WithHTTPStatus(http.StatusBadRequest).
			WithOperation("transfer.Complete")
	}

	sess, err := m.store.Transition(id, types.TransferInitiated, types.TransferCompleted)
	if err != nil {
		return nil, err
	}

	agentBToken, err := m.tokens.Issue(sess.AgentBID, sess.CallerRoom, token.RoleAgentB, m.cfg.TokenTTL)
	if err != nil {
		// The transition is committed; authorization proof failed. Surfaced
		// as Permanent so the operator re-issues rather than re-completes.
		return nil, wrapOp(err, "transfer.Complete",
			fmt.Sprintf("transfer %s completed but token issuance failed", id))
	}
	m.metrics.RecordTokenIssued(string(token.RoleAgentB))
	if sess.CompletedAt != nil {
		m.metrics.RecordTransfer(string(types.TransferCompleted), sess.CompletedAt.Sub(sess.CreatedAt))
	}

	m.logger.Info("completed transfer",
		zap.String("transfer_id", id),
		zap.String("caller_room", sess.CallerRoom),
		zap.String("agent_b", sess.AgentBID),
	)
	return &CompleteResult{
		TransferID:  id,
		State:       types.TransferCompleted,
		CallerRoom:  sess.CallerRoom,
		AgentBToken: agentBToken,
	}, nil
}

// Abandon cancels an in-flight transfer and tears down its briefing room.
func (m *Machine) Abandon(ctx context.Context, id string) (*types.TransferSession, error) {
	sess, err := m.store.Transition(id, types.TransferInitiated, types.TransferAbandoned)
	if err != nil {
		return nil, err
	}

	m.cleanupRoom(sess.BriefingRoom)
	m.metrics.RecordTransfer(string(types.TransferAbandoned), time.Since(sess.CreatedAt))

	m.logger.Info("abandoned transfer",
		zap.String("transfer_id", id),
		zap.String("briefing_room", sess.BriefingRoom),
	)
	return &sess, nil
}

// GetStatus returns a read-only projection of the session.
func (m *Machine) GetStatus(id string) (*types.TransferSession, error) {
	sess, ok := m.store.Get(id)
	if !ok {
		return nil, types.NewError(types.ErrNotFound,
			fmt.Sprintf("transfer session not found: %s", id)).
			WithHTTPStatus(http.StatusNotFound).
			WithOperation("transfer.GetStatus")
	}
	return &sess, nil
}

// Stats exposes the store's aggregate counters.
func (m *Machine) Stats() types.TransferStats {
	return m.store.Stats()
}

// cleanupRoom deletes a briefing room on a detached, bounded context.
// Deletion is idempotent at the facade, so a room that already expired for
// emptiness is not an error.
func (m *Machine) cleanupRoom(room string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.CleanupTimeout)
	defer cancel()
	if err := m.rooms.DeleteRoom(ctx, room); err != nil {
		m.logger.Warn("briefing room cleanup failed",
			zap.String("room", room),
			zap.Error(err),
		)
	}
}

// wrapOp preserves structured errors and annotates everything else.
func wrapOp(err error, op, msg string) error {
	if e, ok := err.(*types.Error); ok {
		if e.Operation == "" {
			e.Operation = op
		}
		return e
	}
	return types.NewError(types.ErrInternalError, msg).WithCause(err).WithOperation(op)
}
