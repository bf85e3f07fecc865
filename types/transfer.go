package types

import "time"

// TransferState represents the lifecycle state of a transfer session.
// Transitions are one-directional: initiated -> completed or
// initiated -> abandoned. There is no transition out of a terminal state.
type TransferState string

const (
	TransferInitiated TransferState = "initiated"
	TransferCompleted TransferState = "completed"
	TransferAbandoned TransferState = "abandoned"
)

// Terminal reports whether the state permits no further transitions.
func (s TransferState) Terminal() bool {
	return s == TransferCompleted || s == TransferAbandoned
}

// TransferSession is the central record of a warm transfer: the caller room,
// the transient briefing room, and the two agents bound to the handoff.
// The session store holds the only writable reference; everything handed
// out of the store is a copy.
type TransferSession struct {
	ID           string        `json:"transfer_id"`
	CallerRoom   string        `json:"caller_room"`
	BriefingRoom string        `json:"briefing_room"`
	AgentAID     string        `json:"agent_a_id"`
	AgentBID     string        `json:"agent_b_id"`
	State        TransferState `json:"state"`
	Context      string        `json:"call_context,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
}

// Active reports whether the session counts toward live-transfer statistics.
func (s *TransferSession) Active() bool {
	return s.State == TransferInitiated
}

// TransferStats is the aggregate view over all sessions in the store.
type TransferStats struct {
	Active    int `json:"active_transfers"`
	Completed int `json:"completed_transfers"`
	Abandoned int `json:"abandoned_transfers"`
}
