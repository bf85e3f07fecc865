// Package transfer implements the warm-transfer session machine and its
// session store. The machine owns the lifecycle of a transfer (initiation,
// active briefing, completion or abandonment), issues scoped tokens for each
// role at each phase, and guarantees the handoff is atomic from the caller's
// perspective. The store is the sole owner of session records and runs the
// periodic reaper that evicts abandoned sessions.
package transfer
