// Package summary builds AI-generated call summaries, suggested follow-up
// questions and sentiment analyses for warm transfers. Summaries and question
// generation surface provider failures to the caller; sentiment analysis is
// advisory and degrades to keyword matching when the model is unavailable,
// with the result tagged by source so callers can tell model output from the
// fallback. Generated summaries are kept in a TTL-evicted in-memory store.
package summary
