// Package llm is a minimal chat-completion client for OpenAI-compatible
// inference APIs. Both supported providers (openai, groq) speak the same
// wire format, so a single client covers them; only the base URL, model
// and API key differ. The client is used by the summary builder and never
// called on the transfer hot path.
package llm
