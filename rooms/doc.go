// Package rooms abstracts room lifecycle operations against the external
// media provider. The facade normalizes provider responses into the core's
// room-state view and translates provider failures into the service error
// taxonomy (NotFound vs Transient vs Permanent); the rest of the core never
// sees provider-shaped payloads or raw HTTP errors.
package rooms
