// Package types defines the shared data model and error taxonomy for warmflow:
// transfer sessions, room and participant records, and the structured Error
// type used across all components.
package types
