// Package api provides OpenAPI/Swagger documentation for the WarmFlow API.
//
// This package contains the OpenAPI 3.0 specification and related documentation
// for the WarmFlow HTTP API.
//
// # API Overview
//
// WarmFlow provides a RESTful API for:
//   - Room access token issuance with role-scoped grants
//   - Room lifecycle management (create, list, delete, participants)
//   - Warm transfer orchestration (initiate, complete, abandon, status)
//   - AI call summaries, suggested questions and sentiment analysis
//   - Health monitoring and metrics
//
// # Authentication
//
// When an API key is configured, endpoints require the X-API-Key header:
//
//	X-API-Key: your-api-key
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
package api
