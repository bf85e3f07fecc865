// Package token issues role-scoped, time-bounded access tokens for media
// rooms. Tokens are HS256 JWTs carrying a video grant in the shape the media
// provider expects; they are never stored server-side, and validity is a pure
// function of signature and expiry at presentation time.
package token
