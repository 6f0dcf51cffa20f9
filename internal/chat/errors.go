// Package chat implements the session and broadcast engine of the chat
// server: the user directory, the flood limiter, message routing, moderation
// commands and the per-connection session loop.
package chat

import "errors"

var (
	// ErrNameTaken is returned when a username is already held by a live session.
	ErrNameTaken = errors.New("username already taken")
	// ErrNotFound is returned when a target username has no live session.
	ErrNotFound = errors.New("user not found")
	// ErrRateLimited is returned when a user sends chat faster than the configured interval.
	ErrRateLimited = errors.New("sending too fast")
	// ErrMuted is returned when a muted user attempts to chat.
	ErrMuted = errors.New("user is muted")
	// ErrMalformedFrame is returned when an inbound frame lacks an expected field.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrConnectionClosed is returned by connections that have been closed.
	ErrConnectionClosed = errors.New("connection closed")
)
