// Package server implements the HTTP and WebSocket transport of the chat
// server.
//
// It upgrades HTTP requests to WebSocket connections, adapts each connection
// to chat.Conn and hands it to a chat.Hub, which runs the session loop. The
// package also owns configuration loading, the origin allow-list, routing and
// the HTTP server lifecycle.
package server
