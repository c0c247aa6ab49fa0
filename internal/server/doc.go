// Package server implements the transport layer of the chat relay.
//
// The implementation is organized into specialized files for the WebSocket
// client pumps, session management, routing, origin checks, and HTTP
// handlers to keep the codebase maintainable and testable as the project
// grows.
package server
