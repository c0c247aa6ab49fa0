package server

import (
	"context"
	"net/http"
	"time"
)

// NewHTTPServer wraps the handler in an http.Server with production
// timeouts. Read and write timeouts do not apply to hijacked WebSocket
// connections; those are governed by the pump deadlines.
func NewHTTPServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ShutdownHTTPServer stops accepting new connections and waits for in-flight
// requests to finish, or until the timeout elapses.
func ShutdownHTTPServer(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
