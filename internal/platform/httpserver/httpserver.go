// Package httpserver assembles the gateway's public HTTP server.
package httpserver

import (
	"net/http"
	"time"
)

// New returns the server fronting the login and session endpoints. Header
// reads are bounded so a stalled client cannot pin a connection through the
// broker redirect legs; the write path stays untimed because the callback
// handler waits on the broker's code exchange.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
