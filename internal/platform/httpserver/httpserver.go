// Package httpserver builds the process's single HTTP listener.
package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"procura/internal/platform/config"
)

const readHeaderTimeout = 5 * time.Second

// New returns a server whose request contexts derive from base, so in-flight
// ops batches see shutdown as cancellation.
func New(base context.Context, cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
}
