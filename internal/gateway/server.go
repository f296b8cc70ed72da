// Package gateway exposes the comms core over HTTP and WebSocket. The
// controllers here are thin glue: request parsing, error mapping, and the
// socket transport behind the push primitive.
package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// StartOpts holds configuration for the gateway server.
type StartOpts struct {
	Deps Deps
	Port int
	Out  io.Writer
}

// Start launches the gateway HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Deps.DB == nil {
		return fmt.Errorf("gateway: db is required")
	}
	if opts.Deps.Engine == nil {
		return fmt.Errorf("gateway: engine is required")
	}
	if opts.Deps.Hub == nil {
		return fmt.Errorf("gateway: hub is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	registerRoutes(router, opts.Deps)

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Gateway listening on %s\n", addr)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway: %w", err)
	}
	return nil
}
