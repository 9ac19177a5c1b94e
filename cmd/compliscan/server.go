package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jdziat/compliscan/pkg/mock"
)

func cmdMockServer(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "mock-server")
	addr := fs.String("addr", e.cfg.MockAddr, "listen address")
	phase := fs.Duration("phase", e.cfg.MockPhase, "time a submitted job spends QUEUED and then PROCESSING")
	latency := fs.Duration("latency", 0, "delay added to every backend call")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	store := mock.NewStore(mock.WithPhase(*phase), mock.WithLatency(*latency), mock.WithLogger(e.logger))
	if err := store.Seed(); err != nil {
		return err
	}
	auth, err := mock.NewDefaultAuth(e.cfg.MockJWTSecret)
	if err != nil {
		return err
	}
	handler := mock.NewHandler(store, auth,
		mock.WithAllowedOrigins(e.cfg.CORSAllowedOrigins...),
		mock.WithServerLogger(e.logger),
	)

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		e.logger.Info("mock server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	fmt.Fprintf(e.out, "Mock API on http://%s (user %q, password %q)\n", ln.Addr(), mock.DefaultUsername, mock.DefaultPassword)

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	e.logger.Info("mock server stopped")
	return nil
}
