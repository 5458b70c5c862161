package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"modelyaml/internal/common/fsutil"
	"modelyaml/internal/httpapi"
	"modelyaml/internal/manager"
)

func newServeCmd(s *settings) *cobra.Command {
	var addr string
	var watch bool
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the resolution HTTP API",
		Example: "  modelyaml serve --addr :8080 --definitions-dir ./models --watch",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				s.cfg.Addr = addr
			}
			if cmd.Flags().Changed("watch") {
				s.cfg.Watch = watch
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ln, err := net.Listen("tcp", s.cfg.Addr)
			if err != nil {
				return err
			}
			return serve(ctx, s, ln)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (defaults MODELYAML_ADDR or :8080)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload definitions when files change")
	return cmd
}

// serve runs the HTTP API on ln until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, s *settings, ln net.Listener) error {
	cfg := s.cfg
	m := s.newManager()
	dir := cfg.DefinitionsDir
	if expanded, err := fsutil.ExpandHome(dir); err == nil && fsutil.IsDir(expanded) {
		if _, err := m.LoadDir(dir); err != nil {
			s.log.Error().Err(err).Msg("initial load failed; /readyz reports loading until a reload succeeds")
		}
	} else {
		s.log.Warn().Str("dir", dir).Msg("definitions directory not found; starting empty")
		// an empty store is a valid starting point for PUT /models
		if _, err := m.Reload(nil); err != nil {
			return err
		}
	}

	httpapi.SetLogger(s.log)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetMaxBatchSize(cfg.MaxBatchSize)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins, cfg.CORSAllowedMethods, cfg.CORSAllowedHeaders)
	httpapi.SetBaseContext(ctx)
	m.SetEventPublisher(logPublisher{s: s})

	if cfg.Watch && fsutil.PathExists(dir) {
		go func() {
			debounce := time.Duration(cfg.WatchDebounceMS) * time.Millisecond
			if err := m.Watch(ctx, dir, debounce); err != nil {
				s.log.Error().Err(err).Msg("watch stopped")
			}
		}()
	}

	srv := &http.Server{Handler: httpapi.NewMux(m), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Str("definitions_dir", dir).Int("definitions", m.Store().Snapshot().Len()).Msg("modelyaml listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Error().Err(err).Msg("graceful shutdown error")
		return err
	}
	s.log.Info().Msg("server stopped")
	return nil
}

// logPublisher writes manager lifecycle events to the debug log.
type logPublisher struct{ s *settings }

func (p logPublisher) Publish(e manager.Event) {
	p.s.log.Debug().Str("event", e.Name).Str("id", e.ID).Str("model", e.ModelID).Fields(e.Fields).Msg("event")
}
