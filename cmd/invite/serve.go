package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nihanthkethireddy/invite/internal/api"
	"github.com/nihanthkethireddy/invite/internal/guests"
	"github.com/nihanthkethireddy/invite/internal/handler"
	"github.com/nihanthkethireddy/invite/internal/metrics"
	"github.com/nihanthkethireddy/invite/internal/queue"
	"github.com/nihanthkethireddy/invite/internal/whatsapp"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and the WhatsApp listener when enabled)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides HTTP_ADDR/PORT)")
	return cmd
}

func serve(ctx context.Context, addrOverride string) error {
	q := queue.New()
	m := metrics.New(q.Pending)
	q.OnWait = m.ObserveQueueWait

	a, err := openApp(ctx, false, q, guests.WithRecorder(m))
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.HTTPAddr
	if addrOverride != "" {
		addr = addrOverride
	}

	if a.cfg.WhatsApp.Enabled {
		wa, err := whatsapp.NewService(ctx, a.cfg.WhatsApp, a.log)
		if err != nil {
			return err
		}
		rsvp := handler.NewRSVPHandler(ctx, wa, a.guests, a.log)
		wa.SetMessageHandler(rsvp.HandleMessage)
		defer wa.Disconnect()
		// QR login can take minutes on a fresh device; the API starts meanwhile.
		go startListener(ctx, wa, a.log)
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(a.guests, api.Options{
		Log:           a.log,
		Metrics:       m,
		CORSOrigins:   a.cfg.CORSOrigins,
		AdminPassword: a.cfg.Admin.Password,
		JWTSecret:     a.cfg.Admin.JWTSecret,
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", addr).Str("backend", a.cfg.Backend()).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info().Msg("Shutdown signal received, shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.log.Info().Msg("Server stopped gracefully")
	return nil
}

type listener interface {
	Connect(ctx context.Context) error
}

func startListener(ctx context.Context, wa listener, log zerolog.Logger) bool {
	if err := wa.Connect(ctx); err != nil {
		log.Error().Err(err).Msg("WhatsApp RSVP listener not started")
		return false
	}
	log.Info().Msg("WhatsApp RSVP listener running")
	return true
}
