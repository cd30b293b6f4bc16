// Command invite runs the RSVP backend and its admin tooling.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nihanthkethireddy/invite/internal/config"
	"github.com/nihanthkethireddy/invite/internal/guests"
	"github.com/nihanthkethireddy/invite/internal/queue"
	"github.com/nihanthkethireddy/invite/internal/storage"
)

var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

const appName = "invite"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Event invitation RSVP backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(serveCmd(), guestsCmd(), whatsappCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})
	return cmd
}

// newLogger builds the process logger. Console output is for humans at a
// terminal; the server logs JSON.
func newLogger(level string, console bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if console {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(lvl).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Str("app", appName).Logger()
}

// app bundles what every command needs.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	store  storage.Store
	guests *guests.Service
}

func openApp(ctx context.Context, console bool, q *queue.Queue, opts ...guests.Option) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg.LogLevel, console)

	store, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if sheet, ok := store.(*storage.SheetStore); ok {
		if _, err := sheet.EnsureSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("Could not verify spreadsheet header")
		}
	}

	if q == nil {
		q = queue.New()
	}
	opts = append([]guests.Option{guests.WithQueue(q)}, opts...)
	return &app{
		cfg:    cfg,
		log:    log,
		store:  store,
		guests: guests.NewService(store, log, opts...),
	}, nil
}

func (a *app) Close() {
	a.guests.Close()
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("Closing store")
	}
}
