// Package storage persists the guest collection to one of several
// interchangeable backends.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nihanthkethireddy/invite/internal/config"
	"github.com/nihanthkethireddy/invite/internal/models"
)

var (
	// ErrNotFound is returned by Update when no record carries the given id.
	ErrNotFound = errors.New("guest not found")
	// ErrMissingCredentials is returned when the spreadsheet backend is
	// selected but no service account credentials can be found.
	ErrMissingCredentials = errors.New("missing spreadsheet credentials")
)

// Store is the contract every backend implements. Ordering of ReadAll is
// unspecified.
type Store interface {
	ReadAll(ctx context.Context) ([]models.Guest, error)
	// FindByPhone expects a canonical phone and returns nil when absent.
	FindByPhone(ctx context.Context, phone string) (*models.Guest, error)
	Insert(ctx context.Context, guest models.Guest) error
	Update(ctx context.Context, guest models.Guest) error
	DeleteByID(ctx context.Context, id string) (bool, error)
	Close() error
}

// Open builds the backend selected by cfg.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Store, error) {
	log = log.With().Str("component", "storage").Logger()

	switch cfg.Backend() {
	case "sheets":
		api, err := NewGoogleSheet(ctx, cfg.Sheets)
		if err != nil {
			if errors.Is(err, ErrMissingCredentials) {
				// Surface the problem on first use rather than refusing to start.
				log.Warn().Err(err).Msg("Spreadsheet backend selected without credentials")
				return NewSheetStore(brokenSheet{err: err}, log), nil
			}
			return nil, err
		}
		log.Info().Str("spreadsheet", cfg.Sheets.SpreadsheetID).Str("tab", cfg.Sheets.Tab).Msg("Using spreadsheet store")
		return NewSheetStore(api, log), nil
	case "sqlite":
		log.Info().Str("path", cfg.Store.SQLitePath).Msg("Using sqlite store")
		return NewSQLiteStore(cfg.Store.SQLitePath)
	default:
		log.Info().Str("path", cfg.Store.FilePath).Msg("Using file store")
		return NewFileStore(cfg.Store.FilePath, cfg.Store.SeedPath), nil
	}
}

func findByPhone(guests []models.Guest, phone string) *models.Guest {
	for _, g := range guests {
		if g.Phone == phone {
			g := g
			return &g
		}
	}
	return nil
}

// normalizeRecord repairs values edited by hand in the backing store.
func normalizeRecord(g *models.Guest) {
	g.Phone = canonicalPhone(g.Phone)
	if g.Scope != models.ScopeWedding {
		g.Scope = models.ScopeAll
	}
	if g.RSVP == models.RSVPNo {
		g.PlusOnes = 0
	}
}

// canonicalPhone keeps digits and a leading plus sign.
func canonicalPhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		if r >= '0' && r <= '9' || r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	if b.String() == "+" {
		return ""
	}
	return b.String()
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
