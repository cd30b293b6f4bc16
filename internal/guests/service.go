// Package guests implements the guest and admin operations on top of a
// record store, funnelling every mutation through a single write queue.
package guests

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nihanthkethireddy/invite/internal/models"
	"github.com/nihanthkethireddy/invite/internal/queue"
	"github.com/nihanthkethireddy/invite/internal/storage"
)

// Recorder is told about every saved RSVP.
type Recorder interface {
	RSVPSaved(g models.Guest)
}

// Service is the entry point for guest lookups and mutations.
type Service struct {
	store    storage.Store
	queue    *queue.Queue
	log      zerolog.Logger
	now      func() time.Time
	newID    func() (string, error)
	recorder Recorder
}

// Option customizes a Service
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the guest id generator.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(s *Service) { s.newID = fn }
}

// WithQueue supplies the write queue, e.g. one with metrics hooks attached.
func WithQueue(q *queue.Queue) Option {
	return func(s *Service) { s.queue = q }
}

// WithRecorder registers a Recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// NewService creates the guest service over store.
func NewService(store storage.Store, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   log.With().Str("component", "guests").Logger(),
		now:   time.Now,
		newID: storage.NewGuestID,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.queue == nil {
		s.queue = queue.New()
	}
	return s
}

// Close stops the write queue.
func (s *Service) Close() {
	s.queue.Close()
}

// RSVPInput is a guest's RSVP as received from the boundary.
type RSVPInput struct {
	Name     string
	Phone    string
	RSVP     string
	PlusOnes float64
	Scope    string
}

// AdminInput is an admin add-or-edit. An RSVP other than yes/no/maybe
// clears the response.
type AdminInput struct {
	Name     string
	Phone    string
	RSVP     string
	PlusOnes float64
	Scope    string
}

// LookupByPhone returns the guest with the given phone, or nil.
func (s *Service) LookupByPhone(ctx context.Context, phone string) (*models.Guest, error) {
	canonical := NormalizePhone(phone)
	if canonical == "" {
		return nil, nil
	}
	g, err := s.store.FindByPhone(ctx, canonical)
	if err != nil {
		return nil, backend("lookup guest", err)
	}
	return g, nil
}

// ListAll returns every guest, most recently updated first.
func (s *Service) ListAll(ctx context.Context) ([]models.Guest, error) {
	all, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, backend("list guests", err)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})
	return all, nil
}

// UpsertProfile records a guest's name and phone without touching their RSVP.
func (s *Service) UpsertProfile(ctx context.Context, name, phone string) (*models.Guest, error) {
	return s.upsert(ctx, "save profile", name, phone, func(g *models.Guest, created bool) {})
}

// SaveRSVP creates or updates the guest's response.
func (s *Service) SaveRSVP(ctx context.Context, in RSVPInput) (*models.Guest, error) {
	if err := validateIdentity(in.Name, in.Phone); err != nil {
		return nil, err
	}
	choice, ok := ParseRSVP(in.RSVP)
	if !ok {
		return nil, invalid("rsvp", "Invalid RSVP choice")
	}
	plusOnes := ClampPlusOnes(in.PlusOnes)
	scope := ParseScope(in.Scope)

	g, err := s.upsert(ctx, "save rsvp", in.Name, in.Phone, func(g *models.Guest, created bool) {
		g.RSVP = choice
		g.PlusOnes = plusOnes
		g.Scope = scope
	})
	if err != nil {
		return nil, err
	}
	if s.recorder != nil {
		s.recorder.RSVPSaved(*g)
	}
	return g, nil
}

// AdminUpsert adds or edits a guest, allowing the response to be cleared.
func (s *Service) AdminUpsert(ctx context.Context, in AdminInput) (*models.Guest, error) {
	choice, ok := ParseRSVP(in.RSVP)
	if !ok {
		choice = models.RSVPNone
	}
	plusOnes := ClampPlusOnes(in.PlusOnes)
	scope := ParseScope(in.Scope)

	return s.upsert(ctx, "admin save", in.Name, in.Phone, func(g *models.Guest, created bool) {
		g.RSVP = choice
		g.PlusOnes = plusOnes
		g.Scope = scope
	})
}

// DeleteByID removes a guest. It reports false when no guest has that id.
func (s *Service) DeleteByID(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, nil
	}
	ctx = context.WithoutCancel(ctx)
	deleted, err := queue.Run(s.queue, func() (bool, error) {
		return s.store.DeleteByID(ctx, id)
	})
	if err != nil {
		return false, backend("delete guest", err)
	}
	if deleted {
		s.log.Info().Str("id", id).Msg("Guest deleted")
	}
	return deleted, nil
}

func validateIdentity(name, phone string) error {
	if NormalizePhone(phone) == "" {
		return invalid("phone", "Invalid phone number")
	}
	if strings.TrimSpace(name) == "" {
		return invalid("name", "Name is required")
	}
	return nil
}

// upsert finds the record (phone, name) refers to, or creates one, applies
// mutate and writes it back, all inside the write queue.
func (s *Service) upsert(ctx context.Context, op, name, phone string, mutate func(g *models.Guest, created bool)) (*models.Guest, error) {
	if err := validateIdentity(name, phone); err != nil {
		return nil, err
	}
	canonical := NormalizePhone(phone)
	trimmed := strings.TrimSpace(name)

	// Once queued the write runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	g, err := queue.Run(s.queue, func() (models.Guest, error) {
		all, err := s.store.ReadAll(ctx)
		if err != nil {
			return models.Guest{}, err
		}
		now := s.now().UTC()

		idx := FindMatch(all, canonical, trimmed)
		if idx < 0 {
			id, err := s.newID()
			if err != nil {
				return models.Guest{}, err
			}
			g := models.Guest{
				ID:        id,
				Name:      trimmed,
				Phone:     canonical,
				Scope:     models.ScopeAll,
				CreatedAt: now,
				UpdatedAt: now,
			}
			mutate(&g, true)
			enforceInvariants(&g)
			if err := s.store.Insert(ctx, g); err != nil {
				return models.Guest{}, err
			}
			s.log.Info().Str("id", g.ID).Str("phone", g.Phone).Str("op", op).Msg("Guest created")
			return g, nil
		}

		g := all[idx]
		g.Name = trimmed
		mutate(&g, false)
		g.UpdatedAt = now
		enforceInvariants(&g)
		if err := s.store.Update(ctx, g); err != nil {
			return models.Guest{}, err
		}
		s.log.Info().Str("id", g.ID).Str("phone", g.Phone).Str("op", op).Msg("Guest updated")
		return g, nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("op", op).Msg("Guest write failed")
		return nil, backend(op, err)
	}
	return &g, nil
}

func enforceInvariants(g *models.Guest) {
	if g.RSVP == models.RSVPNo {
		g.PlusOnes = 0
	}
	if g.PlusOnes < 0 {
		g.PlusOnes = 0
	}
	if g.PlusOnes > MaxPlusOnes {
		g.PlusOnes = MaxPlusOnes
	}
	if g.Scope != models.ScopeWedding {
		g.Scope = models.ScopeAll
	}
	if g.UpdatedAt.Before(g.CreatedAt) {
		g.UpdatedAt = g.CreatedAt
	}
}
