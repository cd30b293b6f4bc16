package guests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nihanthkethireddy/invite/internal/models"
	"github.com/nihanthkethireddy/invite/internal/storage"
)

// tickClock advances one second on every call.
type tickClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type countingRecorder struct {
	mu    sync.Mutex
	saved []models.Guest
}

func (r *countingRecorder) RSVPSaved(g models.Guest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, g)
}

func newTestService(t *testing.T, opts ...Option) (*Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guests.json")
	clock := &tickClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	svc := NewService(storage.NewFileStore(path, ""), zerolog.Nop(), opts...)
	t.Cleanup(svc.Close)
	return svc, path
}

func TestSaveRSVPCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	first, err := svc.SaveRSVP(ctx, RSVPInput{Name: "Ann Lee", Phone: "+1 (555) 123-4567", RSVP: "yes", PlusOnes: 2, Scope: "all"})
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", first.Phone)
	assert.Equal(t, models.RSVPYes, first.RSVP)
	assert.Equal(t, 2, first.PlusOnes)
	assert.Regexp(t, `^g_[0-9a-z]{8}$`, first.ID)
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)

	second, err := svc.SaveRSVP(ctx, RSVPInput{Name: "Ann Lee", Phone: "+1 555.123.4567", RSVP: "no", PlusOnes: 5, Scope: "all"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.RSVPNo, second.RSVP)
	assert.Equal(t, 0, second.PlusOnes, "declining drops plus-ones")
	assert.True(t, second.CreatedAt.Equal(first.CreatedAt))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSaveRSVPNewRecordTakesRequestScope(t *testing.T) {
	svc, _ := newTestService(t)
	g, err := svc.SaveRSVP(context.Background(), RSVPInput{Name: "Bo", Phone: "5550001", RSVP: "maybe", Scope: "wedding"})
	require.NoError(t, err)
	assert.Equal(t, models.ScopeWedding, g.Scope)

	g, err = svc.SaveRSVP(context.Background(), RSVPInput{Name: "Cy", Phone: "5550002", RSVP: "maybe", Scope: "reception"})
	require.NoError(t, err)
	assert.Equal(t, models.ScopeAll, g.Scope)
}

func TestPlusOnesClamped(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	tests := []struct {
		rsvp string
		in   float64
		want int
	}{
		{"yes", -5, 0},
		{"yes", 99, 10},
		{"maybe", 3.7, 3},
		{"no", 5, 0},
	}
	for i, tt := range tests {
		g, err := svc.SaveRSVP(ctx, RSVPInput{Name: "Guest", Phone: fmt.Sprintf("+1555000%04d", i), RSVP: tt.rsvp, PlusOnes: tt.in})
		require.NoError(t, err)
		assert.Equal(t, tt.want, g.PlusOnes, "rsvp=%s plusOnes=%v", tt.rsvp, tt.in)
	}
}

func TestValidationErrors(t *testing.T) {
	ctx := context.Background()
	svc, path := newTestService(t)

	tests := []struct {
		name  string
		in    RSVPInput
		field string
		msg   string
	}{
		{"empty phone", RSVPInput{Name: "Ann", Phone: "", RSVP: "yes"}, "phone", "Invalid phone number"},
		{"punctuation only phone", RSVPInput{Name: "Ann", Phone: "(+) --", RSVP: "yes"}, "phone", "Invalid phone number"},
		{"blank name", RSVPInput{Name: "   ", Phone: "5551234", RSVP: "yes"}, "name", "Name is required"},
		{"bad rsvp", RSVPInput{Name: "Ann", Phone: "5551234", RSVP: "perhaps"}, "rsvp", "Invalid RSVP choice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SaveRSVP(ctx, tt.in)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, tt.msg, ve.Message)
			assert.True(t, IsValidation(err))
		})
	}

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "rejected requests must not touch the store")
}

func TestUpsertProfileKeepsRSVP(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.UpsertProfile(ctx, "Dee", "+44 20 7946 0000")
	require.NoError(t, err)
	assert.Equal(t, models.RSVPNone, created.RSVP)
	assert.Equal(t, models.ScopeAll, created.Scope)

	_, err = svc.SaveRSVP(ctx, RSVPInput{Name: "Dee", Phone: "+442079460000", RSVP: "yes", PlusOnes: 1, Scope: "wedding"})
	require.NoError(t, err)

	again, err := svc.UpsertProfile(ctx, "  Dee  ", "+44 20 7946 0000")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "Dee", again.Name)
	assert.Equal(t, models.RSVPYes, again.RSVP)
	assert.Equal(t, 1, again.PlusOnes)
	assert.Equal(t, models.ScopeWedding, again.Scope)
}

func TestPhoneOnlyMatchRenames(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	a, err := svc.UpsertProfile(ctx, "Eve", "5557777")
	require.NoError(t, err)
	b, err := svc.UpsertProfile(ctx, "Evelyn", "555-7777")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, "Evelyn", b.Name)
}

func TestAdminUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	in := AdminInput{Name: "Fay", Phone: "+1 555 888 9999", RSVP: "maybe", PlusOnes: 2, Scope: "wedding"}

	first, err := svc.AdminUpsert(ctx, in)
	require.NoError(t, err)
	second, err := svc.AdminUpsert(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.RSVP, second.RSVP)
	assert.Equal(t, first.PlusOnes, second.PlusOnes)
	assert.Equal(t, first.Scope, second.Scope)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	cleared, err := svc.AdminUpsert(ctx, AdminInput{Name: "Fay", Phone: in.Phone, RSVP: "unknown"})
	require.NoError(t, err)
	assert.Equal(t, models.RSVPNone, cleared.RSVP)
	assert.Equal(t, models.ScopeAll, cleared.Scope)

	_, err = svc.AdminUpsert(ctx, AdminInput{Name: "", Phone: in.Phone})
	assert.True(t, IsValidation(err))
}

func TestLookupByPhoneEquivalentFormats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.SaveRSVP(ctx, RSVPInput{Name: "Gus", Phone: "+1 (555) 321-0000", RSVP: "yes"})
	require.NoError(t, err)

	for _, phone := range []string{"+15553210000", " +1 555 321 0000 ", "+1-555-321-0000"} {
		g, err := svc.LookupByPhone(ctx, phone)
		require.NoError(t, err)
		require.NotNil(t, g, phone)
		assert.Equal(t, "Gus", g.Name)
	}

	g, err := svc.LookupByPhone(ctx, "+15550000000")
	require.NoError(t, err)
	assert.Nil(t, g)

	g, err = svc.LookupByPhone(ctx, "---")
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestDeleteByID(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	g, err := svc.UpsertProfile(ctx, "Hal", "5551111")
	require.NoError(t, err)

	ok, err := svc.DeleteByID(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.DeleteByID(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := svc.LookupByPhone(ctx, "5551111")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestConcurrentSavesSerialize(t *testing.T) {
	ctx := context.Background()
	svc, path := newTestService(t)

	const n = 25
	var wg sync.WaitGroup
	results := make([]*models.Guest, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.SaveRSVP(ctx, RSVPInput{Name: "Ivy", Phone: "+1 555 000 1234", RSVP: "yes", PlusOnes: float64(i % (MaxPlusOnes + 1))})
		}(i)
	}
	wg.Wait()

	// The clock ticks once per queued unit, so the latest updatedAt marks
	// the call that ran last.
	last := -1
	seen := make(map[time.Time]bool, n)
	for i := range results {
		require.NoError(t, errs[i])
		assert.False(t, seen[results[i].UpdatedAt], "two writes observed the same clock tick")
		seen[results[i].UpdatedAt] = true
		if last < 0 || results[i].UpdatedAt.After(results[last].UpdatedAt) {
			last = i
		}
	}

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, results[last].PlusOnes, all[0].PlusOnes)
	assert.True(t, all[0].UpdatedAt.Equal(results[last].UpdatedAt))
	assert.Equal(t, last%(MaxPlusOnes+1), all[0].PlusOnes)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc struct {
		Guests []models.Guest `json:"guests"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc.Guests, 1)
}

func TestCanceledCallerStillCompletesWrite(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g, err := svc.UpsertProfile(ctx, "Jo", "5552222")
	require.NoError(t, err)

	found, err := svc.LookupByPhone(context.Background(), "5552222")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, g.ID, found.ID)
}

type failingStore struct{ storage.Store }

func (failingStore) ReadAll(context.Context) ([]models.Guest, error) {
	return nil, errors.New("sheet unavailable")
}

func (failingStore) FindByPhone(context.Context, string) (*models.Guest, error) {
	return nil, errors.New("sheet unavailable")
}

func TestBackendErrorsWrapped(t *testing.T) {
	svc := NewService(failingStore{}, zerolog.Nop())
	defer svc.Close()

	_, err := svc.SaveRSVP(context.Background(), RSVPInput{Name: "K", Phone: "1", RSVP: "yes"})
	var be *BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "save rsvp", be.Op)
	assert.False(t, IsValidation(err))

	_, err = svc.LookupByPhone(context.Background(), "1")
	require.True(t, errors.As(err, &be))
	assert.Contains(t, err.Error(), "sheet unavailable")
}

func TestRecorderSeesSavedRSVPs(t *testing.T) {
	rec := &countingRecorder{}
	svc, _ := newTestService(t, WithRecorder(rec))

	_, err := svc.SaveRSVP(context.Background(), RSVPInput{Name: "Lu", Phone: "5553333", RSVP: "yes"})
	require.NoError(t, err)
	_, err = svc.UpsertProfile(context.Background(), "Lu", "5553333")
	require.NoError(t, err)

	require.Len(t, rec.saved, 1)
	assert.Equal(t, models.RSVPYes, rec.saved[0].RSVP)
}

func TestNationalFormIsADifferentPhone(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.SaveRSVP(ctx, RSVPInput{Name: "Ann Lee", Phone: "+1 (555) 123-4567", RSVP: "yes", PlusOnes: 2, Scope: "all"})
	require.NoError(t, err)
	g, err := svc.SaveRSVP(ctx, RSVPInput{Name: "Ann Lee", Phone: "555-123-4567", RSVP: "maybe", PlusOnes: 1, Scope: "all"})
	require.NoError(t, err)
	assert.Equal(t, "5551234567", g.Phone)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2, "no country code means a different canonical phone")
}
