package guests

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nihanthkethireddy/invite/internal/models"
	"github.com/nihanthkethireddy/invite/internal/storage"
)

// tab is a spreadsheet tab held in memory.
type tab struct {
	mu   sync.Mutex
	rows [][]string
}

func (m *tab) Rows(context.Context) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (m *tab) WriteRow(_ context.Context, row int, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.rows) < row {
		m.rows = append(m.rows, nil)
	}
	m.rows[row-1] = append([]string(nil), values...)
	return nil
}

func (m *tab) AppendRow(_ context.Context, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, append([]string(nil), values...))
	return nil
}

func (m *tab) InsertRows(_ context.Context, at, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows[:at], append(make([][]string, count), m.rows[at:]...)...)
	return nil
}

func (m *tab) DeleteRow(_ context.Context, row int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row < 1 || row > len(m.rows) {
		return fmt.Errorf("row %d out of range", row)
	}
	m.rows = append(m.rows[:row-1], m.rows[row:]...)
	return nil
}

func (m *tab) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	col := -1
	for i, name := range m.rows[0] {
		if name == "id" {
			col = i
		}
	}
	var out []string
	for _, r := range m.rows[1:] {
		if col >= 0 && col < len(r) {
			out = append(out, r[col])
		}
	}
	return out
}

func newSheetService(t *testing.T, rows ...[]string) (*Service, *tab) {
	t.Helper()
	sheet := &tab{rows: rows}
	clock := &tickClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewService(storage.NewSheetStore(sheet, zerolog.Nop()), zerolog.Nop(), WithClock(clock.Now))
	t.Cleanup(svc.Close)
	return svc, sheet
}

func TestSheetBackedUpdatePromotesRowWithoutID(t *testing.T) {
	ctx := context.Background()
	svc, sheet := newSheetService(t,
		[]string{"name", "phone", "rsvp", "plusOnes"},
		[]string{"Ann", "+1 555 000 0001", "", ""},
		[]string{"Bo", "+15550000002", "maybe", "1"},
	)

	g, err := svc.SaveRSVP(ctx, RSVPInput{Name: "Ann", Phone: "+15550000001", RSVP: "yes", PlusOnes: 2})
	require.NoError(t, err)
	assert.Regexp(t, `^g_[0-9a-z]{8}$`, g.ID)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2, "the hand-entered row is updated, not duplicated")
	ids := sheet.ids()
	require.Len(t, ids, 2)
	assert.Contains(t, ids, g.ID)
	for _, id := range ids {
		assert.Regexp(t, `^g_`, id)
	}

	found, err := svc.LookupByPhone(ctx, "+1 (555) 000-0001")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, g.ID, found.ID)
	assert.Equal(t, models.RSVPYes, found.RSVP)
	assert.Equal(t, 2, found.PlusOnes)
}

func TestSheetBackedDeleteThenUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSheetService(t)

	ann, err := svc.SaveRSVP(ctx, RSVPInput{Name: "Ann", Phone: "5550001", RSVP: "yes"})
	require.NoError(t, err)
	bo, err := svc.SaveRSVP(ctx, RSVPInput{Name: "Bo", Phone: "5550002", RSVP: "no"})
	require.NoError(t, err)
	cy, err := svc.SaveRSVP(ctx, RSVPInput{Name: "Cy", Phone: "5550003", RSVP: "maybe"})
	require.NoError(t, err)

	ok, err := svc.DeleteByID(ctx, ann.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.DeleteByID(ctx, "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)

	// Rows shifted up after the delete; updates still land on the right record.
	updated, err := svc.SaveRSVP(ctx, RSVPInput{Name: "Cy", Phone: "5550003", RSVP: "yes", PlusOnes: 4})
	require.NoError(t, err)
	assert.Equal(t, cy.ID, updated.ID)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	byID := map[string]models.Guest{}
	for _, g := range all {
		byID[g.ID] = g
	}
	assert.Equal(t, models.RSVPNo, byID[bo.ID].RSVP)
	assert.Equal(t, models.RSVPYes, byID[cy.ID].RSVP)
	assert.Equal(t, 4, byID[cy.ID].PlusOnes)
}

func TestSheetBackedConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSheetService(t, append([]string(nil), storage.SheetColumns...))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := svc.SaveRSVP(ctx, RSVPInput{Name: "Dee", Phone: fmt.Sprintf("+1555000%d", i%2), RSVP: "yes", PlusOnes: float64(i % 3)})
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			_, err := svc.LookupByPhone(ctx, "+15550000")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
