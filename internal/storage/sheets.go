package storage

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nihanthkethireddy/invite/internal/models"
)

// SheetColumns is the header row the spreadsheet store maintains.
var SheetColumns = []string{"id", "name", "phone", "rsvp", "plusOnes", "scope", "createdAt", "updatedAt"}

// SheetAPI is the handful of remote table operations the store needs.
// Row numbers are 1-based and include the header row.
type SheetAPI interface {
	Rows(ctx context.Context) ([][]string, error)
	WriteRow(ctx context.Context, row int, values []string) error
	AppendRow(ctx context.Context, values []string) error
	// InsertRows inserts count blank rows before the 0-based index at.
	InsertRows(ctx context.Context, at, count int) error
	DeleteRow(ctx context.Context, row int) error
}

// SheetStore keeps one guest per spreadsheet row.
//
// Row numbers shift whenever a row is deleted, so every operation that
// addresses a row resolves its number from a fresh read while holding rowMu.
// Rows without an id are promoted to a durable id before they are returned.
type SheetStore struct {
	api   SheetAPI
	log   zerolog.Logger
	rowMu sync.Mutex
	newID func() (string, error)
}

// NewSheetStore wraps a remote table.
func NewSheetStore(api SheetAPI, log zerolog.Logger) *SheetStore {
	return &SheetStore{api: api, log: log, newID: NewGuestID}
}

type sheetRow struct {
	num       int
	cells     []string
	guest     models.Guest
	confirmed bool
}

type sheetTable struct {
	cols  map[string]int
	width int
	rows  []sheetRow
}

type headerRepair int

const (
	repairNone headerRepair = iota
	repairWrite
	repairInsertAbove
	repairExtend
)

// EnsureSchema makes sure the header row carries every expected column and
// reports whether it had to change anything. It is safe to call repeatedly.
func (s *SheetStore) EnsureSchema(ctx context.Context) (bool, error) {
	s.rowMu.Lock()
	defer s.rowMu.Unlock()
	_, repaired, err := s.ensureSchemaLocked(ctx)
	return repaired, err
}

func (s *SheetStore) ensureSchemaLocked(ctx context.Context) ([][]string, bool, error) {
	rows, err := s.api.Rows(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read sheet: %w", err)
	}

	kind, header := planHeaderRepair(rows)
	switch kind {
	case repairNone:
		return rows, false, nil
	case repairInsertAbove:
		if err := s.api.InsertRows(ctx, 0, 1); err != nil {
			return nil, false, fmt.Errorf("failed to insert header row: %w", err)
		}
	}
	if err := s.api.WriteRow(ctx, 1, header); err != nil {
		return nil, false, fmt.Errorf("failed to write header row: %w", err)
	}
	s.log.Info().Strs("header", header).Msg("Repaired sheet header")

	rows, err = s.api.Rows(ctx)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read sheet: %w", err)
	}
	if again, _ := planHeaderRepair(rows); again != repairNone {
		return nil, true, fmt.Errorf("sheet header still incomplete after repair")
	}
	return rows, true, nil
}

func planHeaderRepair(rows [][]string) (headerRepair, []string) {
	if len(rows) == 0 || isBlank(rows[0]) {
		return repairWrite, append([]string(nil), SheetColumns...)
	}

	present := make(map[string]bool, len(rows[0]))
	for _, cell := range rows[0] {
		present[strings.ToLower(strings.TrimSpace(cell))] = true
	}
	var missing []string
	for _, col := range SheetColumns {
		if !present[strings.ToLower(col)] {
			missing = append(missing, col)
		}
	}

	switch {
	case len(missing) == 0:
		return repairNone, nil
	case len(missing) == len(SheetColumns):
		// No recognizable header: the first row is data.
		return repairInsertAbove, append([]string(nil), SheetColumns...)
	default:
		// A partial header is extended in place rather than replaced by a
		// new row above it, so columns people added by hand keep their place.
		header := append(append([]string(nil), rows[0]...), missing...)
		return repairExtend, header
	}
}

// load reads the table, repairing the header first if needed. With promote
// set, rows without an id get one persisted; callers must hold rowMu then.
func (s *SheetStore) load(ctx context.Context, promote bool) (*sheetTable, error) {
	rows, _, err := s.ensureSchemaLocked(ctx)
	if err != nil {
		return nil, err
	}
	t := parseTable(rows)
	if promote {
		if err := s.promote(ctx, t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (s *SheetStore) promote(ctx context.Context, t *sheetTable) error {
	for i := range t.rows {
		row := &t.rows[i]
		if row.confirmed {
			continue
		}
		id, err := s.newID()
		if err != nil {
			return err
		}
		transient := row.guest.ID
		row.guest.ID = id
		row.cells = t.encode(row.cells, row.guest)
		if err := s.api.WriteRow(ctx, row.num, row.cells); err != nil {
			return fmt.Errorf("failed to persist id for row %d: %w", row.num, err)
		}
		row.confirmed = true
		s.log.Debug().Str("transient", transient).Str("id", id).Msg("Assigned id to sheet row")
	}
	return nil
}

func parseTable(rows [][]string) *sheetTable {
	t := &sheetTable{cols: make(map[string]int)}
	if len(rows) == 0 {
		return t
	}
	for i, cell := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(cell))
		if _, dup := t.cols[key]; !dup && key != "" {
			t.cols[key] = i
		}
	}
	t.width = len(rows[0])

	for i, cells := range rows[1:] {
		if isBlank(cells) {
			continue
		}
		num := i + 2
		g := t.decode(cells)
		row := sheetRow{num: num, cells: cells, guest: g, confirmed: g.ID != ""}
		if !row.confirmed {
			row.guest.ID = transientID(num)
		}
		t.rows = append(t.rows, row)
	}
	return t
}

// transientID names a row by position. It is only meaningful within a single read.
func transientID(row int) string {
	return fmt.Sprintf("row-%d", row)
}

func (t *sheetTable) cell(cells []string, name string) string {
	idx, ok := t.cols[strings.ToLower(name)]
	if !ok || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func (t *sheetTable) decode(cells []string) models.Guest {
	g := models.Guest{
		ID:    t.cell(cells, "id"),
		Name:  t.cell(cells, "name"),
		Phone: t.cell(cells, "phone"),
		RSVP:  models.RSVPChoice(strings.ToLower(t.cell(cells, "rsvp"))),
		Scope: models.Scope(strings.ToLower(t.cell(cells, "scope"))),
	}
	if !g.RSVP.Valid() {
		g.RSVP = models.RSVPNone
	}
	g.PlusOnes = parsePlusOnes(t.cell(cells, "plusOnes"))
	g.CreatedAt = parseTime(t.cell(cells, "createdAt"))
	g.UpdatedAt = parseTime(t.cell(cells, "updatedAt"))
	normalizeRecord(&g)
	return g
}

// encode lays g out over existing, keeping cells of unknown columns.
func (t *sheetTable) encode(existing []string, g models.Guest) []string {
	width := t.width
	if len(existing) > width {
		width = len(existing)
	}
	out := make([]string, width)
	copy(out, existing)

	set := func(name, value string) {
		if idx, ok := t.cols[strings.ToLower(name)]; ok && idx < len(out) {
			out[idx] = value
		}
	}
	set("id", g.ID)
	set("name", g.Name)
	set("phone", g.Phone)
	set("rsvp", string(g.RSVP))
	set("plusOnes", strconv.Itoa(g.PlusOnes))
	set("scope", string(g.Scope))
	set("createdAt", formatTime(g.CreatedAt))
	set("updatedAt", formatTime(g.UpdatedAt))
	return out
}

func (t *sheetTable) find(id string) *sheetRow {
	for i := range t.rows {
		if t.rows[i].confirmed && t.rows[i].guest.ID == id {
			return &t.rows[i]
		}
	}
	return nil
}

func (t *sheetTable) guests() []models.Guest {
	out := make([]models.Guest, 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, r.guest)
	}
	return out
}

func (t *sheetTable) hasUnconfirmed() bool {
	for _, r := range t.rows {
		if !r.confirmed {
			return true
		}
	}
	return false
}

// ReadAll returns every guest row. A plain read takes no lock; header repair
// and id promotion are redone under rowMu against a fresh read.
func (s *SheetStore) ReadAll(ctx context.Context) ([]models.Guest, error) {
	rows, err := s.api.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if kind, _ := planHeaderRepair(rows); kind == repairNone {
		if t := parseTable(rows); !t.hasUnconfirmed() {
			return t.guests(), nil
		}
	}

	s.rowMu.Lock()
	defer s.rowMu.Unlock()
	t, err := s.load(ctx, true)
	if err != nil {
		return nil, err
	}
	return t.guests(), nil
}

// FindByPhone returns the guest with the given canonical phone, or nil
func (s *SheetStore) FindByPhone(ctx context.Context, phone string) (*models.Guest, error) {
	guests, err := s.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return findByPhone(guests, phone), nil
}

// Insert appends a row for guest
func (s *SheetStore) Insert(ctx context.Context, guest models.Guest) error {
	s.rowMu.Lock()
	defer s.rowMu.Unlock()

	t, err := s.load(ctx, false)
	if err != nil {
		return err
	}
	if err := s.api.AppendRow(ctx, t.encode(nil, guest)); err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}

// Update rewrites the row holding guest.ID
func (s *SheetStore) Update(ctx context.Context, guest models.Guest) error {
	s.rowMu.Lock()
	defer s.rowMu.Unlock()

	t, err := s.load(ctx, true)
	if err != nil {
		return err
	}
	row := t.find(guest.ID)
	if row == nil {
		return notFound(guest.ID)
	}
	if err := s.api.WriteRow(ctx, row.num, t.encode(row.cells, guest)); err != nil {
		return fmt.Errorf("failed to update row %d: %w", row.num, err)
	}
	return nil
}

// DeleteByID removes exactly the row holding id
func (s *SheetStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	s.rowMu.Lock()
	defer s.rowMu.Unlock()

	t, err := s.load(ctx, true)
	if err != nil {
		return false, err
	}
	row := t.find(id)
	if row == nil {
		return false, nil
	}
	if err := s.api.DeleteRow(ctx, row.num); err != nil {
		return false, fmt.Errorf("failed to delete row %d: %w", row.num, err)
	}
	return true, nil
}

// Close is a no-op
func (s *SheetStore) Close() error { return nil }

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parsePlusOnes(v string) int {
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Max(0, math.Min(10, math.Floor(f))))
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// brokenSheet fails every call with the same error.
type brokenSheet struct{ err error }

func (b brokenSheet) Rows(context.Context) ([][]string, error) { return nil, b.err }
func (b brokenSheet) WriteRow(context.Context, int, []string) error { return b.err }
func (b brokenSheet) AppendRow(context.Context, []string) error { return b.err }
func (b brokenSheet) InsertRows(context.Context, int, int) error { return b.err }
func (b brokenSheet) DeleteRow(context.Context, int) error { return b.err }
