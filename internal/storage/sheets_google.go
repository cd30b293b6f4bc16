package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	oauthjwt "golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/nihanthkethireddy/invite/internal/config"
)

// GoogleSheet implements SheetAPI on one tab of a Google spreadsheet.
type GoogleSheet struct {
	svc           *sheets.Service
	spreadsheetID string
	tab           string

	mu      sync.Mutex
	sheetID *int64
}

// NewGoogleSheet connects with the first credential form found in cfg.
func NewGoogleSheet(ctx context.Context, cfg config.SheetsConfig) (*GoogleSheet, error) {
	creds, err := resolveCredentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := sheets.NewService(ctx, creds.option(), option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	tab := cfg.Tab
	if tab == "" {
		tab = "Guests"
	}
	return &GoogleSheet{svc: svc, spreadsheetID: cfg.SpreadsheetID, tab: tab}, nil
}

type credentialKind string

const (
	credentialsInline  credentialKind = "inline-json"
	credentialsKeyPair credentialKind = "email-key"
	credentialsFile    credentialKind = "key-file"
	credentialsDevFile credentialKind = "dev-file"
)

type credentials struct {
	kind  credentialKind
	json  []byte
	email string
	key   []byte
	file  string
}

func resolveCredentials(cfg config.SheetsConfig) (credentials, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return credentials{kind: credentialsInline, json: []byte(cfg.CredentialsJSON)}, nil
	case cfg.ClientEmail != "" && cfg.PrivateKey != "":
		// Keys pasted into env files usually carry literal \n sequences.
		key := strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n")
		return credentials{kind: credentialsKeyPair, email: cfg.ClientEmail, key: []byte(key)}, nil
	case cfg.CredentialsFile != "":
		return credentials{kind: credentialsFile, file: cfg.CredentialsFile}, nil
	case cfg.DevCredentialsFile != "":
		if data, err := os.ReadFile(cfg.DevCredentialsFile); err == nil {
			return credentials{kind: credentialsDevFile, json: data}, nil
		}
	}
	return credentials{}, ErrMissingCredentials
}

func (c credentials) option() option.ClientOption {
	switch c.kind {
	case credentialsKeyPair:
		jc := &oauthjwt.Config{
			Email:      c.email,
			PrivateKey: c.key,
			Scopes:     []string{sheets.SpreadsheetsScope},
			TokenURL:   google.JWTTokenURL,
		}
		return option.WithTokenSource(jc.TokenSource(context.Background()))
	case credentialsFile:
		return option.WithCredentialsFile(c.file)
	default:
		return option.WithCredentialsJSON(c.json)
	}
}

func (g *GoogleSheet) quotedTab() string {
	return "'" + strings.ReplaceAll(g.tab, "'", "''") + "'"
}

// Rows returns every non-trailing row of the tab as strings
func (g *GoogleSheet) Rows(ctx context.Context) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, g.quotedTab()).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	rows := make([][]string, len(resp.Values))
	for i, values := range resp.Values {
		row := make([]string, len(values))
		for j, v := range values {
			row[j] = fmt.Sprint(v)
		}
		rows[i] = row
	}
	return rows, nil
}

// WriteRow overwrites row starting at column A
func (g *GoogleSheet) WriteRow(ctx context.Context, row int, values []string) error {
	rng := fmt.Sprintf("%s!A%d", g.quotedTab(), row)
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rng, valueRange(values)).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// AppendRow adds a row after the last row of the table
func (g *GoogleSheet) AppendRow(ctx context.Context, values []string) error {
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, g.quotedTab()+"!A1", valueRange(values)).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// InsertRows inserts blank rows before the 0-based index at
func (g *GoogleSheet) InsertRows(ctx context.Context, at, count int) error {
	sheetID, err := g.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	return g.batch(ctx, &sheets.Request{
		InsertDimension: &sheets.InsertDimensionRequest{
			Range: rowRange(sheetID, at, at+count),
		},
	})
}

// DeleteRow removes the 1-based row, shifting later rows up
func (g *GoogleSheet) DeleteRow(ctx context.Context, row int) error {
	sheetID, err := g.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	return g.batch(ctx, &sheets.Request{
		DeleteDimension: &sheets.DeleteDimensionRequest{
			Range: rowRange(sheetID, row-1, row),
		},
	})
}

func (g *GoogleSheet) batch(ctx context.Context, reqs ...*sheets.Request) error {
	_, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: reqs,
	}).Context(ctx).Do()
	return err
}

func (g *GoogleSheet) resolveSheetID(ctx context.Context) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sheetID != nil {
		return *g.sheetID, nil
	}

	ss, err := g.svc.Spreadsheets.Get(g.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == g.tab {
			id := sh.Properties.SheetId
			g.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("tab %q not found in spreadsheet", g.tab)
}

func rowRange(sheetID int64, start, end int) *sheets.DimensionRange {
	return &sheets.DimensionRange{
		SheetId:    sheetID,
		Dimension:  "ROWS",
		StartIndex: int64(start),
		EndIndex:   int64(end),
		// The first tab has id 0 and the first row index 0; both would be
		// dropped as empty values otherwise.
		ForceSendFields: []string{"SheetId", "StartIndex"},
	}
}

func valueRange(values []string) *sheets.ValueRange {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return &sheets.ValueRange{Values: [][]interface{}{row}}
}
