package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nihanthkethireddy/invite/internal/models"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "invite version "+Version)
}

func TestPrintGuests(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printGuests(&out, nil))
	assert.Equal(t, "No guests found.\n", out.String())

	out.Reset()
	at := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, printGuests(&out, []models.Guest{
		{ID: "g_abc12345", Name: "Ann", Phone: "+15551234", RSVP: models.RSVPYes, PlusOnes: 2, Scope: models.ScopeAll, UpdatedAt: at},
		{ID: "g_def67890", Name: "Bo", Phone: "+15556789", Scope: models.ScopeWedding, UpdatedAt: at},
	}))
	text := out.String()
	assert.Contains(t, text, "g_abc12345")
	assert.Contains(t, text, "2026-06-01 09:30")
	assert.Regexp(t, `Bo\s+\+15556789\s+-\s+0\s+wedding`, text)
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer
	printSummary(&out, models.Summary{All: models.ScopeSummary{TotalGuests: 4, TotalRSVPs: 2, Yes: 1, No: 1, TotalPeople: 3, YesPercent: 50, NoPercent: 50}})
	assert.Contains(t, out.String(), "All events: 4 guests, 2 responses, 3 attending in total")
	assert.Contains(t, out.String(), "yes 1 (50%)")
	assert.Contains(t, out.String(), "Wedding: 0 guests")
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	assert.Equal(t, "info", newLogger("bogus", true).GetLevel().String())
	assert.Equal(t, "debug", newLogger("DEBUG", false).GetLevel().String())
}

type stubListener struct{ err error }

func (s stubListener) Connect(context.Context) error { return s.err }

func TestStartListenerReportsLoginFailure(t *testing.T) {
	var logs bytes.Buffer
	log := zerolog.New(&logs)

	assert.False(t, startListener(context.Background(), stubListener{err: errors.New(`QR login ended with "timeout"`)}, log))
	assert.Contains(t, logs.String(), "listener not started")
	assert.NotContains(t, logs.String(), "listener running")

	logs.Reset()
	assert.True(t, startListener(context.Background(), stubListener{}, log))
	assert.Contains(t, logs.String(), "WhatsApp RSVP listener running")
}
