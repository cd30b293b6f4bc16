package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Guest represents an invited guest and their latest RSVP
type Guest struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	RSVP      RSVPChoice `json:"rsvp"`
	PlusOnes  int        `json:"plusOnes"`
	Scope     Scope      `json:"scope"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// RSVPChoice is the attendance answer. The zero value means no response yet.
type RSVPChoice string

const (
	RSVPNone  RSVPChoice = ""
	RSVPYes   RSVPChoice = "yes"
	RSVPNo    RSVPChoice = "no"
	RSVPMaybe RSVPChoice = "maybe"
)

// Valid reports whether c is one of yes, no or maybe.
func (c RSVPChoice) Valid() bool {
	switch c {
	case RSVPYes, RSVPNo, RSVPMaybe:
		return true
	}
	return false
}

// MarshalJSON writes a missing response as null.
func (c RSVPChoice) MarshalJSON() ([]byte, error) {
	if c == RSVPNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(c))
}

// UnmarshalJSON accepts null and drops unknown values.
func (c *RSVPChoice) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = RSVPNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	choice := RSVPChoice(strings.ToLower(strings.TrimSpace(s)))
	if !choice.Valid() {
		choice = RSVPNone
	}
	*c = choice
	return nil
}

// Scope selects which part of the event a response applies to
type Scope string

const (
	ScopeAll     Scope = "all"
	ScopeWedding Scope = "wedding"
)

// Scopes lists every scope in display order.
var Scopes = []Scope{ScopeAll, ScopeWedding}

// Summary aggregates attendance per scope for the admin dashboard
type Summary struct {
	All     ScopeSummary `json:"all"`
	Wedding ScopeSummary `json:"wedding"`
}

// For returns the counters of one scope.
func (s Summary) For(scope Scope) ScopeSummary {
	if scope == ScopeWedding {
		return s.Wedding
	}
	return s.All
}

// Label is the scope's display name.
func (s Scope) Label() string {
	if s == ScopeWedding {
		return "Wedding"
	}
	return "All events"
}

// ScopeSummary holds the counters for a single scope
type ScopeSummary struct {
	TotalGuests  int `json:"totalGuests"`
	TotalRSVPs   int `json:"totalRsvps"`
	Yes          int `json:"yes"`
	No           int `json:"no"`
	Maybe        int `json:"maybe"`
	TotalPeople  int `json:"totalPeople"`
	YesPercent   int `json:"yesPercent"`
	MaybePercent int `json:"maybePercent"`
	NoPercent    int `json:"noPercent"`
}
