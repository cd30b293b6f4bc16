package guests

import (
	"math"
	"strings"

	"github.com/nihanthkethireddy/invite/internal/models"
)

// MaxPlusOnes is the largest party size a guest may bring along.
const MaxPlusOnes = 10

// NormalizePhone keeps digits and a leading plus sign.
//
//	"+1 (555) 123-4567" -> "+15551234567"
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	b.Grow(len(phone))
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "+" {
		return ""
	}
	return out
}

// NormalizeName folds a name for comparison only; stored names keep their
// original form.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// FindMatch returns the index of the record a request for (phone, name)
// refers to, or -1. An exact phone and name match wins; otherwise any record
// with the same phone matches, so phone is the effective primary key.
func FindMatch(guests []models.Guest, phone, name string) int {
	phone = NormalizePhone(phone)
	name = NormalizeName(name)
	fallback := -1
	for i, g := range guests {
		if g.Phone != phone {
			continue
		}
		if NormalizeName(g.Name) == name {
			return i
		}
		if fallback < 0 {
			fallback = i
		}
	}
	return fallback
}

// ClampPlusOnes floors n and clamps it to [0, MaxPlusOnes]. NaN and
// infinities become 0.
func ClampPlusOnes(n float64) int {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	n = math.Floor(n)
	if n < 0 {
		return 0
	}
	if n > MaxPlusOnes {
		return MaxPlusOnes
	}
	return int(n)
}

// ParseRSVP accepts yes, no or maybe in any case.
func ParseRSVP(s string) (models.RSVPChoice, bool) {
	c := models.RSVPChoice(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

// ParseScope maps anything other than "wedding" to the whole event.
func ParseScope(s string) models.Scope {
	if strings.EqualFold(strings.TrimSpace(s), string(models.ScopeWedding)) {
		return models.ScopeWedding
	}
	return models.ScopeAll
}
