package guests

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/nihanthkethireddy/invite/internal/models"
)

// Sort keys accepted by List.
const (
	SortName      = "name"
	SortPhone     = "phone"
	SortRSVP      = "rsvp"
	SortPlusOnes  = "plusOnes"
	SortScope     = "scope"
	SortUpdatedAt = "updatedAt"
)

// ListOptions filters and orders the admin guest list. Zero values mean
// "no filter" and updatedAt descending.
type ListOptions struct {
	Scope  string // "all", "wedding", or empty for any
	RSVP   string // "yes", "no", "maybe", "none", or empty for any
	Search string // case-insensitive substring of name or phone
	Sort   string
	Asc    bool
}

// List returns the guests matching opts.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]models.Guest, error) {
	all, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, backend("list guests", err)
	}

	search := strings.ToLower(strings.TrimSpace(opts.Search))
	out := make([]models.Guest, 0, len(all))
	for _, g := range all {
		if opts.Scope != "" && string(g.Scope) != opts.Scope {
			continue
		}
		if !matchesRSVP(g.RSVP, opts.RSVP) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(g.Name+" "+g.Phone), search) {
			continue
		}
		out = append(out, g)
	}

	less := lessFunc(opts.Sort)
	sort.SliceStable(out, func(i, j int) bool {
		if opts.Asc {
			return less(out[i], out[j])
		}
		return less(out[j], out[i])
	})
	return out, nil
}

func matchesRSVP(c models.RSVPChoice, filter string) bool {
	switch strings.ToLower(filter) {
	case "", "any":
		return true
	case "none":
		return c == models.RSVPNone
	default:
		return string(c) == strings.ToLower(filter)
	}
}

func lessFunc(key string) func(a, b models.Guest) bool {
	switch key {
	case SortName:
		return func(a, b models.Guest) bool { return foldLess(a.Name, b.Name) }
	case SortPhone:
		return func(a, b models.Guest) bool { return a.Phone < b.Phone }
	case SortRSVP:
		return func(a, b models.Guest) bool { return a.RSVP < b.RSVP }
	case SortPlusOnes:
		return func(a, b models.Guest) bool { return a.PlusOnes < b.PlusOnes }
	case SortScope:
		return func(a, b models.Guest) bool { return a.Scope < b.Scope }
	default:
		return func(a, b models.Guest) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	}
}

func foldLess(a, b string) bool {
	return strings.ToLower(a) < strings.ToLower(b)
}

// Summary computes the per-scope attendance counters. Each guest counts
// toward the scope recorded on it only.
func (s *Service) Summary(ctx context.Context) (models.Summary, error) {
	all, err := s.store.ReadAll(ctx)
	if err != nil {
		return models.Summary{}, backend("summarize guests", err)
	}
	return models.Summary{
		All:     summarize(all, models.ScopeAll),
		Wedding: summarize(all, models.ScopeWedding),
	}, nil
}

func summarize(all []models.Guest, scope models.Scope) models.ScopeSummary {
	var sum models.ScopeSummary
	for _, g := range all {
		if g.Scope != scope {
			continue
		}
		sum.TotalGuests++
		switch g.RSVP {
		case models.RSVPYes:
			sum.Yes++
			sum.TotalPeople += 1 + g.PlusOnes
		case models.RSVPNo:
			sum.No++
		case models.RSVPMaybe:
			sum.Maybe++
		default:
			continue
		}
		sum.TotalRSVPs++
	}
	sum.YesPercent = percent(sum.Yes, sum.TotalRSVPs)
	sum.MaybePercent = percent(sum.Maybe, sum.TotalRSVPs)
	sum.NoPercent = percent(sum.No, sum.TotalRSVPs)
	return sum
}

func percent(v, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(v) / float64(total) * 100))
}
