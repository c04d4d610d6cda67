package combinator

import (
	"github.com/Domenick1991/farehunter/internal/domain"
)

type Statistics struct {
	Total             int            `json:"total_combinations"`
	Traditional       int            `json:"traditional_routes"`
	OpenJaw           int            `json:"open_jaw_routes"`
	ByNights          map[int]int    `json:"by_nights"`
	ByOrigin          map[string]int `json:"by_origin"`
	ByDestination     map[string]int `json:"by_destination"`
	EstimatedSearches int            `json:"estimated_searches"`
}

// Summarize tallies a generated candidate set. sources scales the estimated
// number of searches a run over these candidates would issue.
func Summarize(candidates []domain.Candidate, sources int) Statistics {
	stats := Statistics{
		Total:         len(candidates),
		ByNights:      make(map[int]int),
		ByOrigin:      make(map[string]int),
		ByDestination: make(map[string]int),
	}
	for _, c := range candidates {
		if c.IsOpenJaw() {
			stats.OpenJaw++
		} else {
			stats.Traditional++
		}
		stats.ByNights[c.Nights]++
		stats.ByOrigin[c.Origin]++
		stats.ByDestination[c.Destination]++
	}
	stats.EstimatedSearches = stats.Total * sources
	return stats
}

func Stats(rule *domain.SearchRule, sources int) Statistics {
	return Summarize(Generate(rule), sources)
}
