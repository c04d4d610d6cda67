package combinator

import (
	"time"

	"github.com/Domenick1991/farehunter/internal/domain"
)

type DatePair struct {
	Departure time.Time
	Return    time.Time
	Nights    int
}

type Route struct {
	Origin       string
	ReturnOrigin string
	Destination  string
}

// Generate expands a rule into every candidate it admits: each valid date pair
// crossed with each route pair. The output order is stable for a given rule.
func Generate(rule *domain.SearchRule) []domain.Candidate {
	dates := DatePairs(rule)
	routes := RoutePairs(rule)

	candidates := make([]domain.Candidate, 0, len(dates)*len(routes))
	for _, d := range dates {
		for _, r := range routes {
			candidates = append(candidates, domain.Candidate{
				RuleID:        rule.ID,
				DepartureDate: d.Departure,
				ReturnDate:    d.Return,
				Nights:        d.Nights,
				Origin:        r.Origin,
				ReturnOrigin:  r.ReturnOrigin,
				Destination:   r.Destination,
			})
		}
	}
	return candidates
}

// DatePairs lists departure/return pairs in departure-then-return ascending order.
func DatePairs(rule *domain.SearchRule) []DatePair {
	var pairs []DatePair
	for dep := domain.Day(rule.Departure.From); !dep.After(domain.Day(rule.Departure.To)); dep = dep.AddDate(0, 0, 1) {
		for ret := domain.Day(rule.Return.From); !ret.After(domain.Day(rule.Return.To)); ret = ret.AddDate(0, 0, 1) {
			if !ValidDates(rule, dep, ret) {
				continue
			}
			pairs = append(pairs, DatePair{Departure: dep, Return: ret, Nights: domain.DaysBetween(dep, ret)})
		}
	}
	return pairs
}

// ValidDates checks a pair against every bound of the rule, including the windows
// the caller may have iterated over already.
func ValidDates(rule *domain.SearchRule, dep, ret time.Time) bool {
	if !ret.After(dep) {
		return false
	}
	if !rule.Nights.Contains(domain.DaysBetween(dep, ret)) {
		return false
	}
	return rule.Departure.Contains(dep) && rule.Return.Contains(ret)
}

// RoutePairs emits, per origin and destination, the traditional route followed by
// one open-jaw variant for each other origin, all in declaration order.
func RoutePairs(rule *domain.SearchRule) []Route {
	var routes []Route
	for _, origin := range rule.Origins {
		for _, dest := range rule.Destinations {
			routes = append(routes, Route{Origin: origin, ReturnOrigin: origin, Destination: dest})
			for _, alt := range rule.Origins {
				if alt == origin {
					continue
				}
				routes = append(routes, Route{Origin: origin, ReturnOrigin: alt, Destination: dest})
			}
		}
	}
	return routes
}
