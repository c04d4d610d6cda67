package report

import (
	"sort"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/shopspring/decimal"
)

// Average is the mean price per person for one origin or destination.
type Average struct {
	Code  string          `json:"code"`
	Price decimal.Decimal `json:"price"`
}

// Stats summarizes the per-person prices of a run.
type Stats struct {
	Count            int             `json:"count"`
	Min              decimal.Decimal `json:"min"`
	Max              decimal.Decimal `json:"max"`
	Avg              decimal.Decimal `json:"avg"`
	Range            decimal.Decimal `json:"range"`
	VariationPercent decimal.Decimal `json:"variation_percent"`
	ByOrigin         []Average       `json:"by_origin"`
	ByDestination    []Average       `json:"by_destination"`
}

var hundred = decimal.NewFromInt(100)

// Compute aggregates quotes with a positive price. Groups are ordered by code.
func Compute(quotes []domain.Quote) Stats {
	var (
		st       Stats
		sum      decimal.Decimal
		byOrigin = map[string][]decimal.Decimal{}
		byDest   = map[string][]decimal.Decimal{}
	)
	for _, q := range quotes {
		p := q.PricePerPerson
		if !p.IsPositive() {
			continue
		}
		if st.Count == 0 || p.LessThan(st.Min) {
			st.Min = p
		}
		if st.Count == 0 || p.GreaterThan(st.Max) {
			st.Max = p
		}
		st.Count++
		sum = sum.Add(p)
		byOrigin[q.Origin] = append(byOrigin[q.Origin], p)
		byDest[q.Destination] = append(byDest[q.Destination], p)
	}
	if st.Count == 0 {
		return st
	}

	st.Avg = sum.Div(decimal.NewFromInt(int64(st.Count)))
	st.Range = st.Max.Sub(st.Min)
	st.VariationPercent = st.Range.Div(st.Min).Mul(hundred)
	st.ByOrigin = averages(byOrigin)
	st.ByDestination = averages(byDest)
	return st
}

func averages(groups map[string][]decimal.Decimal) []Average {
	out := make([]Average, 0, len(groups))
	for code, prices := range groups {
		out = append(out, Average{Code: code, Price: decimal.Avg(prices[0], prices[1:]...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// BestDestination is the destination with the lowest average; ties go to the
// lexicographically smaller code.
func (s Stats) BestDestination() (Average, bool) {
	if len(s.ByDestination) == 0 {
		return Average{}, false
	}
	best := s.ByDestination[0]
	for _, a := range s.ByDestination[1:] {
		if a.Price.LessThan(best.Price) {
			best = a
		}
	}
	return best, true
}
