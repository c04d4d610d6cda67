package domain

import (
	"fmt"
	"time"
)

// Candidate is one concrete date pair and route pair eligible to be priced.
type Candidate struct {
	RuleID        int64     `json:"rule_id"`
	DepartureDate time.Time `json:"departure_date"`
	ReturnDate    time.Time `json:"return_date"`
	Nights        int       `json:"nights"`
	Origin        string    `json:"origin"`
	ReturnOrigin  string    `json:"return_origin"`
	Destination   string    `json:"destination"`
}

// IsOpenJaw reports whether the return leg lands on a different origin.
func (c Candidate) IsOpenJaw() bool {
	return c.ReturnOrigin != c.Origin
}

func (c Candidate) String() string {
	route := fmt.Sprintf("%s-%s", c.Origin, c.Destination)
	if c.IsOpenJaw() {
		route = fmt.Sprintf("%s-%s-%s", c.Origin, c.Destination, c.ReturnOrigin)
	}
	return fmt.Sprintf("%s %s/%s", route, c.DepartureDate.Format(time.DateOnly), c.ReturnDate.Format(time.DateOnly))
}
