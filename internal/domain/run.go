package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	// RunStatusCancelled is a valid stored value; no transition leads to it yet.
	RunStatusCancelled RunStatus = "cancelled"
)

func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// Run is the record of one orchestrator execution across all candidates and sources.
type Run struct {
	ID               uuid.UUID              `json:"id"`
	RuleID           int64                  `json:"rule_id"`
	Status           RunStatus              `json:"status"`
	StartedAt        *time.Time             `json:"started_at,omitempty"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty"`
	DurationSeconds  int                    `json:"duration_seconds"`
	Sources          []string               `json:"sources"`
	CandidatesTested int                    `json:"candidates_tested"`
	ResultsFound     int                    `json:"results_found"`
	ErrorsCount      int                    `json:"errors_count"`
	LowestTotal      decimal.NullDecimal    `json:"lowest_total"`
	BestQuoteID      *int64                 `json:"best_quote_id,omitempty"`
	ErrorMessage     string                 `json:"error_message,omitempty"`
	ErrorDetails     map[string]interface{} `json:"error_details,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

func NewRun(ruleID int64, sources []string, now time.Time) *Run {
	return &Run{
		ID:        uuid.New(),
		RuleID:    ruleID,
		Status:    RunStatusPending,
		Sources:   append([]string(nil), sources...),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (r *Run) Start(now time.Time) error {
	if r.Status != RunStatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, RunStatusRunning)
	}
	r.Status = RunStatusRunning
	r.StartedAt = &now
	r.UpdatedAt = now
	return nil
}

// Complete records the aggregate statistics and closes the run. best may be nil
// when no quote was found; that is still a completed run.
func (r *Run) Complete(now time.Time, resultsFound int, best *Quote) error {
	if r.Status != RunStatusRunning {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, RunStatusCompleted)
	}
	r.Status = RunStatusCompleted
	r.ResultsFound = resultsFound
	r.LowestTotal = decimal.NullDecimal{}
	r.BestQuoteID = nil
	if best != nil {
		r.LowestTotal = decimal.NewNullDecimal(best.Total)
		id := best.ID
		r.BestQuoteID = &id
	}
	r.finish(now)
	return nil
}

func (r *Run) Fail(now time.Time, cause error, details map[string]interface{}) error {
	if r.Status.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, RunStatusFailed)
	}
	r.Status = RunStatusFailed
	if cause != nil {
		r.ErrorMessage = cause.Error()
	}
	r.ErrorDetails = details
	r.finish(now)
	return nil
}

func (r *Run) finish(now time.Time) {
	r.CompletedAt = &now
	r.UpdatedAt = now
	if r.StartedAt != nil {
		r.DurationSeconds = int(now.Sub(*r.StartedAt).Seconds())
	}
}
