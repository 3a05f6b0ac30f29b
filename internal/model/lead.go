// Package model holds the shared domain types for the dialer admin tool:
// leads, blacklist entries, dialer control values, and call outcomes.
package model

import (
	"time"
)

// DialerStatus is the on/off switch the external dialer engine polls.
type DialerStatus string

const (
	StatusOn  DialerStatus = "AAN"
	StatusOff DialerStatus = "UIT"
)

// LeadStatus represents the queue state of a lead.
type LeadStatus string

const (
	LeadStatusNew LeadStatus = "new"
)

// CallResult is a terminal outcome written by the external dialer engine.
// The engine owns these strings; they are collected here so the reset and
// KPI queries share one contract instead of scattered literals.
type CallResult string

const (
	ResultSuccess          CallResult = "SUCCES"
	ResultFailed           CallResult = "MISLUKT"
	ResultNoAnswer         CallResult = "No Answer"
	ResultBusy             CallResult = "Busy"
	ResultEngineFailed     CallResult = "Failed"
	ResultCustomerNoAnswer CallResult = "customer-did-not-answer"
)

// RetryableResults lists the outcomes that "reset failed" puts back in the
// queue. Success is deliberately absent.
var RetryableResults = []CallResult{
	ResultNoAnswer,
	ResultBusy,
	ResultEngineFailed,
	ResultFailed,
	ResultCustomerNoAnswer,
}

// Lead is a phone number queued for an outbound call attempt, keyed on the
// canonical phone. OriginalData preserves the imported row verbatim so the
// export can reproduce the source columns.
type Lead struct {
	Phone        string            `json:"phone"`
	Name         string            `json:"name"`
	Status       LeadStatus        `json:"status"`
	Result       *CallResult       `json:"result,omitempty"`
	OriginalData map[string]string `json:"original_data,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	EndedAt      *time.Time        `json:"ended_at,omitempty"`
	Duration     *int              `json:"duration,omitempty"`
	Recording    string            `json:"recording,omitempty"`
}

// BlacklistEntry is a phone number excluded from calling regardless of
// lead status.
type BlacklistEntry struct {
	Phone string `json:"phone"`
}

// Stats holds the dashboard KPI counters.
type Stats struct {
	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
	Queued  int64 `json:"queued"`
}

// ImportDestination selects which table an import run targets.
type ImportDestination string

const (
	DestLeads     ImportDestination = "leads"
	DestBlacklist ImportDestination = "blacklist"
)

// Valid reports whether the destination is one of the known tables.
func (d ImportDestination) Valid() bool {
	return d == DestLeads || d == DestBlacklist
}

// ImportOutcome counts how each row of an import run was classified.
// Blacklisted only occurs for the leads destination.
type ImportOutcome struct {
	New         int `json:"new"`
	Duplicate   int `json:"duplicate"`
	Blacklisted int `json:"blacklisted"`
	Invalid     int `json:"invalid"`
}

// Total returns the number of classified rows.
func (o ImportOutcome) Total() int {
	return o.New + o.Duplicate + o.Blacklisted + o.Invalid
}

// ImportRun is the persisted audit record of one import invocation.
type ImportRun struct {
	ID          string            `json:"id"`
	Destination ImportDestination `json:"destination"`
	Filename    string            `json:"filename"`
	Outcome     ImportOutcome     `json:"outcome"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  *time.Time        `json:"finished_at,omitempty"`
}
