// Package store persists the dialer control rows, leads, and blacklist in
// a relational database. Two drivers are provided: Postgres for the hosted
// deployment and SQLite for local use.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dialer-admin/internal/model"
)

// Config row keys the external dialer engine polls.
const (
	KeyStatus   = "status"
	KeySpeed    = "speed"
	KeyPhoneIDs = "phone_ids"
)

// Defaults written by Migrate and substituted by callers when a read
// fails. The store itself never swallows a read error.
const (
	DefaultStatus = model.StatusOff
	DefaultSpeed  = 20
)

// MaxCallerIDs caps the outbound caller-ID pool.
const MaxCallerIDs = 4

// ErrNotFound is returned when a config key has no row.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface for the dialer admin tool.
type Store interface {
	// Dialer control (config table)
	DialerStatus(ctx context.Context) (model.DialerStatus, error)
	SetDialerStatus(ctx context.Context, status model.DialerStatus) error
	DialerSpeed(ctx context.Context) (int, error)
	SetDialerSpeed(ctx context.Context, speed int) error
	CallerIDs(ctx context.Context) ([]string, error)
	SetCallerIDs(ctx context.Context, ids []string) error

	// Dashboard KPIs
	Stats(ctx context.Context) (model.Stats, error)

	// Import: one-shot membership snapshots, chunked conflict-ignore
	// writes, and the audit trail of import runs.
	LeadPhones(ctx context.Context) (map[string]struct{}, error)
	BlacklistPhones(ctx context.Context) (map[string]struct{}, error)
	InsertLeadChunk(ctx context.Context, leads []model.Lead) error
	InsertBlacklistChunk(ctx context.Context, entries []model.BlacklistEntry) error
	CreateImportRun(ctx context.Context, dest model.ImportDestination, filename string) (*model.ImportRun, error)
	FinishImportRun(ctx context.Context, id string, outcome model.ImportOutcome) error

	// Maintenance
	ResetFailedLeads(ctx context.Context, results []model.CallResult) (int64, error)
	WipeLeads(ctx context.Context) (int64, error)

	// Export
	SuccessfulLeads(ctx context.Context, from, to time.Time) ([]model.Lead, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// ValidSpeed reports whether the requested call rate is on the operator
// scale: 10..60 calls/minute in steps of 5.
func ValidSpeed(speed int) bool {
	return speed >= 10 && speed <= 60 && speed%5 == 0
}
