package importer

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dialer-admin/internal/ingest"
	"github.com/sells-group/dialer-admin/internal/model"
)

// Store is the persistence surface an import run needs: the membership
// snapshots, the chunk writes, and the audit trail.
type Store interface {
	ChunkWriter
	LeadPhones(ctx context.Context) (map[string]struct{}, error)
	BlacklistPhones(ctx context.Context) (map[string]struct{}, error)
	CreateImportRun(ctx context.Context, dest model.ImportDestination, filename string) (*model.ImportRun, error)
	FinishImportRun(ctx context.Context, id string, outcome model.ImportOutcome) error
}

// ExecuteOptions configures a full import invocation.
type ExecuteOptions struct {
	Destination model.ImportDestination
	PhoneColumn string
	NameColumn  string
	ChunkSize   int
	Filename    string // recorded in the audit trail only
	Progress    func(done, total int)
}

// RunReport is the combined outcome of one import invocation.
type RunReport struct {
	Outcome model.ImportOutcome `json:"outcome"`
	Write   Report              `json:"write"`
}

// Execute performs a complete import: snapshot the membership sets,
// classify the rows, and write the accepted batch in chunks. The
// snapshots are taken once at the start and never refreshed mid-run;
// concurrent imports against the same destination are not guarded
// against — the tool assumes a single operator.
func Execute(ctx context.Context, st Store, tbl *ingest.Table, opts ExecuteOptions) (*RunReport, error) {
	existing, blacklist, err := snapshot(ctx, st, opts.Destination)
	if err != nil {
		return nil, err
	}

	run, err := st.CreateImportRun(ctx, opts.Destination, opts.Filename)
	if err != nil {
		// The audit trail never blocks an import.
		zap.L().Warn("create import run failed", zap.Error(err))
		run = nil
	}

	res, err := Run(tbl, Options{
		Destination: opts.Destination,
		PhoneColumn: opts.PhoneColumn,
		NameColumn:  opts.NameColumn,
		Existing:    existing,
		Blacklist:   blacklist,
		Progress:    opts.Progress,
	})
	if err != nil {
		return nil, err
	}

	report := Write(ctx, st, res, opts.ChunkSize)

	if run != nil {
		if err := st.FinishImportRun(ctx, run.ID, res.Outcome); err != nil {
			zap.L().Warn("finish import run failed", zap.String("run_id", run.ID), zap.Error(err))
		}
	}

	zap.L().Info("import complete",
		zap.String("destination", string(opts.Destination)),
		zap.Int("new", res.Outcome.New),
		zap.Int("duplicate", res.Outcome.Duplicate),
		zap.Int("blacklisted", res.Outcome.Blacklisted),
		zap.Int("invalid", res.Outcome.Invalid),
		zap.Int("written", report.Written),
		zap.Int("failed_chunks", len(report.Failed)),
	)

	return &RunReport{Outcome: res.Outcome, Write: report}, nil
}

// snapshot loads the membership sets for the destination. The leads
// destination needs both sets; the blacklist destination only dedupes
// against itself.
func snapshot(ctx context.Context, st Store, dest model.ImportDestination) (existing, blacklist map[string]struct{}, err error) {
	switch dest {
	case model.DestLeads:
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			existing, err = st.LeadPhones(gctx)
			return eris.Wrap(err, "importer: snapshot leads")
		})
		g.Go(func() error {
			var err error
			blacklist, err = st.BlacklistPhones(gctx)
			return eris.Wrap(err, "importer: snapshot blacklist")
		})
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
		return existing, blacklist, nil

	case model.DestBlacklist:
		existing, err = st.BlacklistPhones(ctx)
		if err != nil {
			return nil, nil, eris.Wrap(err, "importer: snapshot blacklist")
		}
		return existing, nil, nil

	default:
		return nil, nil, eris.Errorf("importer: unknown destination %q", dest)
	}
}
