// Package importer implements the lead/blacklist import pipeline: column
// resolution, phone normalization, duplicate and blacklist classification,
// and chunked conflict-ignore writes.
package importer

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/dialer-admin/internal/ingest"
	"github.com/sells-group/dialer-admin/internal/model"
	"github.com/sells-group/dialer-admin/internal/phone"
)

// DefaultName is the lead name used when no name column is selected.
const DefaultName = "Klant"

// progressEvery controls how often the Progress callback fires.
const progressEvery = 100

// Options configures one import run. Existing and Blacklist are set
// snapshots taken before the run; Existing is mutated in place as rows are
// accepted so duplicates within the same file are caught.
type Options struct {
	Destination model.ImportDestination
	PhoneColumn string
	NameColumn  string // leads only; empty means DefaultName
	Existing    map[string]struct{}
	Blacklist   map[string]struct{} // consulted for the leads destination only
	Progress    func(done, total int)
}

// Result is the deduplicated output of a run. Exactly one of Leads or
// Blacklist is populated, depending on the destination; order follows the
// input file.
type Result struct {
	Leads     []model.Lead
	Blacklist []model.BlacklistEntry
	Outcome   model.ImportOutcome
}

// Run classifies every row of the table. Precedence per row: invalid
// number, then blacklisted (leads only), then duplicate, then accepted.
// It performs no datastore writes; persisting the result is Write's job.
func Run(tbl *ingest.Table, opts Options) (*Result, error) {
	if !opts.Destination.Valid() {
		return nil, eris.Errorf("importer: unknown destination %q", opts.Destination)
	}

	phoneCol, ok := tbl.ColumnIndex(opts.PhoneColumn)
	if !ok {
		return nil, eris.Errorf("importer: phone column %q not in file", opts.PhoneColumn)
	}

	nameCol := -1
	if opts.Destination == model.DestLeads && opts.NameColumn != "" {
		nameCol, ok = tbl.ColumnIndex(opts.NameColumn)
		if !ok {
			return nil, eris.Errorf("importer: name column %q not in file", opts.NameColumn)
		}
	}

	existing := opts.Existing
	if existing == nil {
		existing = make(map[string]struct{})
	}

	res := &Result{}
	total := len(tbl.Rows)

	for i, row := range tbl.Rows {
		key, valid := phone.Normalize(tbl.Cell(row, phoneCol))

		switch {
		case !valid:
			res.Outcome.Invalid++

		case opts.Destination == model.DestLeads && contains(opts.Blacklist, key):
			res.Outcome.Blacklisted++

		case contains(existing, key):
			res.Outcome.Duplicate++

		default:
			if opts.Destination == model.DestLeads {
				name := DefaultName
				if nameCol >= 0 {
					if v := tbl.Cell(row, nameCol); v != "" {
						name = v
					}
				}
				res.Leads = append(res.Leads, model.Lead{
					Phone:        key,
					Name:         name,
					Status:       model.LeadStatusNew,
					OriginalData: tbl.RowMap(row),
				})
			} else {
				res.Blacklist = append(res.Blacklist, model.BlacklistEntry{Phone: key})
			}
			existing[key] = struct{}{}
			res.Outcome.New++
		}

		if opts.Progress != nil && (i%progressEvery == 0 || i == total-1) {
			opts.Progress(i+1, total)
		}
	}

	return res, nil
}

func contains(set map[string]struct{}, key string) bool {
	if set == nil {
		return false
	}
	_, ok := set[key]
	return ok
}
