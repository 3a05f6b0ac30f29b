package importer

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/dialer-admin/internal/model"
)

// DefaultChunkSize bounds the number of records per upsert request.
const DefaultChunkSize = 1000

// ChunkWriter persists one deduplicated chunk. Implementations must use
// conflict-ignore semantics keyed on phone: a record already present is
// left untouched, never overwritten.
type ChunkWriter interface {
	InsertLeadChunk(ctx context.Context, leads []model.Lead) error
	InsertBlacklistChunk(ctx context.Context, entries []model.BlacklistEntry) error
}

// ChunkError records one failed chunk by its position in the batch.
type ChunkError struct {
	Index int // zero-based chunk number
	Size  int
	Err   error
}

// Report summarizes a Write: how many chunks were attempted, how many
// records landed, and which chunks failed.
type Report struct {
	Chunks  int
	Written int
	Failed  []ChunkError
}

// OK reports whether every chunk was written.
func (r Report) OK() bool {
	return len(r.Failed) == 0
}

// Write persists the run result in consecutive chunks of at most
// chunkSize records. A failing chunk is logged and recorded but does not
// stop the remaining chunks; nothing is rolled back.
func Write(ctx context.Context, w ChunkWriter, res *Result, chunkSize int) Report {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	if len(res.Leads) > 0 {
		return writeChunks(res.Leads, chunkSize, func(chunk []model.Lead) error {
			return w.InsertLeadChunk(ctx, chunk)
		})
	}
	return writeChunks(res.Blacklist, chunkSize, func(chunk []model.BlacklistEntry) error {
		return w.InsertBlacklistChunk(ctx, chunk)
	})
}

func writeChunks[T any](records []T, chunkSize int, insert func([]T) error) Report {
	var report Report

	for start := 0; start < len(records); start += chunkSize {
		end := min(start+chunkSize, len(records))
		chunk := records[start:end]
		idx := report.Chunks
		report.Chunks++

		if err := insert(chunk); err != nil {
			zap.L().Error("import chunk failed",
				zap.Int("chunk", idx),
				zap.Int("size", len(chunk)),
				zap.Error(err),
			)
			report.Failed = append(report.Failed, ChunkError{Index: idx, Size: len(chunk), Err: err})
			continue
		}
		report.Written += len(chunk)
	}

	return report
}
