package importer

import (
	"context"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dialer-admin/internal/model"
)

type fakeChunkWriter struct {
	leadChunks      [][]model.Lead
	blacklistChunks [][]model.BlacklistEntry
	failOn          map[int]error // chunk index -> error
}

func (f *fakeChunkWriter) InsertLeadChunk(_ context.Context, leads []model.Lead) error {
	idx := len(f.leadChunks)
	f.leadChunks = append(f.leadChunks, leads)
	return f.failOn[idx]
}

func (f *fakeChunkWriter) InsertBlacklistChunk(_ context.Context, entries []model.BlacklistEntry) error {
	idx := len(f.blacklistChunks)
	f.blacklistChunks = append(f.blacklistChunks, entries)
	return f.failOn[idx]
}

func leadBatch(n int) *Result {
	res := &Result{}
	for i := range n {
		res.Leads = append(res.Leads, model.Lead{Phone: fmt.Sprintf("+316%08d", i)})
	}
	return res
}

func TestWriteChunking(t *testing.T) {
	t.Parallel()

	w := &fakeChunkWriter{}
	report := Write(context.Background(), w, leadBatch(2500), 1000)

	assert.True(t, report.OK())
	assert.Equal(t, 3, report.Chunks)
	assert.Equal(t, 2500, report.Written)

	require.Len(t, w.leadChunks, 3)
	assert.Len(t, w.leadChunks[0], 1000)
	assert.Len(t, w.leadChunks[1], 1000)
	assert.Len(t, w.leadChunks[2], 500)
}

func TestWriteContinuesPastFailedChunk(t *testing.T) {
	t.Parallel()

	w := &fakeChunkWriter{failOn: map[int]error{1: eris.New("connection reset")}}
	report := Write(context.Background(), w, leadBatch(2500), 1000)

	// The third chunk is still issued after the second one fails.
	require.Len(t, w.leadChunks, 3)

	assert.False(t, report.OK())
	assert.Equal(t, 3, report.Chunks)
	assert.Equal(t, 1500, report.Written)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, 1, report.Failed[0].Index)
	assert.Equal(t, 1000, report.Failed[0].Size)
}

func TestWriteBlacklistBatch(t *testing.T) {
	t.Parallel()

	res := &Result{}
	for i := range 5 {
		res.Blacklist = append(res.Blacklist, model.BlacklistEntry{Phone: fmt.Sprintf("+316%08d", i)})
	}

	w := &fakeChunkWriter{}
	report := Write(context.Background(), w, res, 2)

	assert.True(t, report.OK())
	assert.Equal(t, 3, report.Chunks)
	assert.Equal(t, 5, report.Written)
	require.Len(t, w.blacklistChunks, 3)
	assert.Len(t, w.blacklistChunks[2], 1)
}

func TestWriteDefaultChunkSize(t *testing.T) {
	t.Parallel()

	w := &fakeChunkWriter{}
	report := Write(context.Background(), w, leadBatch(1500), 0)

	assert.Equal(t, 2, report.Chunks)
	require.Len(t, w.leadChunks, 2)
	assert.Len(t, w.leadChunks[0], DefaultChunkSize)
}
