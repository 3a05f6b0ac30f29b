package importer

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dialer-admin/internal/model"
)

// serviceStore implements Store on top of fakeChunkWriter.
type serviceStore struct {
	fakeChunkWriter

	leadPhones      map[string]struct{}
	blacklistPhones map[string]struct{}
	snapshotErr     error

	createdRuns  int
	finishedID   string
	finishedWith model.ImportOutcome
	createErr    error
}

func (s *serviceStore) LeadPhones(context.Context) (map[string]struct{}, error) {
	return s.leadPhones, s.snapshotErr
}

func (s *serviceStore) BlacklistPhones(context.Context) (map[string]struct{}, error) {
	return s.blacklistPhones, s.snapshotErr
}

func (s *serviceStore) CreateImportRun(_ context.Context, dest model.ImportDestination, filename string) (*model.ImportRun, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.createdRuns++
	return &model.ImportRun{ID: "run-1", Destination: dest, Filename: filename}, nil
}

func (s *serviceStore) FinishImportRun(_ context.Context, id string, outcome model.ImportOutcome) error {
	s.finishedID = id
	s.finishedWith = outcome
	return nil
}

func TestExecuteLeads(t *testing.T) {
	t.Parallel()

	st := &serviceStore{
		leadPhones:      map[string]struct{}{"+31611111111": {}},
		blacklistPhones: map[string]struct{}{"+31622222222": {}},
	}

	report, err := Execute(context.Background(), st, importTable(), ExecuteOptions{
		Destination: model.DestLeads,
		PhoneColumn: "phone",
		NameColumn:  "name",
		Filename:    "leads.csv",
	})
	require.NoError(t, err)

	assert.Equal(t, model.ImportOutcome{New: 1, Duplicate: 2, Blacklisted: 1, Invalid: 1}, report.Outcome)
	assert.Equal(t, 1, report.Write.Written)
	assert.True(t, report.Write.OK())

	require.Len(t, st.leadChunks, 1)
	assert.Equal(t, "+31633333333", st.leadChunks[0][0].Phone)
	assert.Equal(t, "Carla", st.leadChunks[0][0].Name)

	assert.Equal(t, 1, st.createdRuns)
	assert.Equal(t, "run-1", st.finishedID)
	assert.Equal(t, report.Outcome, st.finishedWith)
}

func TestExecuteBlacklist(t *testing.T) {
	t.Parallel()

	st := &serviceStore{
		blacklistPhones: map[string]struct{}{"+31622222222": {}},
	}

	report, err := Execute(context.Background(), st, importTable(), ExecuteOptions{
		Destination: model.DestBlacklist,
		PhoneColumn: "phone",
	})
	require.NoError(t, err)

	// Blacklist imports do not screen against the leads table, so the
	// pre-existing lead counts as new here.
	assert.Equal(t, model.ImportOutcome{New: 2, Duplicate: 2, Invalid: 1}, report.Outcome)
	require.Len(t, st.blacklistChunks, 1)
	assert.Len(t, st.blacklistChunks[0], 2)
}

func TestExecuteSnapshotError(t *testing.T) {
	t.Parallel()

	st := &serviceStore{snapshotErr: eris.New("db down")}

	_, err := Execute(context.Background(), st, importTable(), ExecuteOptions{
		Destination: model.DestLeads,
		PhoneColumn: "phone",
	})
	require.Error(t, err)
	assert.Empty(t, st.leadChunks, "no writes after a failed snapshot")
}

func TestExecuteAuditFailureDoesNotBlock(t *testing.T) {
	t.Parallel()

	st := &serviceStore{
		blacklistPhones: map[string]struct{}{},
		createErr:       eris.New("audit table missing"),
	}

	report, err := Execute(context.Background(), st, importTable(), ExecuteOptions{
		Destination: model.DestBlacklist,
		PhoneColumn: "phone",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Outcome.New)
	assert.Empty(t, st.finishedID)
}

func TestExecuteUnknownDestination(t *testing.T) {
	t.Parallel()

	_, err := Execute(context.Background(), &serviceStore{}, importTable(), ExecuteOptions{
		Destination: "suppression",
		PhoneColumn: "phone",
	})
	require.Error(t, err)
}
