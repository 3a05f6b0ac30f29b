package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dialer-admin/internal/db"
	"github.com/sells-group/dialer-admin/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// Frequently used statements, prepared on each new connection. The query
// text doubles as the statement name so pgx reuses the plan.
const (
	sqlGetConfig       = `SELECT value FROM config WHERE key = $1`
	sqlSetConfig       = `INSERT INTO config (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	sqlCountByResult   = `SELECT count(*) FROM leads WHERE result = $1`
	sqlCountByStatus   = `SELECT count(*) FROM leads WHERE status = $1`
	sqlLeadPhones      = `SELECT phone FROM leads`
	sqlBlacklistPhones = `SELECT phone FROM blacklist`
	sqlResetFailed     = `UPDATE leads SET status = $1, result = NULL WHERE result = ANY($2)`
	sqlWipeLeads       = `DELETE FROM leads`
	sqlSuccessfulLeads = `SELECT phone, name, status, result, original_data, created_at, ended_at, duration, recording FROM leads WHERE result = $1 AND created_at >= $2 AND created_at <= $3 ORDER BY created_at`
	sqlInsertImportRun = `INSERT INTO import_runs (id, destination, filename, started_at) VALUES ($1, $2, $3, $4)`
	sqlFinishImportRun = `UPDATE import_runs SET outcome = $1, finished_at = $2 WHERE id = $3`
)

var preparedStatements = []string{
	sqlGetConfig,
	sqlSetConfig,
	sqlCountByResult,
	sqlCountByStatus,
	sqlLeadPhones,
	sqlBlacklistPhones,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for _, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, sql, sql); err != nil {
				return eris.Wrap(err, "postgres: prepare statement")
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS config (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS leads (
	phone         TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'new',
	result        TEXT,
	original_data JSONB,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	ended_at      TIMESTAMPTZ,
	duration      INTEGER,
	recording     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS blacklist (
	phone TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS import_runs (
	id          TEXT PRIMARY KEY,
	destination TEXT NOT NULL,
	filename    TEXT NOT NULL DEFAULT '',
	outcome     JSONB,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_result ON leads(result);
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at);

INSERT INTO config (key, value) VALUES
	('status', 'UIT'),
	('speed', '20'),
	('phone_ids', '[]')
ON CONFLICT (key) DO NOTHING;
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) getConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, sqlGetConfig, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", eris.Wrapf(ErrNotFound, "postgres: config key %s", key)
	}
	if err != nil {
		return "", eris.Wrapf(err, "postgres: get config %s", key)
	}
	return value, nil
}

func (s *PostgresStore) setConfig(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, sqlSetConfig, key, value)
	return eris.Wrapf(err, "postgres: set config %s", key)
}

func (s *PostgresStore) DialerStatus(ctx context.Context) (model.DialerStatus, error) {
	v, err := s.getConfig(ctx, KeyStatus)
	if err != nil {
		return "", err
	}
	return model.DialerStatus(v), nil
}

func (s *PostgresStore) SetDialerStatus(ctx context.Context, status model.DialerStatus) error {
	return s.setConfig(ctx, KeyStatus, string(status))
}

func (s *PostgresStore) DialerSpeed(ctx context.Context) (int, error) {
	v, err := s.getConfig(ctx, KeySpeed)
	if err != nil {
		return 0, err
	}
	speed, err := strconv.Atoi(v)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: speed value %q", v)
	}
	return speed, nil
}

func (s *PostgresStore) SetDialerSpeed(ctx context.Context, speed int) error {
	return s.setConfig(ctx, KeySpeed, strconv.Itoa(speed))
}

func (s *PostgresStore) CallerIDs(ctx context.Context) ([]string, error) {
	v, err := s.getConfig(ctx, KeyPhoneIDs)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(v), &ids); err != nil {
		return nil, eris.Wrapf(err, "postgres: phone_ids value %q", v)
	}
	return ids, nil
}

func (s *PostgresStore) SetCallerIDs(ctx context.Context, ids []string) error {
	if len(ids) > MaxCallerIDs {
		return eris.Errorf("postgres: at most %d caller IDs allowed, got %d", MaxCallerIDs, len(ids))
	}
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal phone_ids")
	}
	return s.setConfig(ctx, KeyPhoneIDs, string(data))
}

func (s *PostgresStore) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats

	if err := s.pool.QueryRow(ctx, sqlCountByResult, string(model.ResultSuccess)).Scan(&stats.Success); err != nil {
		return model.Stats{}, eris.Wrap(err, "postgres: count success")
	}
	if err := s.pool.QueryRow(ctx, sqlCountByResult, string(model.ResultFailed)).Scan(&stats.Failed); err != nil {
		return model.Stats{}, eris.Wrap(err, "postgres: count failed")
	}
	if err := s.pool.QueryRow(ctx, sqlCountByStatus, string(model.LeadStatusNew)).Scan(&stats.Queued); err != nil {
		return model.Stats{}, eris.Wrap(err, "postgres: count queued")
	}

	return stats, nil
}

func (s *PostgresStore) LeadPhones(ctx context.Context) (map[string]struct{}, error) {
	return s.phoneSet(ctx, sqlLeadPhones, "leads")
}

func (s *PostgresStore) BlacklistPhones(ctx context.Context) (map[string]struct{}, error) {
	return s.phoneSet(ctx, sqlBlacklistPhones, "blacklist")
}

func (s *PostgresStore) phoneSet(ctx context.Context, query, table string) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: snapshot %s phones", table)
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s phone", table)
		}
		set[phone] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "postgres: iterate %s phones", table)
	}
	return set, nil
}

func (s *PostgresStore) InsertLeadChunk(ctx context.Context, leads []model.Lead) error {
	rows := make([][]any, 0, len(leads))
	for _, l := range leads {
		originalJSON, err := json.Marshal(l.OriginalData)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal original_data for %s", l.Phone)
		}
		rows = append(rows, []any{l.Phone, l.Name, string(l.Status), originalJSON})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "leads",
		Columns:      []string{"phone", "name", "status", "original_data"},
		ConflictKeys: []string{"phone"},
		Ignore:       true,
	}, rows)
	return err
}

func (s *PostgresStore) InsertBlacklistChunk(ctx context.Context, entries []model.BlacklistEntry) error {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{e.Phone})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "blacklist",
		Columns:      []string{"phone"},
		ConflictKeys: []string{"phone"},
		Ignore:       true,
	}, rows)
	return err
}

func (s *PostgresStore) CreateImportRun(ctx context.Context, dest model.ImportDestination, filename string) (*model.ImportRun, error) {
	run := &model.ImportRun{
		ID:          uuid.New().String(),
		Destination: dest,
		Filename:    filename,
		StartedAt:   time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx, sqlInsertImportRun, run.ID, string(dest), filename, run.StartedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert import run")
	}
	return run, nil
}

func (s *PostgresStore) FinishImportRun(ctx context.Context, id string, outcome model.ImportOutcome) error {
	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal outcome")
	}

	tag, err := s.pool.Exec(ctx, sqlFinishImportRun, outcomeJSON, time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish import run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("import run not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ResetFailedLeads(ctx context.Context, results []model.CallResult) (int64, error) {
	values := make([]string, len(results))
	for i, r := range results {
		values[i] = string(r)
	}

	tag, err := s.pool.Exec(ctx, sqlResetFailed, string(model.LeadStatusNew), values)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: reset failed leads")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) WipeLeads(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, sqlWipeLeads)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: wipe leads")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) SuccessfulLeads(ctx context.Context, from, to time.Time) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx, sqlSuccessfulLeads, string(model.ResultSuccess), from, to)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query successful leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate successful leads")
	}
	return leads, nil
}

func scanLead(rows pgx.Rows) (model.Lead, error) {
	var (
		l            model.Lead
		status       string
		result       *string
		originalJSON []byte
		recording    *string
	)

	err := rows.Scan(&l.Phone, &l.Name, &status, &result, &originalJSON, &l.CreatedAt, &l.EndedAt, &l.Duration, &recording)
	if err != nil {
		return model.Lead{}, eris.Wrap(err, "postgres: scan lead")
	}

	l.Status = model.LeadStatus(status)
	if result != nil {
		r := model.CallResult(*result)
		l.Result = &r
	}
	if recording != nil {
		l.Recording = *recording
	}
	if len(originalJSON) > 0 {
		if err := json.Unmarshal(originalJSON, &l.OriginalData); err != nil {
			return model.Lead{}, eris.Wrapf(err, "postgres: unmarshal original_data for %s", l.Phone)
		}
	}
	return l, nil
}
