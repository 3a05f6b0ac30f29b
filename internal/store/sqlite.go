package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/dialer-admin/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Intended for
// local and single-operator setups; the hosted deployment uses Postgres.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS config (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS leads (
	phone         TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'new',
	result        TEXT,
	original_data TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	ended_at      DATETIME,
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
	outcome     TEXT,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_result ON leads(result);
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at);

INSERT OR IGNORE INTO config (key, value) VALUES
	('status', 'UIT'),
	('speed', '20'),
	('phone_ids', '[]');
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) getConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", eris.Wrapf(ErrNotFound, "sqlite: config key %s", key)
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: get config %s", key)
	}
	return value, nil
}

func (s *SQLiteStore) setConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO config (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return eris.Wrapf(err, "sqlite: set config %s", key)
}

func (s *SQLiteStore) DialerStatus(ctx context.Context) (model.DialerStatus, error) {
	v, err := s.getConfig(ctx, KeyStatus)
	if err != nil {
		return "", err
	}
	return model.DialerStatus(v), nil
}

func (s *SQLiteStore) SetDialerStatus(ctx context.Context, status model.DialerStatus) error {
	return s.setConfig(ctx, KeyStatus, string(status))
}

func (s *SQLiteStore) DialerSpeed(ctx context.Context) (int, error) {
	v, err := s.getConfig(ctx, KeySpeed)
	if err != nil {
		return 0, err
	}
	speed, err := strconv.Atoi(v)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: speed value %q", v)
	}
	return speed, nil
}

func (s *SQLiteStore) SetDialerSpeed(ctx context.Context, speed int) error {
	return s.setConfig(ctx, KeySpeed, strconv.Itoa(speed))
}

func (s *SQLiteStore) CallerIDs(ctx context.Context) ([]string, error) {
	v, err := s.getConfig(ctx, KeyPhoneIDs)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(v), &ids); err != nil {
		return nil, eris.Wrapf(err, "sqlite: phone_ids value %q", v)
	}
	return ids, nil
}

func (s *SQLiteStore) SetCallerIDs(ctx context.Context, ids []string) error {
	if len(ids) > MaxCallerIDs {
		return eris.Errorf("sqlite: at most %d caller IDs allowed, got %d", MaxCallerIDs, len(ids))
	}
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal phone_ids")
	}
	return s.setConfig(ctx, KeyPhoneIDs, string(data))
}

func (s *SQLiteStore) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats

	count := func(query string, arg string, dst *int64) error {
		return s.db.QueryRowContext(ctx, query, arg).Scan(dst)
	}

	if err := count(`SELECT count(*) FROM leads WHERE result = ?`, string(model.ResultSuccess), &stats.Success); err != nil {
		return model.Stats{}, eris.Wrap(err, "sqlite: count success")
	}
	if err := count(`SELECT count(*) FROM leads WHERE result = ?`, string(model.ResultFailed), &stats.Failed); err != nil {
		return model.Stats{}, eris.Wrap(err, "sqlite: count failed")
	}
	if err := count(`SELECT count(*) FROM leads WHERE status = ?`, string(model.LeadStatusNew), &stats.Queued); err != nil {
		return model.Stats{}, eris.Wrap(err, "sqlite: count queued")
	}

	return stats, nil
}

func (s *SQLiteStore) LeadPhones(ctx context.Context) (map[string]struct{}, error) {
	return s.phoneSet(ctx, `SELECT phone FROM leads`, "leads")
}

func (s *SQLiteStore) BlacklistPhones(ctx context.Context) (map[string]struct{}, error) {
	return s.phoneSet(ctx, `SELECT phone FROM blacklist`, "blacklist")
}

func (s *SQLiteStore) phoneSet(ctx context.Context, query, table string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: snapshot %s phones", table)
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s phone", table)
		}
		set[phone] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "sqlite: iterate %s phones", table)
	}
	return set, nil
}

func (s *SQLiteStore) InsertLeadChunk(ctx context.Context, leads []model.Lead) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin lead chunk")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO leads (phone, name, status, original_data, created_at) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare lead insert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, l := range leads {
		originalJSON, err := json.Marshal(l.OriginalData)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal original_data for %s", l.Phone)
		}
		if _, err := stmt.ExecContext(ctx, l.Phone, l.Name, string(l.Status), string(originalJSON), now); err != nil {
			return eris.Wrapf(err, "sqlite: insert lead %s", l.Phone)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit lead chunk")
}

func (s *SQLiteStore) InsertBlacklistChunk(ctx context.Context, entries []model.BlacklistEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin blacklist chunk")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO blacklist (phone) VALUES (?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare blacklist insert")
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Phone); err != nil {
			return eris.Wrapf(err, "sqlite: insert blacklist %s", e.Phone)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit blacklist chunk")
}

func (s *SQLiteStore) CreateImportRun(ctx context.Context, dest model.ImportDestination, filename string) (*model.ImportRun, error) {
	run := &model.ImportRun{
		ID:          uuid.New().String(),
		Destination: dest,
		Filename:    filename,
		StartedAt:   time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO import_runs (id, destination, filename, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, string(dest), filename, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert import run")
	}
	return run, nil
}

func (s *SQLiteStore) FinishImportRun(ctx context.Context, id string, outcome model.ImportOutcome) error {
	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal outcome")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE import_runs SET outcome = ?, finished_at = ? WHERE id = ?`,
		string(outcomeJSON), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish import run %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("import run not found: %s", id)
	}
	return nil
}

func (s *SQLiteStore) ResetFailedLeads(ctx context.Context, results []model.CallResult) (int64, error) {
	if len(results) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(results))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(results)+1)
	args = append(args, string(model.LeadStatusNew))
	for _, r := range results {
		args = append(args, string(r))
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET status = ?, result = NULL WHERE result IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: reset failed leads")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) WipeLeads(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: wipe leads")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) SuccessfulLeads(ctx context.Context, from, to time.Time) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT phone, name, status, result, original_data, created_at, ended_at, duration, recording
		 FROM leads WHERE result = ? AND created_at >= ? AND created_at <= ? ORDER BY created_at`,
		string(model.ResultSuccess), from, to,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query successful leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var (
			l            model.Lead
			status       string
			result       sql.NullString
			originalJSON sql.NullString
			endedAt      sql.NullTime
			duration     sql.NullInt64
		)
		if err := rows.Scan(&l.Phone, &l.Name, &status, &result, &originalJSON, &l.CreatedAt, &endedAt, &duration, &l.Recording); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		l.Status = model.LeadStatus(status)
		if result.Valid {
			r := model.CallResult(result.String)
			l.Result = &r
		}
		if endedAt.Valid {
			t := endedAt.Time
			l.EndedAt = &t
		}
		if duration.Valid {
			d := int(duration.Int64)
			l.Duration = &d
		}
		if originalJSON.Valid && originalJSON.String != "" {
			if err := json.Unmarshal([]byte(originalJSON.String), &l.OriginalData); err != nil {
				return nil, eris.Wrapf(err, "sqlite: unmarshal original_data for %s", l.Phone)
			}
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate successful leads")
	}
	return leads, nil
}
