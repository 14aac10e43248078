package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/market-intel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
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
CREATE TABLE IF NOT EXISTS records (
	position       INTEGER PRIMARY KEY,
	name           TEXT NOT NULL UNIQUE,
	counterparty   TEXT NOT NULL DEFAULT '',
	country        TEXT NOT NULL DEFAULT '',
	point_type     TEXT NOT NULL DEFAULT '',
	point_name     TEXT NOT NULL DEFAULT '',
	date           TEXT NOT NULL DEFAULT '',
	info           TEXT NOT NULL DEFAULT '',
	capacity_value TEXT NOT NULL DEFAULT '',
	capacity_unit  TEXT NOT NULL DEFAULT '',
	volume_value   TEXT NOT NULL DEFAULT '',
	volume_unit    TEXT NOT NULL DEFAULT '',
	tags           TEXT NOT NULL DEFAULT '',
	author         TEXT NOT NULL DEFAULT '',
	updated_at     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS audit_log (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	ts         TEXT NOT NULL,
	action     TEXT NOT NULL,
	name       TEXT NOT NULL,
	point_name TEXT NOT NULL DEFAULT '',
	data       TEXT NOT NULL DEFAULT '',
	old_data   TEXT NOT NULL DEFAULT '',
	comment    TEXT NOT NULL DEFAULT '',
	user_name  TEXT NOT NULL DEFAULT '',
	id         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS dataset_meta (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);

INSERT OR IGNORE INTO dataset_meta (key, value) VALUES ('version', 0);

CREATE INDEX IF NOT EXISTS idx_audit_log_name ON audit_log(name);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var (
	sqliteSelectRecords = `SELECT ` + strings.Join(recordColumns, ", ") + ` FROM records ORDER BY position`
	sqliteInsertRecord  = `INSERT INTO records (position, ` + strings.Join(recordColumns, ", ") + `) VALUES (?` +
		strings.Repeat(", ?", len(recordColumns)) + `)`
	sqliteSelectAudit = `SELECT ` + strings.Join(auditColumns, ", ") + ` FROM audit_log ORDER BY seq`
	sqliteInsertAudit = `INSERT INTO audit_log (` + strings.Join(auditColumns, ", ") + `) VALUES (?` +
		strings.Repeat(", ?", len(auditColumns)-1) + `)`
)

func (s *SQLiteStore) LoadAll(ctx context.Context) (*Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin load")
	}
	defer tx.Rollback() //nolint:errcheck

	version, err := sqliteVersion(ctx, tx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, sqliteSelectRecords)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load records")
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		row, err := scanRow(rows, len(recordColumns))
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		records = append(records, recordCodec.DecodeRecord(row))
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate records")
	}

	return &Snapshot{Records: records, Version: strconv.FormatInt(version, 10)}, nil
}

func (s *SQLiteStore) ReplaceAll(ctx context.Context, records []model.Record, expectedVersion string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: begin replace")
	}
	defer tx.Rollback() //nolint:errcheck

	current, err := sqliteVersion(ctx, tx)
	if err != nil {
		return "", err
	}
	if err := versionConflict(expectedVersion, strconv.FormatInt(current, 10)); err != nil {
		return "", err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return "", eris.Wrap(err, "sqlite: clear records")
	}
	stmt, err := tx.PrepareContext(ctx, sqliteInsertRecord)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	for i, r := range records {
		args := append([]any{i}, toArgs(model.EncodeRecord(r))...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return "", eris.Wrapf(err, "sqlite: insert record %s", r.Name)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE dataset_meta SET value = value + 1 WHERE key = 'version' AND value = ?`, current)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: bump version")
	}
	if err := checkRowsAffected(res); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "sqlite: commit replace")
	}

	zap.L().Debug("sqlite: replaced records", zap.Int("count", len(records)), zap.Int64("version", current+1))
	return strconv.FormatInt(current+1, 10), nil
}

func (s *SQLiteStore) AppendAudit(ctx context.Context, entry model.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, sqliteInsertAudit, toArgs(model.EncodeAudit(entry))...)
	return eris.Wrapf(err, "sqlite: append audit %s", entry.ID)
}

func (s *SQLiteStore) ListAudit(ctx context.Context) ([]model.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectAudit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audit")
	}
	defer rows.Close()

	entries := []model.AuditEntry{}
	for rows.Next() {
		row, err := scanRow(rows, len(auditColumns))
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan audit")
		}
		entries = append(entries, auditCodec.DecodeAudit(row))
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: iterate audit")
}

func sqliteVersion(ctx context.Context, tx *sql.Tx) (int64, error) {
	var v int64
	err := tx.QueryRowContext(ctx, `SELECT value FROM dataset_meta WHERE key = 'version'`).Scan(&v)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: read version")
	}
	return v, nil
}

// checkRowsAffected turns a compare-and-set update that matched nothing into
// a version conflict.
func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}
