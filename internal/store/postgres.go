package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-intel/internal/db"
	"github.com/sells-group/market-intel/internal/model"
)

// PostgresStore implements Store using a pgx pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres connects to databaseURL.
func NewPostgres(ctx context.Context, databaseURL string, poolCfg db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, databaseURL, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS records (
	position       INTEGER NOT NULL,
	name           TEXT PRIMARY KEY,
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
	seq        BIGSERIAL PRIMARY KEY,
	ts         TEXT NOT NULL,
	action     TEXT NOT NULL,
	name       TEXT NOT NULL,
	point_name TEXT NOT NULL DEFAULT '',
	data       TEXT NOT NULL DEFAULT '',
	old_data   TEXT NOT NULL DEFAULT '',
	comment    TEXT NOT NULL DEFAULT '',
	user_name  TEXT NOT NULL DEFAULT '',
	id         TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS dataset_meta (
	key   TEXT PRIMARY KEY,
	value BIGINT NOT NULL
);

INSERT INTO dataset_meta (key, value) VALUES ('version', 0) ON CONFLICT (key) DO NOTHING;

CREATE INDEX IF NOT EXISTS idx_audit_log_name ON audit_log(name);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var (
	pgSelectVersion = `SELECT value FROM dataset_meta WHERE key = 'version'`
	pgSelectRecords = `SELECT ` + strings.Join(recordColumns, ", ") + ` FROM records ORDER BY position`
	pgSelectAudit   = `SELECT ` + strings.Join(auditColumns, ", ") + ` FROM audit_log ORDER BY seq`
	pgInsertAudit   = `INSERT INTO audit_log (` + strings.Join(auditColumns, ", ") + `) VALUES (` + placeholders(len(auditColumns)) + `)`
)

func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = "$" + strconv.Itoa(i+1)
	}
	return strings.Join(ph, ", ")
}

func (s *PostgresStore) LoadAll(ctx context.Context) (*Snapshot, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin load")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var version int64
	if err := tx.QueryRow(ctx, pgSelectVersion).Scan(&version); err != nil {
		return nil, eris.Wrap(err, "postgres: read version")
	}

	rows, err := tx.Query(ctx, pgSelectRecords)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load records")
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		row, err := scanRow(rows, len(recordColumns))
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		records = append(records, recordCodec.DecodeRecord(row))
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate records")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit load")
	}

	return &Snapshot{Records: records, Version: strconv.FormatInt(version, 10)}, nil
}

// ReplaceAll swaps the record table inside one transaction: lock the version
// row, delete, COPY the new rows, then compare-and-set the version.
func (s *PostgresStore) ReplaceAll(ctx context.Context, records []model.Record, expectedVersion string) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", eris.Wrap(err, "postgres: begin replace")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var current int64
	if err := tx.QueryRow(ctx, pgSelectVersion+` FOR UPDATE`).Scan(&current); err != nil {
		return "", eris.Wrap(err, "postgres: lock version")
	}
	if err := versionConflict(expectedVersion, strconv.FormatInt(current, 10)); err != nil {
		return "", err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM records`); err != nil {
		return "", eris.Wrap(err, "postgres: clear records")
	}

	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = append([]any{i}, toArgs(model.EncodeRecord(r))...)
	}
	if _, err := db.CopyFrom(ctx, tx, "records", append([]string{"position"}, recordColumns...), rows); err != nil {
		return "", eris.Wrap(err, "postgres: copy records")
	}

	tag, err := tx.Exec(ctx,
		`UPDATE dataset_meta SET value = $1 WHERE key = 'version' AND value = $2`, current+1, current)
	if err != nil {
		return "", eris.Wrap(err, "postgres: bump version")
	}
	if tag.RowsAffected() == 0 {
		return "", ErrVersionConflict
	}
	if err := tx.Commit(ctx); err != nil {
		return "", eris.Wrap(err, "postgres: commit replace")
	}

	zap.L().Debug("postgres: replaced records", zap.Int("count", len(records)), zap.Int64("version", current+1))
	return strconv.FormatInt(current+1, 10), nil
}

func (s *PostgresStore) AppendAudit(ctx context.Context, entry model.AuditEntry) error {
	_, err := s.pool.Exec(ctx, pgInsertAudit, toArgs(model.EncodeAudit(entry))...)
	return eris.Wrapf(err, "postgres: append audit %s", entry.ID)
}

func (s *PostgresStore) ListAudit(ctx context.Context) ([]model.AuditEntry, error) {
	rows, err := s.pool.Query(ctx, pgSelectAudit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audit")
	}
	defer rows.Close()

	entries := []model.AuditEntry{}
	for rows.Next() {
		row, err := scanRow(rows, len(auditColumns))
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit")
		}
		entries = append(entries, auditCodec.DecodeAudit(row))
	}
	return entries, eris.Wrap(rows.Err(), "postgres: iterate audit")
}
