package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-intel/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func recordRows(records ...model.Record) *pgxmock.Rows {
	rows := pgxmock.NewRows(recordColumns)
	for _, r := range records {
		rows.AddRow(toArgs(model.EncodeRecord(r))...)
	}
	return rows
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS records`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	s := NewPostgresWithPool(mock)

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	require.NoError(t, s.Ping(context.Background()))
	err = s.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadAll(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM dataset_meta`).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(int64(7)))
	mock.ExpectQuery(`SELECT name, counterparty, .* FROM records ORDER BY position`).
		WillReturnRows(recordRows(sampleRecords()...))
	mock.ExpectCommit()

	snap, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "7", snap.Version)
	assert.Equal(t, sampleRecords(), snap.Records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceAll(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM dataset_meta WHERE key = 'version' FOR UPDATE`).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(int64(3)))
	mock.ExpectExec(`DELETE FROM records`).WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectCopyFrom(pgx.Identifier{"records"}, append([]string{"position"}, recordColumns...)).
		WillReturnResult(2)
	mock.ExpectExec(`UPDATE dataset_meta SET value`).
		WithArgs(int64(4), int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	v, err := s.ReplaceAll(context.Background(), sampleRecords(), "3")
	require.NoError(t, err)
	assert.Equal(t, "4", v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceAll_Conflict(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(int64(5)))
	mock.ExpectRollback()

	_, err := s.ReplaceAll(context.Background(), sampleRecords(), "3")
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceAll_CopyFails(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(int64(1)))
	mock.ExpectExec(`DELETE FROM records`).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"records"}, append([]string{"position"}, recordColumns...)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.ReplaceAll(context.Background(), sampleRecords(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendAndListAudit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	entry := model.AuditEntry{ID: "e1", Action: model.ActionCreate, Key: "r1", User: "alice"}
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(toArgs(model.EncodeAudit(entry))...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rows := pgxmock.NewRows(auditColumns).
		AddRow(toArgs(model.EncodeAudit(entry))...)
	mock.ExpectQuery(`SELECT ts, action, .* FROM audit_log ORDER BY seq`).WillReturnRows(rows)

	require.NoError(t, s.AppendAudit(context.Background(), entry))
	got, err := s.ListAudit(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, "alice", got[0].User)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendAudit_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`INSERT INTO audit_log`).WillReturnError(errors.New("connection refused"))

	err := s.AppendAudit(context.Background(), model.AuditEntry{ID: "e1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append audit e1")
}
