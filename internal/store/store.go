// Package store persists the live record set and the audit history.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-intel/internal/model"
)

// ErrVersionConflict is returned by ReplaceAll when the dataset changed since
// the caller loaded it. Nothing is written.
var ErrVersionConflict = eris.New("store: version conflict")

// Snapshot is the live record set in insertion order plus an opaque version
// token identifying it.
type Snapshot struct {
	Records []model.Record `json:"records"`
	Version string         `json:"version"`
}

// RecordStore holds the live record set.
type RecordStore interface {
	LoadAll(ctx context.Context) (*Snapshot, error)
	// ReplaceAll overwrites the whole set. A non-empty expectedVersion must
	// match the current version or ErrVersionConflict is returned; an empty
	// one overwrites unconditionally. It returns the new version.
	ReplaceAll(ctx context.Context, records []model.Record, expectedVersion string) (string, error)
}

// AuditStore holds the append-only history.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry model.AuditEntry) error
	ListAudit(ctx context.Context) ([]model.AuditEntry, error)
}

// Store is a complete backend.
type Store interface {
	RecordStore
	AuditStore

	Migrate(ctx context.Context) error
	Close() error
}

// Column names of the records table, in model.RecordHeader order.
var recordColumns = []string{
	"name", "counterparty", "country", "point_type", "point_name", "date", "info",
	"capacity_value", "capacity_unit", "volume_value", "volume_unit", "tags",
	"author", "updated_at",
}

// Column names of the audit table, in model.AuditHeader order.
var auditColumns = []string{
	"ts", "action", "name", "point_name", "data", "old_data", "comment", "user_name", "id",
}

var (
	recordCodec = model.NewRowCodec(model.RecordHeader)
	auditCodec  = model.NewRowCodec(model.AuditHeader)
)

type scannable interface {
	Scan(dest ...any) error
}

// scanRow reads n text columns into a string row.
func scanRow(s scannable, n int) ([]string, error) {
	row := make([]string, n)
	dest := make([]any, n)
	for i := range row {
		dest[i] = &row[i]
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	return row, nil
}

func toArgs(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

func versionConflict(expected, current string) error {
	if expected == "" || expected == current {
		return nil
	}
	return eris.Wrapf(ErrVersionConflict, "expected version %s, found %s", expected, current)
}
