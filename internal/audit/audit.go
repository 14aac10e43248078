// Package audit appends immutable history entries for every mutation of the
// record set and reads them back per record.
package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-intel/internal/model"
)

// Store is the persistence the log needs.
type Store interface {
	AppendAudit(ctx context.Context, entry model.AuditEntry) error
	ListAudit(ctx context.Context) ([]model.AuditEntry, error)
}

// Event describes one mutation to record. New is the state after the action
// and Old the state before it; either may be nil.
type Event struct {
	Action  model.Action
	New     *model.Record
	Old     *model.Record
	Comment string
	User    string
}

// Observer is notified after every append attempt.
type Observer func(action model.Action, err error)

// Log appends entries to a Store.
type Log struct {
	store   Store
	now     func() time.Time
	newID   func() string
	observe Observer
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithIDs overrides the entry ID generator.
func WithIDs(fn func() string) Option {
	return func(l *Log) { l.newID = fn }
}

// WithObserver registers a callback run after each append.
func WithObserver(fn Observer) Option {
	return func(l *Log) { l.observe = fn }
}

// New creates a Log over s.
func New(s Store, opts ...Option) *Log {
	l := &Log{
		store: s,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append builds one entry from ev and writes it. Store failures are returned
// as-is wrapped; nothing is retried.
func (l *Log) Append(ctx context.Context, ev Event) (model.AuditEntry, error) {
	entry, err := l.build(ev)
	if err != nil {
		return model.AuditEntry{}, err
	}

	err = l.store.AppendAudit(ctx, entry)
	if l.observe != nil {
		l.observe(ev.Action, err)
	}
	if err != nil {
		zap.L().Error("audit: append failed",
			zap.String("action", string(ev.Action)),
			zap.String("key", entry.Key),
			zap.Error(err),
		)
		return model.AuditEntry{}, eris.Wrapf(err, "audit: append %s %s", ev.Action, entry.Key)
	}

	zap.L().Debug("audit: appended",
		zap.String("id", entry.ID),
		zap.String("action", string(ev.Action)),
		zap.String("key", entry.Key),
	)
	return entry, nil
}

func (l *Log) build(ev Event) (model.AuditEntry, error) {
	if !ev.Action.Valid() {
		return model.AuditEntry{}, eris.Errorf("audit: unknown action %q", ev.Action)
	}

	// The subject is the new state when present, else the prior state.
	subject := ev.New
	if subject == nil {
		subject = ev.Old
	}
	if subject == nil || strings.TrimSpace(subject.Name) == "" {
		return model.AuditEntry{}, eris.Errorf("audit: %s event without a record", ev.Action)
	}

	data, err := marshal(ev.New)
	if err != nil {
		return model.AuditEntry{}, err
	}
	old, err := marshal(ev.Old)
	if err != nil {
		return model.AuditEntry{}, err
	}

	return model.AuditEntry{
		ID:        l.newID(),
		Timestamp: l.now().UTC(),
		Action:    ev.Action,
		Key:       subject.Name,
		PointName: subject.PointName,
		Data:      data,
		OldData:   old,
		Comment:   ev.Comment,
		User:      ev.User,
	}, nil
}

func marshal(r *model.Record) (string, error) {
	if r == nil {
		return "", nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return "", eris.Wrap(err, "audit: marshal record")
	}
	return string(b), nil
}

// All returns every entry in append order.
func (l *Log) All(ctx context.Context) ([]model.AuditEntry, error) {
	entries, err := l.store.ListAudit(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "audit: list")
	}
	return entries, nil
}

// ForKey returns the entries recorded for one record name, oldest first.
func (l *Log) ForKey(ctx context.Context, key string) ([]model.AuditEntry, error) {
	entries, err := l.All(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.AuditEntry{}
	for _, e := range entries {
		if e.Key == key {
			out = append(out, e)
		}
	}
	return out, nil
}

// Decode parses the JSON state stored in an entry's Data or OldData column.
// An empty column yields nil.
func Decode(data string) (*model.Record, error) {
	if strings.TrimSpace(data) == "" {
		return nil, nil
	}
	var r model.Record
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, eris.Wrap(err, "audit: decode record state")
	}
	return &r, nil
}
