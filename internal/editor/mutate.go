package editor

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/market-intel/internal/audit"
	"github.com/sells-group/market-intel/internal/model"
)

// Add creates a record. The name must be new and no existing record may
// describe the same point, date and counterparty.
func (s *Service) Add(ctx context.Context, in Input, actor string) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	r, err := build(in, s.catalog, s.Tenors(s.now()))
	if err != nil {
		return nil, err
	}
	if model.IndexOf(snap.Records, r.Name) >= 0 {
		return nil, invalid("name", "a record named %q already exists", r.Name)
	}
	for _, existing := range snap.Records {
		if existing.PointName == r.PointName && existing.Date == r.Date && existing.Counterparty == r.Counterparty {
			return nil, invalid("point_name", "a similar entry already exists: %s", model.ShortSummary(existing))
		}
	}

	r.Author = actor
	r.UpdatedAt = s.now().UTC()
	next := append(model.CloneAll(snap.Records), r)

	created := r.Clone()
	if err := s.commit(ctx, snap.Version, next, audit.Event{Action: model.ActionCreate, New: &created, User: actor}); err != nil {
		return nil, err
	}
	zap.L().Info("editor: record created", zap.String("name", r.Name), zap.String("actor", actor))
	return &r, nil
}

// Edit replaces every mutable field of the record named key. The name itself
// cannot change.
func (s *Service) Edit(ctx context.Context, key string, in Input, actor string) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := model.IndexOf(snap.Records, key)
	if idx < 0 {
		return nil, ErrNotFound
	}
	if name := strings.TrimSpace(in.Name); name == "" {
		in.Name = key
	} else if name != key {
		return nil, invalid("name", "cannot be changed")
	}
	r, err := build(in, s.catalog, s.Tenors(s.now()))
	if err != nil {
		return nil, err
	}

	old := snap.Records[idx].Clone()
	r.Author = actor
	r.UpdatedAt = s.now().UTC()
	next := model.CloneAll(snap.Records)
	next[idx] = r

	updated := r.Clone()
	if err := s.commit(ctx, snap.Version, next, audit.Event{Action: model.ActionEdit, New: &updated, Old: &old, User: actor}); err != nil {
		return nil, err
	}
	zap.L().Info("editor: record edited", zap.String("name", key), zap.String("actor", actor))
	return &r, nil
}

// Delete removes the record named key.
func (s *Service) Delete(ctx context.Context, key, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return err
	}
	idx := model.IndexOf(snap.Records, key)
	if idx < 0 {
		return ErrNotFound
	}

	old := snap.Records[idx].Clone()
	next := make([]model.Record, 0, len(snap.Records)-1)
	next = append(next, snap.Records[:idx]...)
	next = append(next, snap.Records[idx+1:]...)

	if err := s.commit(ctx, snap.Version, model.CloneAll(next), audit.Event{Action: model.ActionDelete, Old: &old, User: actor}); err != nil {
		return err
	}
	zap.L().Info("editor: record deleted", zap.String("name", key), zap.String("actor", actor))
	return nil
}

// Comment attaches a note to the record named key. The live set is not
// written.
func (s *Service) Comment(ctx context.Context, key, text, actor string) (*model.AuditEntry, error) {
	text = clean(text)
	if text == "" {
		return nil, invalid("comment", "is required")
	}

	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := model.IndexOf(snap.Records, key)
	if idx < 0 {
		return nil, ErrNotFound
	}

	current := snap.Records[idx].Clone()
	entry, err := s.log.Append(ctx, audit.Event{Action: model.ActionComment, New: &current, Comment: text, User: actor})
	if err != nil {
		return nil, &StoreError{Op: "append audit", Err: err}
	}
	s.metrics.ObserveMutation(string(model.ActionComment))
	return &entry, nil
}

// Import replaces the live set with records unconditionally and writes one
// create entry per record. Records without a name are dropped and a repeated
// name keeps its last occurrence. Every other record must pass the same checks
// as Add; the first one that does not rejects the whole import.
func (s *Service) Import(ctx context.Context, records []model.Record, actor string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vocab := s.Tenors(s.now())
	var next []model.Record
	for i, src := range records {
		if strings.TrimSpace(src.Name) == "" {
			continue
		}
		r, err := build(InputFrom(src), s.catalog, vocab)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				return 0, invalid(verr.Field, "row %d (%s): %s", i+1, r.Name, verr.Reason)
			}
			return 0, err
		}
		r.Author = src.Author
		if r.Author == "" {
			r.Author = actor
		}
		r.UpdatedAt = src.UpdatedAt
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = s.now().UTC()
		}
		if j := model.IndexOf(next, r.Name); j >= 0 {
			next[j] = r
			continue
		}
		next = append(next, r)
	}
	if next == nil {
		next = []model.Record{}
	}

	if _, err := s.records.ReplaceAll(ctx, next, ""); err != nil {
		s.metrics.ObserveStore("replace_all", err)
		s.invalidate()
		return 0, &StoreError{Op: "write records", Err: err}
	}
	s.metrics.ObserveStore("replace_all", nil)
	s.invalidate()

	for i := range next {
		r := next[i].Clone()
		if err := s.appendAudit(ctx, audit.Event{Action: model.ActionCreate, New: &r, User: actor}); err != nil {
			return i, err
		}
		s.metrics.ObserveMutation(string(model.ActionCreate))
	}
	zap.L().Info("editor: records imported", zap.Int("count", len(next)), zap.String("actor", actor))
	return len(next), nil
}
