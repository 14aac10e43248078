// Package editor is the application service behind the CLI and the HTTP API.
// Every mutation is one synchronous read-modify-write against the record
// store followed by one audit append.
package editor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-intel/internal/audit"
	"github.com/sells-group/market-intel/internal/export"
	"github.com/sells-group/market-intel/internal/filter"
	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/monitoring"
	"github.com/sells-group/market-intel/internal/store"
	"github.com/sells-group/market-intel/internal/tenor"
)

const snapshotKey = "snapshot"

// Service edits the live record set.
type Service struct {
	records store.RecordStore
	log     *audit.Log
	catalog model.Catalog

	metrics *monitoring.Metrics
	cache   *cache.Cache
	window  int
	now     func() time.Time

	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records mutations and store calls.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCacheTTL memoizes loads for ttl. Zero disables the cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cache = cache.New(ttl, 2*ttl)
		} else {
			s.cache = nil
		}
	}
}

// WithClock overrides the time source used for UpdatedAt, tenor generation
// and export filenames.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTenorWindow sets how many years of tenor codes are offered.
func WithTenorWindow(years int) Option {
	return func(s *Service) {
		if years > 0 {
			s.window = years
		}
	}
}

// New creates a Service.
func New(records store.RecordStore, log *audit.Log, catalog model.Catalog, opts ...Option) *Service {
	s := &Service{
		records: records,
		log:     log,
		catalog: catalog,
		window:  tenor.DefaultWindow,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the vocabularies records are validated against.
func (s *Service) Catalog() model.Catalog {
	return s.catalog
}

// Records returns the live set, possibly from the load cache.
func (s *Service) Records(ctx context.Context) ([]model.Record, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(snapshotKey); ok {
			return model.CloneAll(v.([]model.Record)), nil
		}
	}
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetDefault(snapshotKey, model.CloneAll(snap.Records))
	}
	return snap.Records, nil
}

// Group is the summaries of records sharing a main tag.
type Group struct {
	Tag       string   `json:"tag"`
	Summaries []string `json:"summaries"`
}

// View is the filtered record list as presented to a reader.
type View struct {
	filter.Result
	Summaries []string      `json:"summaries"`
	Groups    []Group       `json:"groups"`
	Total     int           `json:"total"`
	Catalog   model.Catalog `json:"catalog"`
}

// View filters the live set through state.
func (s *Service) View(ctx context.Context, state filter.State) (*View, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	res := filter.Apply(records, state)
	v := &View{
		Result:    res,
		Summaries: make([]string, len(res.Records)),
		Total:     len(records),
		Catalog:   s.catalog,
	}

	byTag := make(map[string][]string)
	for i, r := range res.Records {
		v.Summaries[i] = model.Summary(r)
		tag := model.MainTag(r)
		byTag[tag] = append(byTag[tag], v.Summaries[i])
	}
	tags := make([]string, 0, len(byTag))
	for t := range byTag {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	v.Groups = make([]Group, len(tags))
	for i, t := range tags {
		v.Groups[i] = Group{Tag: t, Summaries: byTag[t]}
	}
	return v, nil
}

// Tenors returns the period codes offered for ref. A zero ref means now.
func (s *Service) Tenors(ref time.Time) []string {
	if ref.IsZero() {
		ref = s.now()
	}
	return tenor.Generate(ref, s.window)
}

// History returns the audit entries of one record, oldest first.
func (s *Service) History(ctx context.Context, key string) ([]model.AuditEntry, error) {
	entries, err := s.log.ForKey(ctx, key)
	if err != nil {
		return nil, &StoreError{Op: "read history", Err: err}
	}
	return entries, nil
}

// AllHistory returns every audit entry.
func (s *Service) AllHistory(ctx context.Context) ([]model.AuditEntry, error) {
	entries, err := s.log.All(ctx)
	if err != nil {
		return nil, &StoreError{Op: "read history", Err: err}
	}
	return entries, nil
}

// Export renders the records matching state as a workbook and returns it with
// a timestamped filename.
func (s *Service) Export(ctx context.Context, state filter.State) ([]byte, string, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return nil, "", err
	}
	data, err := export.WriteXLSX(filter.Records(records, state))
	if err != nil {
		return nil, "", err
	}
	return data, export.SnapshotFilename(s.now()), nil
}

// ExportCSV is Export as comma-separated text.
func (s *Service) ExportCSV(ctx context.Context, state filter.State) ([]byte, string, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return nil, "", err
	}
	data, err := export.WriteCSV(filter.Records(records, state))
	if err != nil {
		return nil, "", err
	}
	return data, export.CSVFilename(s.now()), nil
}

func (s *Service) load(ctx context.Context) (*store.Snapshot, error) {
	snap, err := s.records.LoadAll(ctx)
	s.metrics.ObserveStore("load_all", err)
	if err != nil {
		return nil, &StoreError{Op: "load records", Err: eris.Wrap(err, "editor: load records")}
	}
	return snap, nil
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.Delete(snapshotKey)
	}
}

// commit writes records against the loaded version and then records ev.
func (s *Service) commit(ctx context.Context, version string, records []model.Record, ev audit.Event) error {
	_, err := s.records.ReplaceAll(ctx, records, version)
	s.metrics.ObserveStore("replace_all", err)
	s.invalidate()
	if err != nil {
		zap.L().Error("editor: write failed",
			zap.String("action", string(ev.Action)),
			zap.String("actor", ev.User),
			zap.Error(err),
		)
		if errors.Is(err, store.ErrVersionConflict) {
			return err
		}
		return &StoreError{Op: "write records", Err: eris.Wrap(err, "editor: write records")}
	}
	s.metrics.ObserveMutation(string(ev.Action))
	return s.appendAudit(ctx, ev)
}

func (s *Service) appendAudit(ctx context.Context, ev audit.Event) error {
	if _, err := s.log.Append(ctx, ev); err != nil {
		return &StoreError{Op: "append audit", Err: err}
	}
	return nil
}
