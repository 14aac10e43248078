package editor

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-intel/internal/audit"
	"github.com/sells-group/market-intel/internal/export"
	"github.com/sells-group/market-intel/internal/filter"
	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/store"
)

var now = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T, opts ...Option) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemory()
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	return New(st, audit.New(st), model.DefaultCatalog(), opts...), st
}

func hungary(name, info string) Input {
	return Input{Name: name, Country: "Hungary", PointType: model.PointTypeCountry, Info: info}
}

func auditCount(t *testing.T, st *store.MemoryStore) int {
	t.Helper()
	entries, err := st.ListAudit(context.Background())
	require.NoError(t, err)
	return len(entries)
}

func TestAdd_EntireCountryRecord(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	r, err := svc.Add(ctx, Input{Name: "A", Country: "Hungary", PointType: model.PointTypeCountry, PointName: "ignored", Info: "test"}, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.EntireCountry, r.PointName)
	assert.Equal(t, "alice", r.Author)
	assert.Equal(t, now, r.UpdatedAt)

	records, err := svc.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0].Name)

	history, err := svc.History(ctx, "A")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.ActionCreate, history[0].Action)
	assert.Equal(t, "alice", history[0].User)
	state, err := audit.Decode(history[0].Data)
	require.NoError(t, err)
	assert.Equal(t, "test", state.Info)
	assert.Equal(t, 1, auditCount(t, st))
}

func TestAdd_TagFilterScenario(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	in := hungary("A", "pipeline works")
	in.Tags = []string{"outage, forecast"}
	_, err := svc.Add(ctx, in, "alice")
	require.NoError(t, err)

	v, err := svc.View(ctx, filter.State{Tags: []string{"forecast"}})
	require.NoError(t, err)
	require.Len(t, v.Records, 1)
	assert.Equal(t, []string{"forecast", "outage"}, v.Records[0].Tags)
	assert.Equal(t, 1, v.Total)
	require.Len(t, v.Groups, 1)
	assert.Equal(t, "forecast", v.Groups[0].Tag)
}

func TestAdd_DuplicateNameRejected(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, hungary("A", "first"), "alice")
	require.NoError(t, err)

	_, err = svc.Add(ctx, hungary("A", "second"), "bob")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	records, err := svc.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "first", records[0].Info)
	assert.Equal(t, 1, auditCount(t, st))
}

func TestAdd_DuplicateContentRejected(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	in := hungary("A", "first")
	in.Counterparty = "FGSZ"
	in.Period = PeriodInput{Date: "2025-04-01"}
	_, err := svc.Add(ctx, in, "alice")
	require.NoError(t, err)

	in.Name = "B"
	_, err = svc.Add(ctx, in, "alice")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "first at Entire Country from FGSZ for 2025-04-01")
	assert.Equal(t, 1, auditCount(t, st))
}

func TestTenors_2025(t *testing.T) {
	svc, _ := newService(t)
	codes := svc.Tenors(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.Len(t, codes, 63)
	for _, c := range []string{"CAL25", "GY25", "SY25", "25WIN", "25SUM", "JAN25", "25Q1", "CAL27"} {
		assert.Contains(t, codes, c)
	}
	assert.NotContains(t, codes, "CAL28")

	assert.Equal(t, codes, svc.Tenors(time.Time{}))
}

func TestAdd_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{"missing name", Input{Country: "Hungary", PointType: model.PointTypeCountry}, "name"},
		{"markup only name", Input{Name: "<b></b>", Country: "Hungary", PointType: model.PointTypeCountry}, "name"},
		{"missing country", Input{Name: "x", PointType: model.PointTypeCountry}, "country"},
		{"unknown country", Input{Name: "x", Country: "Atlantis", PointType: model.PointTypeCountry}, "country"},
		{"missing point type", Input{Name: "x", Country: "Hungary"}, "point_type"},
		{"unknown point type", Input{Name: "x", Country: "Hungary", PointType: "Pipe"}, "point_type"},
		{"unknown virtual point", Input{Name: "x", Country: "Hungary", PointType: model.PointTypeVirtual, PointName: "NBP"}, "point_name"},
		{"crossborder needs a name", Input{Name: "x", Country: "Hungary", PointType: model.PointTypeCrossborder}, "point_name"},
		{"unknown tenor", Input{Name: "x", Country: "Hungary", PointType: model.PointTypeCountry, Period: PeriodInput{Tenor: "CAL40"}}, "date"},
		{"reversed range", Input{Name: "x", Country: "Hungary", PointType: model.PointTypeCountry, Period: PeriodInput{From: "2025-02-01", To: "2025-01-01"}}, "date"},
		{"bad day", Input{Name: "x", Country: "Hungary", PointType: model.PointTypeCountry, Period: PeriodInput{Date: "yesterday"}}, "date"},
		{"negative capacity", Input{Name: "x", Country: "Hungary", PointType: model.PointTypeCountry, Capacity: QuantityInput{Value: "-1", Unit: "GWh/h"}}, "capacity"},
		{"capacity without unit", Input{Name: "x", Country: "Hungary", PointType: model.PointTypeCountry, Capacity: QuantityInput{Value: "1"}}, "capacity"},
		{"unit without value", Input{Name: "x", Country: "Hungary", PointType: model.PointTypeCountry, Volume: QuantityInput{Unit: "MWh"}}, "volume"},
		{"unknown volume unit", Input{Name: "x", Country: "Hungary", PointType: model.PointTypeCountry, Volume: QuantityInput{Value: "3", Unit: "bcm"}}, "volume"},
		{"not a number", Input{Name: "x", Country: "Hungary", PointType: model.PointTypeCountry, Volume: QuantityInput{Value: "lots", Unit: "MWh"}}, "volume"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st := newService(t)
			_, err := svc.Add(context.Background(), tt.in, "alice")
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, 0, auditCount(t, st))
		})
	}
}

func TestAdd_AllowCustomPoints(t *testing.T) {
	st := store.NewMemory()
	cat := model.DefaultCatalog()
	cat.AllowCustomPoints = true
	svc := New(st, audit.New(st), cat)

	r, err := svc.Add(context.Background(), Input{Name: "x", Country: "Austria", PointType: model.PointTypeStorage, PointName: "Haidach"}, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Haidach", r.PointName)
}

func TestAdd_NormalizesInput(t *testing.T) {
	svc, _ := newService(t)

	r, err := svc.Add(context.Background(), Input{
		Name:         "  note-1 ",
		Counterparty: " FGSZ ",
		Country:      "Hungary",
		PointType:    model.PointTypeVirtual,
		PointName:    "MGP",
		Period:       PeriodInput{Tenor: "JAN26", Custom: "  Q1-BLOCK "},
		Info:         "<script>alert(1)</script>flows <b>up</b> & away",
		Capacity:     QuantityInput{Value: "12.50", Unit: "GWh/h"},
		Tags:         []string{"outage", "forecast", "outage"},
	}, "alice")
	require.NoError(t, err)

	assert.Equal(t, "note-1", r.Name)
	assert.Equal(t, "FGSZ", r.Counterparty)
	assert.Equal(t, "Q1-BLOCK", r.Date)
	assert.Equal(t, "flows up & away", r.Info)
	require.NotNil(t, r.Capacity)
	assert.Equal(t, "12.5 GWh/h", r.Capacity.String())
	assert.Nil(t, r.Volume)
	assert.Equal(t, []string{"forecast", "outage"}, r.Tags)
}

func TestPeriodInput_Resolve(t *testing.T) {
	vocab := []string{"25Q2", "JAN25"}
	tests := []struct {
		name string
		in   PeriodInput
		want string
	}{
		{"empty", PeriodInput{}, ""},
		{"single day", PeriodInput{Date: "2025-01-15"}, "2025-01-15"},
		{"stored range", PeriodInput{Date: "2025-01-01 to 2025-01-31"}, "2025-01-01 to 2025-01-31"},
		{"range", PeriodInput{From: "2025-01-01", To: "2025-01-01"}, "2025-01-01 to 2025-01-01"},
		{"tenor", PeriodInput{Tenor: "JAN25"}, "JAN25"},
		{"custom wins", PeriodInput{Tenor: "JAN25", Custom: "BLOCK-7"}, "BLOCK-7"},
		{"tenor wins over range", PeriodInput{Tenor: "25Q2", From: "2025-01-01", To: "2025-01-02"}, "25Q2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.resolve(vocab)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEdit(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Add(ctx, hungary("A", "before"), "alice")
	require.NoError(t, err)

	in := hungary("", "after")
	r, err := svc.Edit(ctx, "A", in, "bob")
	require.NoError(t, err)
	assert.Equal(t, "A", r.Name)
	assert.Equal(t, "after", r.Info)
	assert.Equal(t, "bob", r.Author)

	history, err := svc.History(ctx, "A")
	require.NoError(t, err)
	require.Len(t, history, 2)
	edit := history[1]
	assert.Equal(t, model.ActionEdit, edit.Action)
	oldState, err := audit.Decode(edit.OldData)
	require.NoError(t, err)
	newState, err := audit.Decode(edit.Data)
	require.NoError(t, err)
	assert.Equal(t, "before", oldState.Info)
	assert.Equal(t, "after", newState.Info)
}

func TestEdit_Rejections(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	_, err := svc.Add(ctx, hungary("A", "x"), "alice")
	require.NoError(t, err)

	_, err = svc.Edit(ctx, "missing", hungary("", "x"), "bob")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Edit(ctx, "A", hungary("B", "x"), "bob")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	assert.Equal(t, 1, auditCount(t, st))
}

func TestEdit_KeepsUnchangedFieldsThroughInputFrom(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	in := Input{Name: "A", Country: "Hungary", PointType: model.PointTypeStorage, PointName: "HEXUM",
		Period: PeriodInput{Tenor: "25Q3"}, Volume: QuantityInput{Value: "40", Unit: "GWh"}, Tags: []string{"maintenance"}}
	created, err := svc.Add(ctx, in, "alice")
	require.NoError(t, err)

	next := InputFrom(*created)
	next.Info = "extended"
	edited, err := svc.Edit(ctx, "A", next, "bob")
	require.NoError(t, err)

	assert.Equal(t, "25Q3", edited.Date)
	assert.Equal(t, "40 GWh", edited.Volume.String())
	assert.Equal(t, []string{"maintenance"}, edited.Tags)
	assert.Equal(t, "extended", edited.Info)
}

func TestDelete(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	for _, n := range []string{"A", "B", "C"} {
		in := hungary(n, n)
		in.Counterparty = n
		_, err := svc.Add(ctx, in, "alice")
		require.NoError(t, err)
	}

	require.NoError(t, svc.Delete(ctx, "B", "bob"))
	records, err := svc.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, []string{records[0].Name, records[1].Name})

	history, err := svc.History(ctx, "B")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.ActionDelete, history[1].Action)
	assert.Empty(t, history[1].Data)
	old, err := audit.Decode(history[1].OldData)
	require.NoError(t, err)
	assert.Equal(t, "B", old.Info)

	assert.ErrorIs(t, svc.Delete(ctx, "B", "bob"), ErrNotFound)
}

func TestComment(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	_, err := svc.Add(ctx, hungary("A", "x"), "alice")
	require.NoError(t, err)
	before, err := st.LoadAll(ctx)
	require.NoError(t, err)

	entry, err := svc.Comment(ctx, "A", " confirmed by <i>TSO</i> ", "bob")
	require.NoError(t, err)
	assert.Equal(t, model.ActionComment, entry.Action)
	assert.Equal(t, "confirmed by TSO", entry.Comment)
	state, err := audit.Decode(entry.Data)
	require.NoError(t, err)
	assert.Equal(t, "x", state.Info)

	after, err := st.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)

	_, err = svc.Comment(ctx, "missing", "hi", "bob")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Comment(ctx, "A", "   ", "bob")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, 2, auditCount(t, st))
}

// racingStore lets another writer in between every load and write.
type racingStore struct {
	*store.MemoryStore
}

func (r racingStore) LoadAll(ctx context.Context) (*store.Snapshot, error) {
	snap, err := r.MemoryStore.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := r.MemoryStore.ReplaceAll(ctx, snap.Records, ""); err != nil {
		return nil, err
	}
	return snap, nil
}

func TestAdd_VersionConflict(t *testing.T) {
	mem := store.NewMemory()
	svc := New(racingStore{mem}, audit.New(mem), model.DefaultCatalog())

	_, err := svc.Add(context.Background(), hungary("A", "x"), "alice")
	assert.ErrorIs(t, err, store.ErrVersionConflict)
	assert.Equal(t, 0, auditCount(t, mem))
}

type brokenStore struct {
	*store.MemoryStore
	loadErr, writeErr error
	loads             atomic.Int32
}

func (b *brokenStore) LoadAll(ctx context.Context) (*store.Snapshot, error) {
	b.loads.Add(1)
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return b.MemoryStore.LoadAll(ctx)
}

func (b *brokenStore) ReplaceAll(ctx context.Context, records []model.Record, version string) (string, error) {
	if b.writeErr != nil {
		return "", b.writeErr
	}
	return b.MemoryStore.ReplaceAll(ctx, records, version)
}

func TestStoreFailuresAreStoreErrors(t *testing.T) {
	mem := store.NewMemory()
	bs := &brokenStore{MemoryStore: mem, writeErr: errors.New("quota exceeded")}
	svc := New(bs, audit.New(mem), model.DefaultCatalog())
	ctx := context.Background()

	_, err := svc.Add(ctx, hungary("A", "x"), "alice")
	var serr *StoreError
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 0, auditCount(t, mem))

	bs.loadErr = errors.New("unreachable")
	_, err = svc.View(ctx, filter.State{})
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "load records", serr.Op)
}

func TestRecords_Cached(t *testing.T) {
	mem := store.NewMemory()
	bs := &brokenStore{MemoryStore: mem}
	svc := New(bs, audit.New(mem), model.DefaultCatalog(), WithCacheTTL(time.Minute))
	ctx := context.Background()

	_, err := svc.Records(ctx)
	require.NoError(t, err)
	_, err = svc.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), bs.loads.Load())

	_, err = svc.Add(ctx, hungary("A", "x"), "alice")
	require.NoError(t, err)
	records, err := svc.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(3), bs.loads.Load())

	records[0].Info = "mutated by caller"
	again, err := svc.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, "x", again[0].Info)
}

func imported(name, info string, tags ...string) model.Record {
	return model.Record{Name: name, Country: "Hungary", PointType: model.PointTypeCountry, Info: info, Tags: tags}
}

func TestImport(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	_, err := svc.Add(ctx, hungary("old", "x"), "alice")
	require.NoError(t, err)

	withAuthor := imported("C", "kept")
	withAuthor.Author = "bob"
	n, err := svc.Import(ctx, []model.Record{
		imported("A", "first"),
		{Name: ""},
		imported("B", "", "b", "a", "b"),
		imported("A", "second"),
		withAuthor,
	}, "restore")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	records, err := svc.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "second", records[0].Info)
	assert.Equal(t, "restore", records[0].Author)
	assert.Equal(t, now, records[0].UpdatedAt)
	assert.Equal(t, []string{"a", "b"}, records[1].Tags)
	assert.Equal(t, "bob", records[2].Author)
	assert.Equal(t, 4, auditCount(t, st))
}

func TestImport_NormalizesRecords(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	r := imported(" A ", "<b>bold</b> note")
	r.PointName = "Somewhere"
	r.Date = "CUSTOM_BLOCK"
	_, err := svc.Import(ctx, []model.Record{r}, "restore")
	require.NoError(t, err)

	records, err := svc.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0].Name)
	assert.Equal(t, model.EntireCountry, records[0].PointName)
	assert.Equal(t, "bold note", records[0].Info)
	assert.Equal(t, "CUSTOM_BLOCK", records[0].Date)

	in := InputFrom(records[0])
	in.Info = "edited"
	_, err = svc.Edit(ctx, "A", in, "alice")
	assert.NoError(t, err)
}

func TestImport_RejectsInvalidRows(t *testing.T) {
	tests := []struct {
		name   string
		record model.Record
		field  string
	}{
		{"unknown country", model.Record{Name: "X", Country: "Narnia", PointType: model.PointTypeCountry}, "country"},
		{"unknown point type", model.Record{Name: "X", Country: "Hungary", PointType: "Pipeline", PointName: "P"}, "point_type"},
		{"unknown virtual point", model.Record{Name: "X", Country: "Hungary", PointType: model.PointTypeVirtual, PointName: "Nowhere"}, "point_name"},
		{"unknown capacity unit", model.Record{Name: "X", Country: "Hungary", PointType: model.PointTypeCountry, Capacity: &model.Quantity{Value: decimal.NewFromInt(5), Unit: "furlongs"}}, "capacity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st := newService(t)
			ctx := context.Background()
			_, err := svc.Add(ctx, hungary("keep", "x"), "alice")
			require.NoError(t, err)

			_, err = svc.Import(ctx, []model.Record{imported("ok", "y"), tt.record}, "restore")
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Contains(t, verr.Reason, "row 2 (X)")

			records, err := svc.Records(ctx)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, "keep", records[0].Name)
			assert.Equal(t, 1, auditCount(t, st))
		})
	}
}

func TestExport(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	for _, n := range []string{"A", "B"} {
		in := hungary(n, n)
		in.Counterparty = n
		_, err := svc.Add(ctx, in, "alice")
		require.NoError(t, err)
	}

	data, name, err := svc.Export(ctx, filter.State{Counterparty: "B"})
	require.NoError(t, err)
	assert.Equal(t, "gas_snapshot_20250314_090000.xlsx", name)

	back, err := export.ParseXLSX(data)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, "B", back[0].Name)
}

func TestExportCSV(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	for _, n := range []string{"A", "B"} {
		in := hungary(n, n)
		in.Counterparty = n
		_, err := svc.Add(ctx, in, "alice")
		require.NoError(t, err)
	}

	data, name, err := svc.ExportCSV(ctx, filter.State{Counterparty: "A"})
	require.NoError(t, err)
	assert.Equal(t, "gas_snapshot_20250314_090000.csv", name)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "A,"))
}

func TestSuggestTags(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	in := hungary("A", "x")
	in.Tags = []string{"pressure"}
	_, err := svc.Add(ctx, in, "alice")
	require.NoError(t, err)

	got, err := svc.SuggestTags(ctx, []string{"forcast", "maintenence", "presure", "zzz", " "})
	require.NoError(t, err)
	assert.Equal(t, []string{"forecast"}, got["forcast"])
	assert.Equal(t, []string{"maintenance"}, got["maintenence"])
	assert.Equal(t, []string{"pressure"}, got["presure"])
	assert.Empty(t, got["zzz"])
	assert.Len(t, got, 4)
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 100, similarity("outage", "outage"), 0.001)
	assert.InDelta(t, 87.5, similarity("forcast", "forecast"), 0.001)
	assert.InDelta(t, 100, similarity("", ""), 0.001)
	assert.InDelta(t, 0, similarity("abc", ""), 0.001)
}
