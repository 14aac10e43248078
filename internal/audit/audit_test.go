package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-intel/internal/model"
)

type memStore struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func (m *memStore) AppendAudit(_ context.Context, e model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memStore) ListAudit(_ context.Context) ([]model.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.AuditEntry(nil), m.entries...), nil
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) AppendAudit(ctx context.Context, e model.AuditEntry) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockStore) ListAudit(ctx context.Context) ([]model.AuditEntry, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]model.AuditEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

var fixed = time.Date(2025, 6, 1, 10, 30, 0, 0, time.FixedZone("CEST", 2*3600))

func newTestLog(s Store) *Log {
	n := 0
	return New(s,
		WithClock(func() time.Time { return fixed }),
		WithIDs(func() string { n++; return "id-" + string(rune('0'+n)) }),
	)
}

func rec(name, info string) *model.Record {
	return &model.Record{Name: name, Country: "Hungary", PointType: model.PointTypeVirtual, PointName: "MGP", Info: info}
}

func TestAppend_Create(t *testing.T) {
	s := &memStore{}
	l := newTestLog(s)

	entry, err := l.Append(context.Background(), Event{Action: model.ActionCreate, New: rec("A", "x"), User: "alice"})
	require.NoError(t, err)

	assert.Equal(t, "id-1", entry.ID)
	assert.Equal(t, fixed.UTC(), entry.Timestamp)
	assert.Equal(t, time.UTC, entry.Timestamp.Location())
	assert.Equal(t, "A", entry.Key)
	assert.Equal(t, "MGP", entry.PointName)
	assert.Empty(t, entry.OldData)
	assert.Equal(t, "alice", entry.User)

	got, err := Decode(entry.Data)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Info)

	require.Len(t, s.entries, 1)
	assert.Equal(t, entry, s.entries[0])
}

func TestAppend_EditCarriesBothStates(t *testing.T) {
	l := newTestLog(&memStore{})
	entry, err := l.Append(context.Background(), Event{Action: model.ActionEdit, New: rec("A", "new"), Old: rec("A", "old")})
	require.NoError(t, err)

	newState, err := Decode(entry.Data)
	require.NoError(t, err)
	oldState, err := Decode(entry.OldData)
	require.NoError(t, err)
	assert.Equal(t, "new", newState.Info)
	assert.Equal(t, "old", oldState.Info)
}

func TestAppend_DeleteUsesOldState(t *testing.T) {
	l := newTestLog(&memStore{})
	entry, err := l.Append(context.Background(), Event{Action: model.ActionDelete, Old: rec("A", "gone")})
	require.NoError(t, err)
	assert.Equal(t, "A", entry.Key)
	assert.Empty(t, entry.Data)
	assert.NotEmpty(t, entry.OldData)
}

func TestAppend_Rejects(t *testing.T) {
	s := &memStore{}
	l := newTestLog(s)

	_, err := l.Append(context.Background(), Event{Action: "rename", New: rec("A", "")})
	assert.Error(t, err)

	_, err = l.Append(context.Background(), Event{Action: model.ActionComment})
	assert.Error(t, err)

	assert.Empty(t, s.entries)
}

func TestAppend_StoreFailure(t *testing.T) {
	ms := &mockStore{}
	ms.On("AppendAudit", mock.Anything, mock.AnythingOfType("model.AuditEntry")).Return(errors.New("sheet unavailable")).Once()

	var observed error
	l := New(ms, WithObserver(func(_ model.Action, err error) { observed = err }))

	_, err := l.Append(context.Background(), Event{Action: model.ActionComment, New: rec("A", ""), Comment: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sheet unavailable")
	assert.Error(t, observed)
	ms.AssertNumberOfCalls(t, "AppendAudit", 1)
}

func TestForKey_FiltersInOrder(t *testing.T) {
	l := newTestLog(&memStore{})
	ctx := context.Background()

	_, err := l.Append(ctx, Event{Action: model.ActionCreate, New: rec("A", "1")})
	require.NoError(t, err)
	_, err = l.Append(ctx, Event{Action: model.ActionCreate, New: rec("B", "1")})
	require.NoError(t, err)
	_, err = l.Append(ctx, Event{Action: model.ActionComment, New: rec("A", "1"), Comment: "note"})
	require.NoError(t, err)
	_, err = l.Append(ctx, Event{Action: model.ActionDelete, Old: rec("A", "1")})
	require.NoError(t, err)

	entries, err := l.ForKey(ctx, "A")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, model.ActionCreate, entries[0].Action)
	assert.Equal(t, model.ActionComment, entries[1].Action)
	assert.Equal(t, model.ActionDelete, entries[2].Action)

	none, err := l.ForKey(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := l.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestForKey_StoreFailure(t *testing.T) {
	ms := &mockStore{}
	ms.On("ListAudit", mock.Anything).Return(nil, errors.New("boom"))
	_, err := New(ms).ForKey(context.Background(), "A")
	assert.Error(t, err)
}

func TestDecode_Empty(t *testing.T) {
	r, err := Decode("")
	require.NoError(t, err)
	assert.Nil(t, r)

	_, err = Decode("{not json")
	assert.Error(t, err)
}
