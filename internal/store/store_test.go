package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aegis/internal/store"
	"github.com/roach88/aegis/internal/testutil"
	"github.com/roach88/aegis/internal/trust"
)

const identity = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

func TestOpen_CreatesAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trust.db")

	st, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	// Opening an existing database is idempotent.
	st, err = store.Open(path)
	require.NoError(t, err)
	assert.NoError(t, st.Close())
}

func TestStore_LoadUnknownIdentity(t *testing.T) {
	st := testutil.TempStore(t)

	_, found, err := st.Load(context.Background(), identity)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_SaveAndLoadRoundTrip(t *testing.T) {
	st := testutil.TempStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	rec := trust.NewRecord(identity)
	rec.Score = 0.3
	rec.ExecutionCount = 3
	rec.LastViolation = &now

	ev := trust.Event{Kind: trust.EventIncrement, At: now, Score: 0.3}
	require.NoError(t, st.Save(ctx, rec, ev))

	got, found, err := st.Load(ctx, identity)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0.3, got.Score)
	assert.Equal(t, 3, got.ExecutionCount)
	require.NotNil(t, got.LastViolation)
	assert.True(t, got.LastViolation.Equal(now))
	require.Len(t, got.History, 1)
	assert.Equal(t, trust.EventIncrement, got.History[0].Kind)
	assert.True(t, got.History[0].At.Equal(now))
}

func TestStore_SaveUpserts(t *testing.T) {
	st := testutil.TempStore(t)
	ctx := context.Background()

	rec := trust.NewRecord(identity)
	for i := 1; i <= 3; i++ {
		rec.Score = float64(i)
		rec.ExecutionCount = i
		ev := trust.Event{Kind: trust.EventIncrement, At: time.Now().UTC(), Score: rec.Score}
		require.NoError(t, st.Save(ctx, rec, ev))
	}

	got, found, err := st.Load(ctx, identity)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 3.0, got.Score, "last write wins")
	assert.Len(t, got.History, 3, "every event is retained")
}

func TestStore_HistoryReadIsCapped(t *testing.T) {
	st := testutil.TempStore(t)
	ctx := context.Background()

	rec := trust.NewRecord(identity)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		rec.Score = float64(i)
		ev := trust.Event{Kind: trust.EventIncrement, At: base.Add(time.Duration(i) * time.Second), Score: rec.Score}
		require.NoError(t, st.Save(ctx, rec, ev))
	}

	got, _, err := st.Load(ctx, identity)
	require.NoError(t, err)
	require.Len(t, got.History, 50, "reads return the most recent 50 events")

	// Chronological order, ending at the newest event.
	assert.Equal(t, 10.0, got.History[0].Score)
	assert.Equal(t, 59.0, got.History[49].Score)
	for i := 1; i < len(got.History); i++ {
		assert.False(t, got.History[i].At.Before(got.History[i-1].At))
	}
}

func TestStore_RollbackLog(t *testing.T) {
	st := testutil.TempStore(t)
	ctx := context.Background()

	ev := trust.RollbackEvent{
		Identity:      identity,
		ViolationKind: "DIVISION_BY_ZERO",
		Message:       "division by zero: 10 / 0",
		PriorScore:    2.0,
		At:            time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, st.AppendRollback(ctx, ev))
	require.NoError(t, st.AppendRollback(ctx, trust.RollbackEvent{
		Identity:      "other",
		ViolationKind: "RESOURCE_EXCEEDED",
		Message:       "instruction count exceeded limit",
		At:            time.Now().UTC(),
	}))

	got, err := st.ReadRollbacks(ctx, identity)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ev.ViolationKind, got[0].ViolationKind)
	assert.Equal(t, ev.PriorScore, got[0].PriorScore)
	assert.True(t, got[0].At.Equal(ev.At))

	all, err := st.ReadRollbacks(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2, "empty identity reads the full log")
}

func TestStore_ResetTrust(t *testing.T) {
	st := testutil.TempStore(t)
	ctx := context.Background()

	rec := trust.NewRecord(identity)
	rec.Score = 1.5
	require.NoError(t, st.Save(ctx, rec, trust.Event{Kind: trust.EventIncrement, At: time.Now().UTC(), Score: 1.5}))
	require.NoError(t, st.AppendRollback(ctx, trust.RollbackEvent{Identity: identity, ViolationKind: "X", Message: "m", At: time.Now().UTC()}))

	existed, err := st.ResetTrust(ctx, identity)
	require.NoError(t, err)
	assert.True(t, existed)

	_, found, err := st.Load(ctx, identity)
	require.NoError(t, err)
	assert.False(t, found, "record and history are gone")

	rollbacks, err := st.ReadRollbacks(ctx, identity)
	require.NoError(t, err)
	assert.Len(t, rollbacks, 1, "the audit log is retained")

	existed, err = st.ResetTrust(ctx, identity)
	require.NoError(t, err)
	assert.False(t, existed, "second reset finds nothing")
}

func TestStore_ListIdentities(t *testing.T) {
	st := testutil.TempStore(t)
	ctx := context.Background()

	for i, id := range []string{"id-low", "id-mid", "id-high"} {
		rec := trust.NewRecord(id)
		rec.Score = float64(i)
		require.NoError(t, st.Save(ctx, rec, trust.Event{Kind: trust.EventIncrement, At: time.Now().UTC(), Score: rec.Score}))
	}

	ids, err := st.ListIdentities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"id-high", "id-mid", "id-low"}, ids, "descending score order")
}

func TestMemory_MirrorsStoreSemantics(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	_, found, err := mem.Load(ctx, identity)
	require.NoError(t, err)
	assert.False(t, found)

	rec := trust.NewRecord(identity)
	rec.Score = 0.1
	rec.History = []trust.Event{{Kind: trust.EventIncrement, At: time.Now().UTC(), Score: 0.1}}
	require.NoError(t, mem.Save(ctx, rec, rec.History[0]))

	got, found, err := mem.Load(ctx, identity)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0.1, got.Score)

	// Mutating the returned record does not leak into the store.
	got.Score = 99
	again, _, _ := mem.Load(ctx, identity)
	assert.Equal(t, 0.1, again.Score)
}
