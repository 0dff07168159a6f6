package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailypractice/attendance-hub/internal/domain/attendance"
)

func newTestStore(t *testing.T) (*AttendanceStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.URL = "redis://" + mr.Addr()
	client, err := NewClient(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewAttendanceStore(client), mr
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "attendance:C1:members", MembersKey("C1"))
	assert.Equal(t, "attendance:C1:done:2025-08-01", DoneKey("C1", "2025-08-01"))
}

func TestAttendanceStore_Roster(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	members, err := store.ListMembers(ctx, "C1")
	require.NoError(t, err)
	assert.Empty(t, members)

	require.NoError(t, store.UpsertMember(ctx, "C1", attendance.Member{ID: "U1", DisplayName: "auto"}))
	require.NoError(t, store.UpsertMember(ctx, "C1", attendance.Member{ID: "U1", DisplayName: "王小明"}))
	require.NoError(t, store.UpsertMember(ctx, "C2", attendance.Member{ID: "U9", DisplayName: "other"}))

	assert.Equal(t, "王小明", mr.HGet("attendance:C1:members", "U1"))

	members, err = store.ListMembers(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, []attendance.Member{{ID: "U1", DisplayName: "王小明"}}, members)

	ok, err := store.HasMember(ctx, "C1", "U1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.RemoveMember(ctx, "C1", "U1"))
	ok, err = store.HasMember(ctx, "C1", "U1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAttendanceStore_MarkCompleteIsIdempotent(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.MarkComplete(ctx, "C1", "2025-08-01", "A"))
	require.NoError(t, store.MarkComplete(ctx, "C1", "2025-08-01", "A"))

	set, err := store.CompletedIDs(ctx, "C1", "2025-08-01")
	require.NoError(t, err)
	assert.Equal(t, attendance.NewIDSet("A"), set)

	members, err := mr.SMembers("attendance:C1:done:2025-08-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, members)

	empty, err := store.CompletedIDs(ctx, "C1", "2025-08-02")
	require.NoError(t, err)
	assert.Zero(t, empty.Len())
}

func TestAttendanceStore_CompletedIDsByDate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.MarkComplete(ctx, "C1", "2025-08-01", "A"))
	require.NoError(t, store.MarkComplete(ctx, "C1", "2025-08-02", "A"))
	require.NoError(t, store.MarkComplete(ctx, "C1", "2025-08-02", "B"))

	sets, err := store.CompletedIDsByDate(ctx, "C1", []string{"2025-08-01", "2025-08-02", "2025-08-03"})
	require.NoError(t, err)
	require.Len(t, sets, 3)
	assert.Equal(t, 1, sets["2025-08-01"].Len())
	assert.True(t, sets["2025-08-02"].Has("B"))
	assert.Zero(t, sets["2025-08-03"].Len())

	none, err := store.CompletedIDsByDate(ctx, "C1", nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAttendanceStore_Unreachable(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	ctx := context.Background()
	assert.Error(t, store.Ping(ctx))
	assert.Error(t, store.MarkComplete(ctx, "C1", "2025-08-01", "A"))
}

func TestNewClient_ConnectionFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "redis://127.0.0.1:1"
	cfg.MaxRetries = 0
	_, err := NewClient(cfg)
	assert.ErrorIs(t, err, ErrConnection)

	client := WrapClient(goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}))
	defer client.Close()
	assert.Error(t, client.Ping(context.Background()))
}
