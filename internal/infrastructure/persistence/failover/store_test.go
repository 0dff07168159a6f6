package failover

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailypractice/attendance-hub/internal/domain/attendance"
	"github.com/dailypractice/attendance-hub/internal/infrastructure/persistence/memory"
	"github.com/dailypractice/attendance-hub/pkg/circuitbreaker"
)

var errDown = errors.New("connection refused")

// flakyStore wraps a memory store and fails every call while down is set.
type flakyStore struct {
	*memory.AttendanceStore
	down  bool
	calls int
}

func (f *flakyStore) check() error {
	f.calls++
	if f.down {
		return errDown
	}
	return nil
}

func (f *flakyStore) MarkComplete(ctx context.Context, chatID, dateKey, memberID string) error {
	if err := f.check(); err != nil {
		return err
	}
	return f.AttendanceStore.MarkComplete(ctx, chatID, dateKey, memberID)
}

func (f *flakyStore) ListMembers(ctx context.Context, chatID string) ([]attendance.Member, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	return f.AttendanceStore.ListMembers(ctx, chatID)
}

func (f *flakyStore) CompletedIDs(ctx context.Context, chatID, dateKey string) (attendance.IDSet, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	return f.AttendanceStore.CompletedIDs(ctx, chatID, dateKey)
}

func (f *flakyStore) Ping(context.Context) error {
	if f.down {
		return errDown
	}
	return nil
}

func TestStore_UsesPrimaryWhenHealthy(t *testing.T) {
	primary := &flakyStore{AttendanceStore: memory.NewAttendanceStore()}
	fallback := memory.NewAttendanceStore()
	store := New(primary, fallback, circuitbreaker.New("test"), nil)
	ctx := context.Background()

	require.NoError(t, store.MarkComplete(ctx, "C1", "2025-08-01", "A"))

	set, err := primary.AttendanceStore.CompletedIDs(ctx, "C1", "2025-08-01")
	require.NoError(t, err)
	assert.True(t, set.Has("A"))

	set, err = fallback.CompletedIDs(ctx, "C1", "2025-08-01")
	require.NoError(t, err)
	assert.Zero(t, set.Len())
	assert.NoError(t, store.Ping(ctx))
}

func TestStore_FallsBackTransparently(t *testing.T) {
	primary := &flakyStore{AttendanceStore: memory.NewAttendanceStore(), down: true}
	fallback := memory.NewAttendanceStore()
	store := New(primary, fallback, circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(2)), nil)
	ctx := context.Background()

	require.NoError(t, store.MarkComplete(ctx, "C1", "2025-08-01", "A"))
	set, err := store.CompletedIDs(ctx, "C1", "2025-08-01")
	require.NoError(t, err)
	assert.True(t, set.Has("A"))

	members, err := store.ListMembers(ctx, "C1")
	require.NoError(t, err)
	assert.Empty(t, members)

	// breaker is open now, so the primary is no longer called
	callsBefore := primary.calls
	_, err = store.ListMembers(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, callsBefore, primary.calls)
	assert.Equal(t, circuitbreaker.StateOpen, store.Breaker().State())

	assert.Error(t, store.Ping(ctx))
}

func TestStore_FallbackErrorsPropagate(t *testing.T) {
	primary := &flakyStore{AttendanceStore: memory.NewAttendanceStore(), down: true}
	store := New(primary, attendance.UnavailableStore{}, circuitbreaker.New("test"), nil)

	err := store.MarkComplete(context.Background(), "C1", "2025-08-01", "A")
	assert.Error(t, err)
}
