package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailypractice/attendance-hub/internal/domain/attendance"
	"github.com/dailypractice/attendance-hub/internal/domain/shared"
	"github.com/dailypractice/attendance-hub/internal/infrastructure/persistence/memory"
	"github.com/dailypractice/attendance-hub/pkg/timeutil"
)

type fakeProfiles struct {
	names map[string]string
	err   error
	calls int
}

func (f *fakeProfiles) DisplayName(_ context.Context, _, memberID string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	name, ok := f.names[memberID]
	if !ok {
		return "", shared.ErrProfileNotFound
	}
	return name, nil
}

func fixedCalendar() *timeutil.Calendar {
	now := time.Date(2025, 8, 2, 9, 0, 0, 0, timeutil.TaipeiTZ)
	return timeutil.NewCalendar(timeutil.TaipeiTZ, timeutil.WithClock(func() time.Time { return now }))
}

func TestRegisterMember_CustomName(t *testing.T) {
	store := memory.NewAttendanceStore()
	profiles := &fakeProfiles{names: map[string]string{"U1": "Profile Name"}}
	h := NewRegisterMemberHandler(store, profiles, nil)
	ctx := context.Background()

	res, err := h.Handle(ctx, RegisterMemberCommand{ChatID: "C1", MemberID: "U1", Name: "  王小明 \n"})
	require.NoError(t, err)
	assert.Equal(t, "王小明", res.Member.DisplayName)
	assert.False(t, res.FromProfile)
	assert.Zero(t, profiles.calls)

	members, err := store.ListMembers(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, []attendance.Member{{ID: "U1", DisplayName: "王小明"}}, members)
}

func TestRegisterMember_FromProfile(t *testing.T) {
	store := memory.NewAttendanceStore()
	profiles := &fakeProfiles{names: map[string]string{"U1": "Alice"}}
	h := NewRegisterMemberHandler(store, profiles, nil)

	res, err := h.Handle(context.Background(), RegisterMemberCommand{ChatID: "C1", MemberID: "U1"})
	require.NoError(t, err)
	assert.True(t, res.FromProfile)
	assert.Equal(t, "Alice", res.Member.DisplayName)
}

func TestRegisterMember_ProfileFailure(t *testing.T) {
	store := memory.NewAttendanceStore()
	h := NewRegisterMemberHandler(store, &fakeProfiles{err: errors.New("boom")}, nil)

	_, err := h.Handle(context.Background(), RegisterMemberCommand{ChatID: "C1", MemberID: "U1"})
	assert.ErrorIs(t, err, shared.ErrProfileNotFound)

	members, _ := store.ListMembers(context.Background(), "C1")
	assert.Empty(t, members)
}

func TestRegisterMember_Validation(t *testing.T) {
	h := NewRegisterMemberHandler(memory.NewAttendanceStore(), nil, nil)

	_, err := h.Handle(context.Background(), RegisterMemberCommand{MemberID: "U1", Name: "x"})
	assert.ErrorIs(t, err, shared.ErrInvalidChatID)

	_, err = h.Handle(context.Background(), RegisterMemberCommand{ChatID: "C1", Name: "x"})
	assert.ErrorIs(t, err, shared.ErrInvalidMemberID)
}

func TestRegisterMember_StoreUnavailable(t *testing.T) {
	h := NewRegisterMemberHandler(attendance.UnavailableStore{}, nil, nil)

	_, err := h.Handle(context.Background(), RegisterMemberCommand{ChatID: "C1", MemberID: "U1", Name: "x"})
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
}

func TestCaptureMembers_OnlyUnknown(t *testing.T) {
	store := memory.NewAttendanceStore()
	ctx := context.Background()
	require.NoError(t, store.UpsertMember(ctx, "C1", attendance.Member{ID: "U1", DisplayName: "王小明"}))

	profiles := &fakeProfiles{names: map[string]string{"U1": "Ming", "U2": "Bob"}}
	h := NewCaptureMembersHandler(store, profiles, nil)

	res := h.Handle(ctx, CaptureMembersCommand{ChatID: "C1", MemberIDs: []string{"U1", "U2", "U3", ""}})
	assert.Equal(t, []attendance.Member{{ID: "U2", DisplayName: "Bob"}}, res.Captured)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 1, res.Failed)

	members, err := store.ListMembers(ctx, "C1")
	require.NoError(t, err)
	names := map[string]string{}
	for _, m := range members {
		names[m.ID] = m.DisplayName
	}
	assert.Equal(t, map[string]string{"U1": "王小明", "U2": "Bob"}, names)
}

func TestCaptureMembers_SwallowsStoreErrors(t *testing.T) {
	h := NewCaptureMembersHandler(attendance.UnavailableStore{}, &fakeProfiles{}, nil)

	res := h.Handle(context.Background(), CaptureMembersCommand{ChatID: "C1", MemberIDs: []string{"U1"}})
	assert.Empty(t, res.Captured)
	assert.Equal(t, 1, res.Failed)
}

func TestMarkDone_Idempotent(t *testing.T) {
	store := memory.NewAttendanceStore()
	ctx := context.Background()
	require.NoError(t, store.UpsertMember(ctx, "C1", attendance.Member{ID: "U1", DisplayName: "Alice"}))
	h := NewMarkDoneHandler(store, fixedCalendar(), nil)

	first, err := h.Handle(ctx, MarkDoneCommand{ChatID: "C1", MemberID: "U1"})
	require.NoError(t, err)
	assert.Equal(t, "2025-08-02", first.Date)
	assert.False(t, first.AlreadyDone)
	assert.Equal(t, 1, first.DoneCount)
	assert.Equal(t, "Alice", first.Member.DisplayName)

	second, err := h.Handle(ctx, MarkDoneCommand{ChatID: "C1", MemberID: "U1"})
	require.NoError(t, err)
	assert.True(t, second.AlreadyDone)
	assert.Equal(t, 1, second.DoneCount)

	set, err := store.CompletedIDs(ctx, "C1", "2025-08-02")
	require.NoError(t, err)
	assert.Equal(t, attendance.NewIDSet("U1"), set)
}

func TestMarkDone_UnknownMemberUsesID(t *testing.T) {
	h := NewMarkDoneHandler(memory.NewAttendanceStore(), fixedCalendar(), nil)

	res, err := h.Handle(context.Background(), MarkDoneCommand{ChatID: "C1", MemberID: "U9"})
	require.NoError(t, err)
	assert.Equal(t, "U9", res.Member.Label())
}

func TestMarkDone_StoreUnavailable(t *testing.T) {
	h := NewMarkDoneHandler(attendance.UnavailableStore{}, fixedCalendar(), nil)

	_, err := h.Handle(context.Background(), MarkDoneCommand{ChatID: "C1", MemberID: "U1"})
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
}

func TestRemoveMembers(t *testing.T) {
	store := memory.NewAttendanceStore()
	ctx := context.Background()
	require.NoError(t, store.UpsertMember(ctx, "C1", attendance.Member{ID: "U1", DisplayName: "A"}))
	require.NoError(t, store.UpsertMember(ctx, "C1", attendance.Member{ID: "U2", DisplayName: "B"}))
	require.NoError(t, store.MarkComplete(ctx, "C1", "2025-08-01", "U1"))

	h := NewRemoveMembersHandler(store, nil)
	n, err := h.Handle(ctx, RemoveMembersCommand{ChatID: "C1", MemberIDs: []string{"U1", ""}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	members, _ := store.ListMembers(ctx, "C1")
	assert.Equal(t, []attendance.Member{{ID: "U2", DisplayName: "B"}}, members)

	set, _ := store.CompletedIDs(ctx, "C1", "2025-08-01")
	assert.True(t, set.Has("U1"), "history is kept")

	_, err = h.Handle(ctx, RemoveMembersCommand{})
	assert.ErrorIs(t, err, shared.ErrInvalidChatID)
}
