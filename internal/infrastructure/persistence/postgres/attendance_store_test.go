package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailypractice/attendance-hub/internal/domain/attendance"
)

// newTestStore connects to TEST_DATABASE_URL, skipping when it is unset.
func newTestStore(t *testing.T) *AttendanceStore {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := NewConnectionFromURL(ctx, url, DefaultPoolOptions())
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	require.NoError(t, NewMigrator(conn).Migrate(ctx))
	return NewAttendanceStore(conn)
}

func TestGetMigrations(t *testing.T) {
	migrations := GetMigrations()
	require.NotEmpty(t, migrations)
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.UpSQL)
		assert.NotEmpty(t, m.DownSQL)
	}
}

func TestAttendanceStore_Postgres(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	chatID := "C-" + uuid.NewString()

	members, err := store.ListMembers(ctx, chatID)
	require.NoError(t, err)
	assert.Empty(t, members)

	require.NoError(t, store.UpsertMember(ctx, chatID, attendance.Member{ID: "U1", DisplayName: "auto"}))
	require.NoError(t, store.UpsertMember(ctx, chatID, attendance.Member{ID: "U1", DisplayName: "王小明"}))

	members, err = store.ListMembers(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, []attendance.Member{{ID: "U1", DisplayName: "王小明"}}, members)

	require.NoError(t, store.MarkComplete(ctx, chatID, "2025-08-01", "U1"))
	require.NoError(t, store.MarkComplete(ctx, chatID, "2025-08-01", "U1"))

	sets, err := store.CompletedIDsByDate(ctx, chatID, []string{"2025-08-01", "2025-08-02"})
	require.NoError(t, err)
	assert.Equal(t, 1, sets["2025-08-01"].Len())
	assert.Zero(t, sets["2025-08-02"].Len())

	require.NoError(t, store.RemoveMember(ctx, chatID, "U1"))
	ok, err := store.HasMember(ctx, chatID, "U1")
	require.NoError(t, err)
	assert.False(t, ok)
}
