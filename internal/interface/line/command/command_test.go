package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_VerbsAndAliases(t *testing.T) {
	cases := map[string]Kind{
		"/register":  KindRegister,
		"/R":         KindRegister,
		"/done":      KindMarkDone,
		"/d":         KindMarkDone,
		"打卡":         KindMarkDone,
		"/STATUS":    KindStatus,
		"/t":         KindStatus,
		"/roster":    KindRoster,
		"/s":         KindRoster,
		"/stats":     KindStats,
		"/st 30":     KindStats,
		"/help":      KindHelp,
		"  /h  ":     KindHelp,
		"／ｄｏｎｅ":     KindMarkDone,
		"／Ｓ":         KindRoster,
		"/done　": KindMarkDone,
	}

	for text, want := range cases {
		cmd, ok := Parse(text)
		require.True(t, ok, text)
		assert.Equal(t, want, cmd.Kind, text)
	}
}

func TestParse_IgnoresChatter(t *testing.T) {
	for _, text := range []string{"hello", "", "   ", "/unknown", "done", "/doneit", "please /done"} {
		_, ok := Parse(text)
		assert.False(t, ok, text)
		assert.False(t, LooksLikeCommand(text), text)
	}
}

func TestParse_RegisterKeepsArgumentCase(t *testing.T) {
	cmd, ok := Parse("/REGISTER  McDonald  Jr.")
	require.True(t, ok)
	assert.Equal(t, KindRegister, cmd.Kind)
	assert.Equal(t, "McDonald Jr.", cmd.Name)

	cmd, ok = Parse("/register 王小明")
	require.True(t, ok)
	assert.Equal(t, "王小明", cmd.Name)

	cmd, ok = Parse("/register　Ａｌｉｃｅ")
	require.True(t, ok)
	assert.Equal(t, "Alice", cmd.Name)

	cmd, ok = Parse("/register")
	require.True(t, ok)
	assert.Empty(t, cmd.Name)
}

func TestParse_RegisterNameIsNormalized(t *testing.T) {
	long := "/register "
	for i := 0; i < 80; i++ {
		long += "x"
	}
	cmd, ok := Parse(long)
	require.True(t, ok)
	assert.Len(t, cmd.Name, 50)

	cmd, ok = Parse("/register a\nb\n\nc")
	require.True(t, ok)
	assert.Equal(t, "a b c", cmd.Name)
}

func TestParse_StatsArguments(t *testing.T) {
	cases := []struct {
		text  string
		days  int
		year  int
		month time.Month
	}{
		{"/stats", 7, 0, 0},
		{"/stats 14", 14, 0, 0},
		{"/stats 90", 90, 0, 0},
		{"/stats 365", 90, 0, 0},
		{"/stats 99999999999999999999", 90, 0, 0},
		{"/stats 0", 7, 0, 0},
		{"/stats -3", 7, 0, 0},
		{"/stats abc", 7, 0, 0},
		{"/stats 2025-08", 0, 2025, time.August},
		{"/stats ２０２５－０８", 0, 2025, time.August},
		{"/stats 2025-13", 7, 0, 0},
		{"/stats 2025-8", 7, 0, 0},
		{"/stats 2025-08-01", 7, 0, 0},
		{"/st 30 extra", 30, 0, 0},
	}

	for _, tc := range cases {
		cmd, ok := Parse(tc.text)
		require.True(t, ok, tc.text)
		assert.Equal(t, tc.days, cmd.Days, tc.text)
		assert.Equal(t, tc.year, cmd.Year, tc.text)
		assert.Equal(t, tc.month, cmd.Month, tc.text)
		assert.Equal(t, tc.month != 0, cmd.IsMonth(), tc.text)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "done", KindMarkDone.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
