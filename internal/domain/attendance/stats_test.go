package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(members []Member) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.ID
	}
	return out
}

func idSet(members []Member) IDSet {
	return NewIDSet(ids(members)...)
}

func TestBuildReport_TwoDayScenario(t *testing.T) {
	roster := []Member{{ID: "B", DisplayName: "Bob"}, {ID: "A", DisplayName: "Alice"}}
	dates := []string{"2025-08-01", "2025-08-02"}
	sets := map[string]IDSet{
		"2025-08-01": NewIDSet("A"),
		"2025-08-02": NewIDSet("A", "B"),
	}

	r := BuildReport(roster, dates, sets, NewCollator("en"))

	assert.Equal(t, 2, r.TotalMembers)
	assert.Equal(t, []DateCount{{"2025-08-01", 1}, {"2025-08-02", 2}}, r.PerDateCounts)
	assert.Equal(t, "1.5", r.AverageString())
	assert.Equal(t, []string{"A"}, ids(r.FullAttendance))
	assert.Equal(t, []string{"A", "B"}, ids(r.AnyAttendance))
	assert.Empty(t, r.NeverAttended)
	assert.Equal(t, []string{"B"}, ids(r.NotFullAttendance))
	assert.False(t, r.NoData)

	require.Len(t, r.Missed, 2)
	assert.Equal(t, "A", r.Missed[0].Member.ID)
	assert.Equal(t, 0, r.Missed[0].Count())
	assert.Equal(t, "B", r.Missed[1].Member.ID)
	assert.Equal(t, []string{"2025-08-01"}, r.Missed[1].Dates)
	assert.Equal(t, 1, r.Missed[1].Count())
}

func TestBuildReport_MonthWithoutRecordsIsVacuous(t *testing.T) {
	roster := []Member{{ID: "A", DisplayName: "Alice"}, {ID: "B", DisplayName: "Bob"}}
	dates := []string{"2025-08-01", "2025-08-02", "2025-08-03"}

	r := BuildReport(roster, dates, map[string]IDSet{}, nil)

	for _, c := range r.PerDateCounts {
		assert.Zero(t, c.Count)
	}
	assert.Len(t, r.PerDateCounts, 3)
	assert.Equal(t, "0.0", r.AverageString())
	assert.Equal(t, []string{"A", "B"}, ids(r.FullAttendance))
	assert.Empty(t, r.NeverAttended)
	assert.Empty(t, r.NotFullAttendance)
	assert.True(t, r.NoData)
}

func TestBuildReport_EmptyInputs(t *testing.T) {
	r := BuildReport(nil, []string{"2025-08-01"}, nil, nil)
	assert.Zero(t, r.TotalMembers)
	assert.Empty(t, r.FullAttendance)
	assert.Empty(t, r.AnyAttendance)
	assert.Empty(t, r.NeverAttended)
	assert.True(t, r.Empty())

	r = BuildReport([]Member{{ID: "A", DisplayName: "Alice"}}, nil, nil, nil)
	assert.Equal(t, 1, r.TotalMembers)
	assert.Empty(t, r.PerDateCounts)
	assert.Equal(t, "0.0", r.AverageString())
	assert.Empty(t, r.FullAttendance)
	assert.Empty(t, r.AnyAttendance)
	assert.Empty(t, r.NeverAttended)
	assert.Empty(t, r.NotFullAttendance)
	assert.Empty(t, r.Missed)
}

func TestBuildReport_SetAlgebra(t *testing.T) {
	roster := []Member{
		{ID: "A", DisplayName: "Alice"},
		{ID: "B", DisplayName: "Bob"},
		{ID: "C", DisplayName: "Carol"},
		{ID: "D", DisplayName: "Dave"},
	}
	dates := []string{"2025-08-01", "2025-08-02", "2025-08-03", "2025-08-04"}
	sets := map[string]IDSet{
		"2025-08-01": NewIDSet("A", "B", "ghost"),
		"2025-08-02": NewIDSet("A"),
		"2025-08-04": NewIDSet("A", "C"),
	}

	r := BuildReport(roster, dates, sets, nil)

	sum := 0
	for _, c := range r.PerDateCounts {
		sum += c.Count
	}
	assert.GreaterOrEqual(t, sum, len(r.FullAttendance))

	rosterSet := idSet(roster)
	full, any := idSet(r.FullAttendance), idSet(r.AnyAttendance)
	for id := range full {
		assert.True(t, any.Has(id))
	}
	for id := range any {
		assert.True(t, rosterSet.Has(id))
	}

	never, notFull := idSet(r.NeverAttended), idSet(r.NotFullAttendance)
	for id := range rosterSet {
		assert.Equal(t, !any.Has(id), never.Has(id), id)
		assert.Equal(t, !full.Has(id), notFull.Has(id), id)
	}

	assert.Equal(t, []string{"A"}, ids(r.FullAttendance))
	assert.Equal(t, []string{"D"}, ids(r.NeverAttended))
	// 2025-08-03 has no completions, so it is not held against anyone.
	assert.Equal(t, []string{"2025-08-02", "2025-08-04"}, r.Missed[1].Dates)
	assert.Equal(t, "1.5", r.AverageString())
}

func TestCollator_LocaleAwareOrdering(t *testing.T) {
	members := []Member{
		{ID: "3", DisplayName: "émile"},
		{ID: "1", DisplayName: "Zoe"},
		{ID: "2", DisplayName: "adam"},
		{ID: "0", DisplayName: "adam"},
	}

	NewCollator("en").SortMembers(members)

	assert.Equal(t, []string{"0", "2", "3", "1"}, ids(members))
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "王 小明", NormalizeName("  王\n小明  "))
	assert.Equal(t, "a b c", NormalizeName("a\t\tb \r\n c"))

	long := ""
	for i := 0; i < 60; i++ {
		long += "字"
	}
	assert.Equal(t, MaxNameLength, len([]rune(NormalizeName(long))))

	m, err := NewMember("U1", "   ")
	require.NoError(t, err)
	assert.Equal(t, "U1", m.DisplayName)

	_, err = NewMember(" ", "name")
	assert.Error(t, err)
}
