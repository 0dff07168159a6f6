package presenter

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailypractice/attendance-hub/internal/application/command"
	"github.com/dailypractice/attendance-hub/internal/application/query"
	"github.com/dailypractice/attendance-hub/internal/domain/attendance"
)

func TestPresenter_RosterEmpty(t *testing.T) {
	p := New(0)
	assert.Equal(t, []string{MsgEmptyRoster}, p.Roster(&query.RosterResult{PlatformCount: -1}))
}

func TestPresenter_RosterNumbered(t *testing.T) {
	p := New(0)
	blocks := p.Roster(&query.RosterResult{
		Members:       []attendance.Member{{ID: "U1", DisplayName: "王小明"}, {ID: "U2"}},
		PlatformCount: 3,
	})
	require.Len(t, blocks, 1)
	assert.Equal(t, "👥 成員名單（已登記 2／群組 3）\n1. 王小明\n2. U2", blocks[0])
}

func TestPresenter_RosterChunksLargeChats(t *testing.T) {
	members := make([]attendance.Member, 0, 600)
	for i := 0; i < 600; i++ {
		members = append(members, attendance.Member{ID: fmt.Sprint(i), DisplayName: strings.Repeat("名", 20)})
	}
	p := New(1000)
	blocks := p.Roster(&query.RosterResult{Members: members, PlatformCount: -1})
	require.Greater(t, len(blocks), 1)
	for _, b := range blocks {
		assert.LessOrEqual(t, utf8.RuneCountInString(b), 1000)
	}
}

func TestPresenter_Status(t *testing.T) {
	p := New(0)
	blocks := p.Status(&query.TodayStatusResult{
		Date:          "2025-08-02",
		Done:          []attendance.Member{{ID: "A", DisplayName: "Alice"}},
		Pending:       []attendance.Member{},
		Unlisted:      1,
		PlatformCount: -1,
	})
	require.Len(t, blocks, 1)
	text := blocks[0]
	assert.Contains(t, text, "2025-08-02")
	assert.Contains(t, text, "✅ 已完成（1）\n・Alice\n・另有 1 位未登記成員")
	assert.Contains(t, text, "⬜ 未完成（0）\n・（無）")
	assert.NotContains(t, text, "群組人數")
}

func TestPresenter_Stats(t *testing.T) {
	roster := []attendance.Member{{ID: "A", DisplayName: "Alice"}, {ID: "B", DisplayName: "Bob"}}
	dates := []string{"2025-08-01", "2025-08-02"}
	sets := map[string]attendance.IDSet{
		"2025-08-01": attendance.NewIDSet("A"),
		"2025-08-02": attendance.NewIDSet("A", "B"),
	}
	res := &query.StatsResult{Days: 2, Report: attendance.BuildReport(roster, dates, sets, nil)}

	blocks := New(0).Stats(res)
	require.Len(t, blocks, 1)
	text := blocks[0]
	assert.Contains(t, text, "📊 最近 2 天統計")
	assert.Contains(t, text, "期間：2025-08-01 ～ 2025-08-02（2 天）")
	assert.Contains(t, text, "每日平均完成：1.5 人")
	assert.Contains(t, text, "2025-08-01：1\n2025-08-02：2")
	assert.Contains(t, text, "🏅 全勤（1）\n・Alice")
	assert.Contains(t, text, "・Bob 缺 1 天：08-01")
	assert.Contains(t, text, "💤 從未出席（0）\n・（無）")
}

func TestPresenter_StatsNoData(t *testing.T) {
	roster := []attendance.Member{{ID: "A", DisplayName: "Alice"}}
	res := &query.StatsResult{Month: "2025-08", Report: attendance.BuildReport(roster, []string{"2025-08-01"}, nil, nil)}

	text := strings.Join(New(0).Stats(res), "\n")
	assert.Contains(t, text, "📊 2025-08 月統計")
	assert.Contains(t, text, "還沒有任何打卡紀錄")
}

func TestPresenter_StatsEmptyRange(t *testing.T) {
	res := &query.StatsResult{Month: "2030-01", Report: attendance.BuildReport(nil, nil, nil, nil)}
	assert.Equal(t, []string{"📊 2030-01 月統計\n這段期間沒有可統計的日期。"}, New(0).Stats(res))
}

func TestPresenter_CommandReplies(t *testing.T) {
	p := New(0)

	reg := p.Registered(&command.RegisterMemberResult{Member: attendance.Member{ID: "U1", DisplayName: "王小明"}})
	assert.Equal(t, []string{"✅ 已登記：王小明"}, reg)

	done := p.MarkedDone(&command.MarkDoneResult{Date: "2025-08-02", Member: attendance.Member{ID: "U1", DisplayName: "Alice"}, DoneCount: 3})
	assert.Equal(t, []string{"✅ Alice 完成 2025-08-02 打卡！今天已有 3 人完成。"}, done)

	again := p.MarkedDone(&command.MarkDoneResult{Date: "2025-08-02", Member: attendance.Member{ID: "U1"}, AlreadyDone: true})
	assert.Equal(t, []string{"👌 U1 今天（2025-08-02）已經打過卡了。"}, again)

	help := p.Help()
	require.Len(t, help, 1)
	assert.Contains(t, help[0], "/stats")
}
