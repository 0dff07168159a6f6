package presenter

import (
	"fmt"
	"strings"

	"github.com/dailypractice/attendance-hub/internal/application/command"
	"github.com/dailypractice/attendance-hub/internal/application/query"
	"github.com/dailypractice/attendance-hub/internal/domain/attendance"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRESENTER
// Every method returns ready-to-send blocks. Replies are in Traditional Chinese.
// ══════════════════════════════════════════════════════════════════════════════

// Fixed notices.
const (
	MsgEmptyRoster      = "沒有成員資料可顯示。"
	MsgDirectChat       = "請把我加入群組，並在群組中使用打卡指令。"
	MsgStoreUnavailable = "⚠️ 尚未設定資料儲存服務，這次的操作沒有被記錄。請管理員設定 REDIS_URL 或 DATABASE_URL。"
	MsgNeedName         = "無法取得你的 LINE 名稱，請輸入「/register 你的名字」完成登記。"
	MsgTemporaryFailure = "⚠️ 系統暫時無法處理，請稍後再試。"
)

// Presenter renders results into message blocks.
type Presenter struct {
	limit int
}

// New creates a presenter that chunks at limit runes (DefaultChunkLimit when ≤ 0).
func New(limit int) *Presenter {
	if limit <= 0 {
		limit = DefaultChunkLimit
	}
	return &Presenter{limit: limit}
}

// Limit returns the block size limit.
func (p *Presenter) Limit() int { return p.limit }

// Blocks chunks arbitrary lines with the presenter's limit.
func (p *Presenter) Blocks(lines ...string) []string {
	return Chunk(lines, p.limit)
}

// ─────────────────────────────────────────────────────────────────────────────
// COMMAND REPLIES
// ─────────────────────────────────────────────────────────────────────────────

// Registered confirms a registration.
func (p *Presenter) Registered(res *command.RegisterMemberResult) []string {
	if res.FromProfile {
		return p.Blocks(fmt.Sprintf("✅ 已用 LINE 名稱登記：%s", res.Member.Label()),
			"想使用其他名字請輸入「/register 名字」。")
	}
	return p.Blocks(fmt.Sprintf("✅ 已登記：%s", res.Member.Label()))
}

// MarkedDone confirms a completion.
func (p *Presenter) MarkedDone(res *command.MarkDoneResult) []string {
	if res.AlreadyDone {
		return p.Blocks(fmt.Sprintf("👌 %s 今天（%s）已經打過卡了。", res.Member.Label(), res.Date))
	}
	return p.Blocks(fmt.Sprintf("✅ %s 完成 %s 打卡！今天已有 %d 人完成。", res.Member.Label(), res.Date, res.DoneCount))
}

// Status renders today's done/pending split.
func (p *Presenter) Status(res *query.TodayStatusResult) []string {
	total := len(res.Done) + len(res.Pending)
	lines := []string{fmt.Sprintf("📅 %s 打卡狀態", res.Date)}
	if res.PlatformCount >= 0 {
		lines = append(lines, fmt.Sprintf("群組人數：%d，已登記：%d", res.PlatformCount, total))
	} else {
		lines = append(lines, fmt.Sprintf("已登記：%d", total))
	}

	lines = append(lines, "", fmt.Sprintf("✅ 已完成（%d）", len(res.Done)))
	lines = appendMembers(lines, res.Done)
	if res.Unlisted > 0 {
		lines = append(lines, fmt.Sprintf("・另有 %d 位未登記成員", res.Unlisted))
	}

	lines = append(lines, "", fmt.Sprintf("⬜ 未完成（%d）", len(res.Pending)))
	lines = appendMembers(lines, res.Pending)
	return p.Blocks(lines...)
}

// Roster renders the member listing.
func (p *Presenter) Roster(res *query.RosterResult) []string {
	if len(res.Members) == 0 {
		return p.Blocks(MsgEmptyRoster)
	}
	header := fmt.Sprintf("👥 成員名單（%d）", len(res.Members))
	if res.PlatformCount >= 0 {
		header = fmt.Sprintf("👥 成員名單（已登記 %d／群組 %d）", len(res.Members), res.PlatformCount)
	}
	lines := []string{header}
	for i, m := range res.Members {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, m.Label()))
	}
	return p.Blocks(lines...)
}

// Stats renders a range report.
func (p *Presenter) Stats(res *query.StatsResult) []string {
	r := res.Report

	var title string
	if res.Month != "" {
		title = fmt.Sprintf("📊 %s 月統計", res.Month)
	} else {
		title = fmt.Sprintf("📊 最近 %d 天統計", res.Days)
	}
	if len(r.Dates) == 0 {
		return p.Blocks(title, "這段期間沒有可統計的日期。")
	}

	lines := []string{
		title,
		fmt.Sprintf("期間：%s ～ %s（%d 天）", r.Dates[0], r.Dates[len(r.Dates)-1], len(r.Dates)),
		fmt.Sprintf("成員數：%d", r.TotalMembers),
		fmt.Sprintf("每日平均完成：%s 人", r.AverageString()),
	}
	if r.NoData {
		lines = append(lines, "這段期間還沒有任何打卡紀錄。")
	}

	lines = append(lines, "", "📈 每日完成數")
	for _, dc := range r.PerDateCounts {
		lines = append(lines, fmt.Sprintf("%s：%d", dc.Date, dc.Count))
	}

	if r.TotalMembers == 0 {
		lines = append(lines, "", MsgEmptyRoster)
		return p.Blocks(lines...)
	}

	lines = append(lines, "", fmt.Sprintf("🏅 全勤（%d）", len(r.FullAttendance)))
	lines = appendMembers(lines, r.FullAttendance)

	lines = append(lines, "", fmt.Sprintf("🙋 曾出席（%d）", len(r.AnyAttendance)))

	lines = append(lines, "", fmt.Sprintf("📝 未全勤（%d）", len(r.NotFullAttendance)))
	for _, mm := range r.Missed {
		if mm.Count() == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("・%s 缺 %d 天：%s", mm.Member.Label(), mm.Count(), shortDates(mm.Dates)))
	}

	lines = append(lines, "", fmt.Sprintf("💤 從未出席（%d）", len(r.NeverAttended)))
	lines = appendMembers(lines, r.NeverAttended)
	return p.Blocks(lines...)
}

// Help lists the commands.
func (p *Presenter) Help() []string {
	return p.Blocks(
		"📖 打卡小幫手指令",
		"/register [名字]（/r）：登記或更新顯示名稱",
		"/done（/d）：完成今天的練習",
		"/status（/t）：今天誰完成了",
		"/roster（/s）：成員名單",
		"/stats [天數|YYYY-MM]（/st）：統計，預設最近 7 天，最多 90 天",
		"/help（/h）：顯示這份說明",
	)
}

// Notice wraps a single fixed message.
func (p *Presenter) Notice(msg string) []string {
	return p.Blocks(msg)
}

func appendMembers(lines []string, members []attendance.Member) []string {
	if len(members) == 0 {
		return append(lines, "・（無）")
	}
	for _, m := range members {
		lines = append(lines, "・"+m.Label())
	}
	return lines
}

// shortDates renders YYYY-MM-DD keys as MM-DD joined by "、".
func shortDates(dates []string) string {
	out := make([]string, len(dates))
	for i, d := range dates {
		if len(d) == 10 {
			d = d[5:]
		}
		out[i] = d
	}
	return strings.Join(out, "、")
}
