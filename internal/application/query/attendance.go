// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/dailypractice/attendance-hub/internal/domain/attendance"
	"github.com/dailypractice/attendance-hub/internal/domain/shared"
	"github.com/dailypractice/attendance-hub/pkg/logger"
	"github.com/dailypractice/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE QUERIES
// Today's split, the roster listing and range statistics. All three read the
// same store and sort names with the same collator.
// ══════════════════════════════════════════════════════════════════════════════

// MemberCounter reports how many members a chat has on the platform.
type MemberCounter interface {
	MemberCount(ctx context.Context, chatID string) (int, error)
}

// Service answers attendance queries.
type Service struct {
	store    attendance.Store
	calendar *timeutil.Calendar
	collator *attendance.Collator
	counter  MemberCounter
	maxDays  int
	logger   *logger.Logger
}

// ServiceConfig holds optional collaborators.
type ServiceConfig struct {
	// Counter supplies the platform member count. Optional.
	Counter MemberCounter

	// Collator orders names. Defaults to DefaultLocale.
	Collator *attendance.Collator

	// MaxDays caps day ranges (default: 90).
	MaxDays int

	Logger *logger.Logger
}

// NewService creates a query service.
func NewService(store attendance.Store, calendar *timeutil.Calendar, cfg ServiceConfig) *Service {
	if cfg.Collator == nil {
		cfg.Collator = attendance.NewCollator(attendance.DefaultLocale)
	}
	if cfg.MaxDays <= 0 {
		cfg.MaxDays = 90
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	return &Service{
		store:    store,
		calendar: calendar,
		collator: cfg.Collator,
		counter:  cfg.Counter,
		maxDays:  cfg.MaxDays,
		logger:   cfg.Logger.With(logger.Component("attendance_query")),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// TODAY STATUS
// ─────────────────────────────────────────────────────────────────────────────

// TodayStatusResult splits the roster by today's completion.
type TodayStatusResult struct {
	Date    string
	Done    []attendance.Member
	Pending []attendance.Member

	// Unlisted counts completions by ids missing from the roster.
	Unlisted int

	// PlatformCount is the platform member count, or -1 when unknown.
	PlatformCount int
}

// TodayStatus returns today's done/pending split for a chat.
func (s *Service) TodayStatus(ctx context.Context, chatID string) (*TodayStatusResult, error) {
	if chatID == "" {
		return nil, fmt.Errorf("today_status: %w", shared.ErrInvalidChatID)
	}
	date := s.calendar.Today()

	members, err := s.store.ListMembers(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("today_status: %w", err)
	}
	done, err := s.store.CompletedIDs(ctx, chatID, date)
	if err != nil {
		return nil, fmt.Errorf("today_status: %w", err)
	}

	res := &TodayStatusResult{
		Date:          date,
		Done:          []attendance.Member{},
		Pending:       []attendance.Member{},
		PlatformCount: s.platformCount(ctx, chatID),
	}

	listed := 0
	for _, m := range members {
		if done.Has(m.ID) {
			res.Done = append(res.Done, m)
			listed++
		} else {
			res.Pending = append(res.Pending, m)
		}
	}
	res.Unlisted = done.Len() - listed
	s.collator.SortMembers(res.Done)
	s.collator.SortMembers(res.Pending)
	return res, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// ROSTER
// ─────────────────────────────────────────────────────────────────────────────

// RosterResult lists a chat's known members.
type RosterResult struct {
	Members       []attendance.Member
	PlatformCount int
}

// Roster returns every known member of a chat, sorted by name.
func (s *Service) Roster(ctx context.Context, chatID string) (*RosterResult, error) {
	if chatID == "" {
		return nil, fmt.Errorf("roster: %w", shared.ErrInvalidChatID)
	}
	members, err := s.store.ListMembers(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	sorted := make([]attendance.Member, len(members))
	copy(sorted, members)
	s.collator.SortMembers(sorted)
	return &RosterResult{Members: sorted, PlatformCount: s.platformCount(ctx, chatID)}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// STATS
// ─────────────────────────────────────────────────────────────────────────────

// StatsQuery selects either the last Days days or a calendar month.
type StatsQuery struct {
	ChatID string
	Days   int
	Year   int
	Month  time.Month
}

// IsMonth reports whether the query targets a calendar month.
func (q StatsQuery) IsMonth() bool { return q.Month != 0 }

// StatsResult wraps the aggregated report with its range label.
type StatsResult struct {
	// Month is "YYYY-MM" for month queries, empty otherwise.
	Month string

	// Days is the requested length for day queries.
	Days int

	Report attendance.Report
}

// Stats aggregates completion sets over the selected range.
func (s *Service) Stats(ctx context.Context, q StatsQuery) (*StatsResult, error) {
	if q.ChatID == "" {
		return nil, fmt.Errorf("stats: %w", shared.ErrInvalidChatID)
	}

	res := &StatsResult{}
	var dates []string
	if q.IsMonth() {
		if q.Month < time.January || q.Month > time.December {
			return nil, fmt.Errorf("stats: month %d: %w", q.Month, shared.ErrValueOutOfRange)
		}
		res.Month = fmt.Sprintf("%04d-%02d", q.Year, int(q.Month))
		dates = s.calendar.MonthDays(q.Year, q.Month)
	} else {
		days := q.Days
		if days <= 0 {
			days = 7
		}
		if days > s.maxDays {
			days = s.maxDays
		}
		res.Days = days
		dates = s.calendar.LastNDays(days)
	}

	members, err := s.store.ListMembers(ctx, q.ChatID)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	sets := map[string]attendance.IDSet{}
	if len(dates) > 0 {
		sets, err = s.store.CompletedIDsByDate(ctx, q.ChatID, dates)
		if err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}

	res.Report = attendance.BuildReport(members, dates, sets, s.collator)
	s.logger.Debug("stats built",
		logger.ChatID(q.ChatID),
		logger.Int("dates", len(dates)),
		logger.Int("members", res.Report.TotalMembers),
	)
	return res, nil
}

func (s *Service) platformCount(ctx context.Context, chatID string) int {
	if s.counter == nil {
		return -1
	}
	n, err := s.counter.MemberCount(ctx, chatID)
	if err != nil {
		s.logger.Debug("member count unavailable", logger.ChatID(chatID), logger.Err(err))
		return -1
	}
	return n
}
