package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/dailypractice/attendance-hub/internal/domain/attendance"
	"github.com/dailypractice/attendance-hub/internal/domain/shared"
	"github.com/dailypractice/attendance-hub/pkg/logger"
	"github.com/dailypractice/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MARK DONE COMMAND
// Adds the sender to today's completion set. Idempotent.
// ══════════════════════════════════════════════════════════════════════════════

// MarkDoneCommand contains the data to mark today's practice complete.
type MarkDoneCommand struct {
	ChatID   string
	MemberID string
}

// Validate validates the command.
func (c MarkDoneCommand) Validate() error {
	if strings.TrimSpace(c.ChatID) == "" {
		return fmt.Errorf("mark_done: %w", shared.ErrInvalidChatID)
	}
	if strings.TrimSpace(c.MemberID) == "" {
		return fmt.Errorf("mark_done: %w", shared.ErrInvalidMemberID)
	}
	return nil
}

// MarkDoneResult contains the outcome.
type MarkDoneResult struct {
	// Date is the date key the completion was recorded under.
	Date string

	// Member is the roster entry, or a placeholder labelled with the id.
	Member attendance.Member

	// AlreadyDone is true when the member had already completed today.
	AlreadyDone bool

	// DoneCount is the size of today's completion set afterwards.
	DoneCount int
}

// MarkDoneHandler handles MarkDoneCommand.
type MarkDoneHandler struct {
	store    attendance.Store
	calendar *timeutil.Calendar
	logger   *logger.Logger
}

// NewMarkDoneHandler creates a new handler.
func NewMarkDoneHandler(store attendance.Store, calendar *timeutil.Calendar, log *logger.Logger) *MarkDoneHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &MarkDoneHandler{
		store:    store,
		calendar: calendar,
		logger:   log.With(logger.Component("mark_done")),
	}
}

// Handle executes the command.
func (h *MarkDoneHandler) Handle(ctx context.Context, cmd MarkDoneCommand) (*MarkDoneResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	date := h.calendar.Today()

	before, err := h.store.CompletedIDs(ctx, cmd.ChatID, date)
	if err != nil {
		return nil, fmt.Errorf("mark_done: %w", err)
	}
	already := before.Has(cmd.MemberID)

	if !already {
		if err := h.store.MarkComplete(ctx, cmd.ChatID, date, cmd.MemberID); err != nil {
			return nil, fmt.Errorf("mark_done: %w", err)
		}
	}

	count := before.Len()
	if !already {
		count++
	}

	res := &MarkDoneResult{
		Date:        date,
		Member:      attendance.Member{ID: cmd.MemberID},
		AlreadyDone: already,
		DoneCount:   count,
	}

	members, err := h.store.ListMembers(ctx, cmd.ChatID)
	if err != nil {
		h.logger.Warn("roster read failed", logger.ChatID(cmd.ChatID), logger.Err(err))
	}
	for _, m := range members {
		if m.ID == cmd.MemberID {
			res.Member = m
			break
		}
	}

	h.logger.Info("practice marked done",
		logger.ChatID(cmd.ChatID),
		logger.MemberID(cmd.MemberID),
		logger.DateKey(date),
		logger.Bool("already_done", already),
	)
	return res, nil
}
