package command

import (
	"context"

	"github.com/dailypractice/attendance-hub/internal/domain/attendance"
	"github.com/dailypractice/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CAPTURE MEMBER COMMAND
// Implicit registration for members who speak or join. Best effort: nothing
// here ever fails the caller. Members already on the roster are left alone so
// a custom name survives later messages.
// ══════════════════════════════════════════════════════════════════════════════

// CaptureMembersCommand lists members observed in a chat.
type CaptureMembersCommand struct {
	ChatID    string
	MemberIDs []string
}

// CaptureMembersResult reports what was captured.
type CaptureMembersResult struct {
	Captured []attendance.Member
	Skipped  int
	Failed   int
}

// CaptureMembersHandler handles CaptureMembersCommand.
type CaptureMembersHandler struct {
	store    attendance.Store
	profiles ProfileLookup
	logger   *logger.Logger
}

// NewCaptureMembersHandler creates a new handler.
func NewCaptureMembersHandler(store attendance.Store, profiles ProfileLookup, log *logger.Logger) *CaptureMembersHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CaptureMembersHandler{
		store:    store,
		profiles: profiles,
		logger:   log.With(logger.Component("capture_member")),
	}
}

// Handle captures unknown members. Errors are logged and counted, never returned.
func (h *CaptureMembersHandler) Handle(ctx context.Context, cmd CaptureMembersCommand) CaptureMembersResult {
	var res CaptureMembersResult
	if cmd.ChatID == "" || h.profiles == nil {
		res.Skipped = len(cmd.MemberIDs)
		return res
	}

	for _, id := range cmd.MemberIDs {
		if id == "" {
			res.Skipped++
			continue
		}
		if ctx.Err() != nil {
			res.Failed++
			continue
		}

		known, err := h.store.HasMember(ctx, cmd.ChatID, id)
		if err != nil {
			h.logger.Warn("roster lookup failed", logger.ChatID(cmd.ChatID), logger.MemberID(id), logger.Err(err))
			res.Failed++
			continue
		}
		if known {
			res.Skipped++
			continue
		}

		name, err := h.profiles.DisplayName(ctx, cmd.ChatID, id)
		if err != nil {
			h.logger.Debug("profile lookup failed", logger.ChatID(cmd.ChatID), logger.MemberID(id), logger.Err(err))
			res.Failed++
			continue
		}

		member, err := attendance.NewMember(id, name)
		if err != nil {
			res.Failed++
			continue
		}
		if err := h.store.UpsertMember(ctx, cmd.ChatID, member); err != nil {
			h.logger.Warn("member capture failed", logger.ChatID(cmd.ChatID), logger.MemberID(id), logger.Err(err))
			res.Failed++
			continue
		}
		res.Captured = append(res.Captured, member)
	}

	if len(res.Captured) > 0 {
		h.logger.Debug("members captured", logger.ChatID(cmd.ChatID), logger.Int("count", len(res.Captured)))
	}
	return res
}
