package command

import (
	"context"
	"fmt"

	"github.com/dailypractice/attendance-hub/internal/domain/attendance"
	"github.com/dailypractice/attendance-hub/internal/domain/shared"
	"github.com/dailypractice/attendance-hub/pkg/logger"
)

// RemoveMembersCommand drops members from a chat roster after they leave.
// Completion history is kept.
type RemoveMembersCommand struct {
	ChatID    string
	MemberIDs []string
}

// RemoveMembersHandler handles RemoveMembersCommand.
type RemoveMembersHandler struct {
	store  attendance.Store
	logger *logger.Logger
}

// NewRemoveMembersHandler creates a new handler.
func NewRemoveMembersHandler(store attendance.Store, log *logger.Logger) *RemoveMembersHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RemoveMembersHandler{store: store, logger: log.With(logger.Component("remove_member"))}
}

// Handle removes every listed member and returns the first error, if any.
func (h *RemoveMembersHandler) Handle(ctx context.Context, cmd RemoveMembersCommand) (int, error) {
	if cmd.ChatID == "" {
		return 0, fmt.Errorf("remove_member: %w", shared.ErrInvalidChatID)
	}

	removed := 0
	var firstErr error
	for _, id := range cmd.MemberIDs {
		if id == "" {
			continue
		}
		if err := h.store.RemoveMember(ctx, cmd.ChatID, id); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove_member: %w", err)
			}
			continue
		}
		removed++
		h.logger.Info("member removed", logger.ChatID(cmd.ChatID), logger.MemberID(id))
	}
	return removed, firstErr
}
