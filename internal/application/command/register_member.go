// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dailypractice/attendance-hub/internal/domain/attendance"
	"github.com/dailypractice/attendance-hub/internal/domain/shared"
	"github.com/dailypractice/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER MEMBER COMMAND
// Explicit registration: stores a custom display name, or refreshes the name
// from the platform profile when none is given. Last write wins.
// ══════════════════════════════════════════════════════════════════════════════

// ProfileLookup resolves a member's current platform display name.
type ProfileLookup interface {
	DisplayName(ctx context.Context, chatID, memberID string) (string, error)
}

// RegisterMemberCommand contains the data to register a member.
type RegisterMemberCommand struct {
	// ChatID is the group or room id.
	ChatID string

	// MemberID is the platform user id.
	MemberID string

	// Name is the requested display name. Empty means "use the profile".
	Name string
}

// Validate validates the command.
func (c RegisterMemberCommand) Validate() error {
	if strings.TrimSpace(c.ChatID) == "" {
		return fmt.Errorf("register_member: %w", shared.ErrInvalidChatID)
	}
	if strings.TrimSpace(c.MemberID) == "" {
		return fmt.Errorf("register_member: %w", shared.ErrInvalidMemberID)
	}
	return nil
}

// RegisterMemberResult contains the stored roster entry.
type RegisterMemberResult struct {
	Member attendance.Member

	// FromProfile is true when the name came from the platform profile.
	FromProfile bool
}

// RegisterMemberHandler handles RegisterMemberCommand.
type RegisterMemberHandler struct {
	store    attendance.Store
	profiles ProfileLookup
	logger   *logger.Logger
}

// NewRegisterMemberHandler creates a new handler.
func NewRegisterMemberHandler(store attendance.Store, profiles ProfileLookup, log *logger.Logger) *RegisterMemberHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RegisterMemberHandler{
		store:    store,
		profiles: profiles,
		logger:   log.With(logger.Component("register_member")),
	}
}

// Handle executes the command.
// Returns shared.ErrProfileNotFound when no name was given and the profile
// could not be resolved.
func (h *RegisterMemberHandler) Handle(ctx context.Context, cmd RegisterMemberCommand) (*RegisterMemberResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	name := attendance.NormalizeName(cmd.Name)
	fromProfile := false
	if name == "" {
		if h.profiles == nil {
			return nil, fmt.Errorf("register_member: %w", shared.ErrProfileNotFound)
		}
		profileName, err := h.profiles.DisplayName(ctx, cmd.ChatID, cmd.MemberID)
		if err != nil {
			h.logger.Debug("profile lookup failed",
				logger.ChatID(cmd.ChatID),
				logger.MemberID(cmd.MemberID),
				logger.Err(err),
			)
			if errors.Is(err, shared.ErrProfileNotFound) {
				return nil, fmt.Errorf("register_member: %w", err)
			}
			return nil, fmt.Errorf("register_member: %w: %v", shared.ErrProfileNotFound, err)
		}
		name = attendance.NormalizeName(profileName)
		if name == "" {
			return nil, fmt.Errorf("register_member: empty profile name: %w", shared.ErrProfileNotFound)
		}
		fromProfile = true
	}

	member, err := attendance.NewMember(cmd.MemberID, name)
	if err != nil {
		return nil, fmt.Errorf("register_member: %w", err)
	}
	if err := h.store.UpsertMember(ctx, cmd.ChatID, member); err != nil {
		return nil, fmt.Errorf("register_member: %w", err)
	}

	h.logger.Info("member registered",
		logger.ChatID(cmd.ChatID),
		logger.MemberID(member.ID),
		logger.Bool("from_profile", fromProfile),
	)
	return &RegisterMemberResult{Member: member, FromProfile: fromProfile}, nil
}
