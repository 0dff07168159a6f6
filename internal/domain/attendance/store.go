package attendance

import (
	"context"

	"github.com/dailypractice/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORE CONTRACT
// Implementations live in infrastructure/persistence (redis, postgres, memory,
// failover). Callers never know which one served a request.
// ══════════════════════════════════════════════════════════════════════════════

// Store persists chat rosters and per-date completion sets.
// Every operation is scoped by chatID and every mutation is idempotent.
type Store interface {
	// ─────────────────────────────────────────────────────────────────────────
	// Roster
	// ─────────────────────────────────────────────────────────────────────────

	// UpsertMember sets the member's display name (last write wins).
	UpsertMember(ctx context.Context, chatID string, member Member) error

	// HasMember reports whether the roster already knows memberID.
	HasMember(ctx context.Context, chatID, memberID string) (bool, error)

	// RemoveMember drops the roster entry. Completion history is kept.
	RemoveMember(ctx context.Context, chatID, memberID string) error

	// ListMembers returns the roster in no particular order.
	// An unknown chat yields an empty slice, not an error.
	ListMembers(ctx context.Context, chatID string) ([]Member, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Completion sets
	// ─────────────────────────────────────────────────────────────────────────

	// MarkComplete adds memberID to the set for dateKey.
	MarkComplete(ctx context.Context, chatID, dateKey, memberID string) error

	// CompletedIDs returns the set for dateKey, empty when none recorded.
	CompletedIDs(ctx context.Context, chatID, dateKey string) (IDSet, error)

	// CompletedIDsByDate returns one set per requested date key.
	// Every requested key is present in the result.
	CompletedIDsByDate(ctx context.Context, chatID string, dateKeys []string) (map[string]IDSet, error)

	// Ping checks backend reachability.
	Ping(ctx context.Context) error
}

// UnavailableStore is used when no backend is configured and the in-memory
// fallback is disabled. Every call fails with shared.ErrStoreUnavailable.
type UnavailableStore struct{}

var _ Store = UnavailableStore{}

func (UnavailableStore) UpsertMember(context.Context, string, Member) error {
	return shared.ErrStoreUnavailable
}

func (UnavailableStore) HasMember(context.Context, string, string) (bool, error) {
	return false, shared.ErrStoreUnavailable
}

func (UnavailableStore) RemoveMember(context.Context, string, string) error {
	return shared.ErrStoreUnavailable
}

func (UnavailableStore) ListMembers(context.Context, string) ([]Member, error) {
	return nil, shared.ErrStoreUnavailable
}

func (UnavailableStore) MarkComplete(context.Context, string, string, string) error {
	return shared.ErrStoreUnavailable
}

func (UnavailableStore) CompletedIDs(context.Context, string, string) (IDSet, error) {
	return nil, shared.ErrStoreUnavailable
}

func (UnavailableStore) CompletedIDsByDate(context.Context, string, []string) (map[string]IDSet, error) {
	return nil, shared.ErrStoreUnavailable
}

func (UnavailableStore) Ping(context.Context) error {
	return shared.ErrStoreUnavailable
}
