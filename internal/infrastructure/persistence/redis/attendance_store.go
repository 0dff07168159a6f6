package redis

import (
	"context"
	"fmt"

	"github.com/dailypractice/attendance-hub/internal/domain/attendance"
)

// ══════════════════════════════════════════════════════════════════════════════
// KEYS
// ══════════════════════════════════════════════════════════════════════════════

// PrefixAttendance namespaces every key written by the store.
const PrefixAttendance = "attendance:"

// MembersKey is the roster hash for a chat (member id -> display name).
func MembersKey(chatID string) string {
	return PrefixAttendance + chatID + ":members"
}

// DoneKey is the completion set for a chat on one date.
func DoneKey(chatID, dateKey string) string {
	return PrefixAttendance + chatID + ":done:" + dateKey
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceStore implements attendance.Store on Redis.
type AttendanceStore struct {
	client *Client
}

var _ attendance.Store = (*AttendanceStore)(nil)

// NewAttendanceStore creates a store over client.
func NewAttendanceStore(client *Client) *AttendanceStore {
	return &AttendanceStore{client: client}
}

// UpsertMember sets the roster field for the member.
func (s *AttendanceStore) UpsertMember(ctx context.Context, chatID string, member attendance.Member) error {
	if err := s.client.HSet(ctx, MembersKey(chatID), member.ID, member.DisplayName); err != nil {
		return fmt.Errorf("redis store: upsert member: %w", err)
	}
	return nil
}

// HasMember checks the roster hash field.
func (s *AttendanceStore) HasMember(ctx context.Context, chatID, memberID string) (bool, error) {
	ok, err := s.client.HExists(ctx, MembersKey(chatID), memberID)
	if err != nil {
		return false, fmt.Errorf("redis store: has member: %w", err)
	}
	return ok, nil
}

// RemoveMember deletes the roster field.
func (s *AttendanceStore) RemoveMember(ctx context.Context, chatID, memberID string) error {
	if err := s.client.HDel(ctx, MembersKey(chatID), memberID); err != nil {
		return fmt.Errorf("redis store: remove member: %w", err)
	}
	return nil
}

// ListMembers reads the whole roster hash.
func (s *AttendanceStore) ListMembers(ctx context.Context, chatID string) ([]attendance.Member, error) {
	fields, err := s.client.HGetAll(ctx, MembersKey(chatID))
	if err != nil {
		return nil, fmt.Errorf("redis store: list members: %w", err)
	}

	members := make([]attendance.Member, 0, len(fields))
	for id, name := range fields {
		members = append(members, attendance.Member{ID: id, DisplayName: name})
	}
	return members, nil
}

// MarkComplete adds the member to the date's completion set.
func (s *AttendanceStore) MarkComplete(ctx context.Context, chatID, dateKey, memberID string) error {
	if err := s.client.SAdd(ctx, DoneKey(chatID, dateKey), memberID); err != nil {
		return fmt.Errorf("redis store: mark complete: %w", err)
	}
	return nil
}

// CompletedIDs reads one completion set.
func (s *AttendanceStore) CompletedIDs(ctx context.Context, chatID, dateKey string) (attendance.IDSet, error) {
	ids, err := s.client.SMembers(ctx, DoneKey(chatID, dateKey))
	if err != nil {
		return nil, fmt.Errorf("redis store: completed ids: %w", err)
	}
	return attendance.NewIDSet(ids...), nil
}

// CompletedIDsByDate reads all requested sets in a single pipeline.
func (s *AttendanceStore) CompletedIDsByDate(ctx context.Context, chatID string, dateKeys []string) (map[string]attendance.IDSet, error) {
	keys := make([]string, len(dateKeys))
	for i, d := range dateKeys {
		keys[i] = DoneKey(chatID, d)
	}

	results, err := s.client.SMembersMany(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("redis store: completed ids by date: %w", err)
	}

	out := make(map[string]attendance.IDSet, len(dateKeys))
	for i, d := range dateKeys {
		out[d] = attendance.NewIDSet(results[i]...)
	}
	return out, nil
}

// Ping checks Redis reachability.
func (s *AttendanceStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
