// Package memory provides a process-local attendance store.
// Data lives as long as the store value does; nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"github.com/dailypractice/attendance-hub/internal/domain/attendance"
)

type chatData struct {
	members map[string]string
	done    map[string]attendance.IDSet
}

// AttendanceStore implements attendance.Store with maps guarded by a RWMutex.
type AttendanceStore struct {
	mu    sync.RWMutex
	chats map[string]*chatData
}

var _ attendance.Store = (*AttendanceStore)(nil)

// NewAttendanceStore creates an empty store.
func NewAttendanceStore() *AttendanceStore {
	return &AttendanceStore{chats: make(map[string]*chatData)}
}

// chat returns the chat's data, creating it. Caller holds the write lock.
func (s *AttendanceStore) chat(chatID string) *chatData {
	c, ok := s.chats[chatID]
	if !ok {
		c = &chatData{
			members: make(map[string]string),
			done:    make(map[string]attendance.IDSet),
		}
		s.chats[chatID] = c
	}
	return c
}

func (s *AttendanceStore) UpsertMember(_ context.Context, chatID string, member attendance.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat(chatID).members[member.ID] = member.DisplayName
	return nil
}

func (s *AttendanceStore) HasMember(_ context.Context, chatID, memberID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[chatID]
	if !ok {
		return false, nil
	}
	_, ok = c.members[memberID]
	return ok, nil
}

func (s *AttendanceStore) RemoveMember(_ context.Context, chatID, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.chats[chatID]; ok {
		delete(c.members, memberID)
	}
	return nil
}

func (s *AttendanceStore) ListMembers(_ context.Context, chatID string) ([]attendance.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[chatID]
	if !ok {
		return []attendance.Member{}, nil
	}
	members := make([]attendance.Member, 0, len(c.members))
	for id, name := range c.members {
		members = append(members, attendance.Member{ID: id, DisplayName: name})
	}
	return members, nil
}

func (s *AttendanceStore) MarkComplete(_ context.Context, chatID, dateKey, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.chat(chatID)
	set, ok := c.done[dateKey]
	if !ok {
		set = attendance.NewIDSet()
		c.done[dateKey] = set
	}
	set.Add(memberID)
	return nil
}

func (s *AttendanceStore) CompletedIDs(_ context.Context, chatID, dateKey string) (attendance.IDSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completed(chatID, dateKey), nil
}

func (s *AttendanceStore) CompletedIDsByDate(_ context.Context, chatID string, dateKeys []string) (map[string]attendance.IDSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]attendance.IDSet, len(dateKeys))
	for _, d := range dateKeys {
		out[d] = s.completed(chatID, d)
	}
	return out, nil
}

// completed returns a copy so callers never share the internal set.
func (s *AttendanceStore) completed(chatID, dateKey string) attendance.IDSet {
	c, ok := s.chats[chatID]
	if !ok {
		return attendance.NewIDSet()
	}
	return c.done[dateKey].Clone()
}

// Ping always succeeds.
func (s *AttendanceStore) Ping(context.Context) error { return nil }
