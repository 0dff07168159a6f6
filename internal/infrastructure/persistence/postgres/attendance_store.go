package postgres

import (
	"context"
	"fmt"

	"github.com/dailypractice/attendance-hub/internal/domain/attendance"
)

// AttendanceStore implements attendance.Store on two tables:
// chat_members (roster) and completions (one row per chat, date and member).
type AttendanceStore struct {
	conn *Connection
}

var _ attendance.Store = (*AttendanceStore)(nil)

// NewAttendanceStore creates a store over conn. Run the Migrator first.
func NewAttendanceStore(conn *Connection) *AttendanceStore {
	return &AttendanceStore{conn: conn}
}

func (s *AttendanceStore) UpsertMember(ctx context.Context, chatID string, member attendance.Member) error {
	const q = `
		INSERT INTO chat_members (chat_id, member_id, display_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (chat_id, member_id)
		DO UPDATE SET display_name = EXCLUDED.display_name, updated_at = NOW()`

	if _, err := s.conn.Exec(ctx, q, chatID, member.ID, member.DisplayName); err != nil {
		return fmt.Errorf("postgres store: upsert member: %w", err)
	}
	return nil
}

func (s *AttendanceStore) HasMember(ctx context.Context, chatID, memberID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM chat_members WHERE chat_id = $1 AND member_id = $2)`

	var ok bool
	if err := s.conn.QueryRow(ctx, q, chatID, memberID).Scan(&ok); err != nil {
		return false, fmt.Errorf("postgres store: has member: %w", err)
	}
	return ok, nil
}

func (s *AttendanceStore) RemoveMember(ctx context.Context, chatID, memberID string) error {
	const q = `DELETE FROM chat_members WHERE chat_id = $1 AND member_id = $2`

	if _, err := s.conn.Exec(ctx, q, chatID, memberID); err != nil {
		return fmt.Errorf("postgres store: remove member: %w", err)
	}
	return nil
}

func (s *AttendanceStore) ListMembers(ctx context.Context, chatID string) ([]attendance.Member, error) {
	const q = `SELECT member_id, display_name FROM chat_members WHERE chat_id = $1`

	rows, err := s.conn.Query(ctx, q, chatID)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list members: %w", err)
	}
	defer rows.Close()

	members := make([]attendance.Member, 0)
	for rows.Next() {
		var m attendance.Member
		if err := rows.Scan(&m.ID, &m.DisplayName); err != nil {
			return nil, fmt.Errorf("postgres store: scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *AttendanceStore) MarkComplete(ctx context.Context, chatID, dateKey, memberID string) error {
	const q = `
		INSERT INTO completions (chat_id, date_key, member_id)
		VALUES ($1, $2::text::date, $3)
		ON CONFLICT DO NOTHING`

	if _, err := s.conn.Exec(ctx, q, chatID, dateKey, memberID); err != nil {
		return fmt.Errorf("postgres store: mark complete: %w", err)
	}
	return nil
}

func (s *AttendanceStore) CompletedIDs(ctx context.Context, chatID, dateKey string) (attendance.IDSet, error) {
	sets, err := s.CompletedIDsByDate(ctx, chatID, []string{dateKey})
	if err != nil {
		return nil, err
	}
	return sets[dateKey], nil
}

// CompletedIDsByDate loads every requested date in one query.
func (s *AttendanceStore) CompletedIDsByDate(ctx context.Context, chatID string, dateKeys []string) (map[string]attendance.IDSet, error) {
	out := make(map[string]attendance.IDSet, len(dateKeys))
	for _, d := range dateKeys {
		out[d] = attendance.NewIDSet()
	}
	if len(dateKeys) == 0 {
		return out, nil
	}

	const q = `
		SELECT to_char(date_key, 'YYYY-MM-DD'), member_id
		FROM completions
		WHERE chat_id = $1 AND date_key = ANY($2::text[]::date[])`

	rows, err := s.conn.Query(ctx, q, chatID, dateKeys)
	if err != nil {
		return nil, fmt.Errorf("postgres store: completed ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var date, memberID string
		if err := rows.Scan(&date, &memberID); err != nil {
			return nil, fmt.Errorf("postgres store: scan completion: %w", err)
		}
		if set, ok := out[date]; ok {
			set.Add(memberID)
		}
	}
	return out, rows.Err()
}

func (s *AttendanceStore) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}
