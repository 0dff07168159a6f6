package attendance

import (
	"strings"
	"unicode/utf8"

	"github.com/dailypractice/attendance-hub/internal/domain/shared"
)

// MaxNameLength is the maximum display name length in runes.
const MaxNameLength = 50

// Member is a chat participant known to the roster.
type Member struct {
	ID          string
	DisplayName string
}

// NewMember validates the id and normalizes the name.
// An empty name falls back to the member id.
func NewMember(id, name string) (Member, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Member{}, shared.ErrInvalidMemberID
	}
	name = NormalizeName(name)
	if name == "" {
		name = id
	}
	return Member{ID: id, DisplayName: name}, nil
}

// Label returns the display name, or the id when no name is stored.
func (m Member) Label() string {
	if m.DisplayName == "" {
		return m.ID
	}
	return m.DisplayName
}

// NormalizeName strips newlines, collapses internal whitespace to single spaces
// and truncates to MaxNameLength runes.
func NormalizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if utf8.RuneCountInString(name) <= MaxNameLength {
		return name
	}
	runes := []rune(name)
	return strings.TrimSpace(string(runes[:MaxNameLength]))
}

// IDSet is a set of member ids.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set. Safe on a nil set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id.
func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

// Len returns the set size.
func (s IDSet) Len() int { return len(s) }

// Clone returns an independent copy.
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}
