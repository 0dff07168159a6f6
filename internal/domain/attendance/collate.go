package attendance

import (
	"sort"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultLocale is used when no collation locale is configured.
const DefaultLocale = "zh-Hant"

// Collator orders members by display name using locale-aware comparison.
// Ties are broken by member id so the order is total and stable.
type Collator struct {
	mu sync.Mutex // collate.Collator keeps internal buffers
	c  *collate.Collator
}

// NewCollator builds a collator for a BCP 47 locale. Unknown tags fall back
// to DefaultLocale.
func NewCollator(locale string) *Collator {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse(DefaultLocale)
	}
	return &Collator{c: collate.New(tag)}
}

// Compare returns -1, 0 or 1.
func (c *Collator) Compare(a, b Member) int {
	c.mu.Lock()
	r := c.c.CompareString(a.Label(), b.Label())
	c.mu.Unlock()
	if r != 0 {
		return r
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}

// SortMembers sorts members in place.
func (c *Collator) SortMembers(members []Member) {
	sort.SliceStable(members, func(i, j int) bool {
		return c.Compare(members[i], members[j]) < 0
	})
}
