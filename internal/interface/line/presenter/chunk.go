// Package presenter renders attendance results as LINE text messages.
package presenter

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkLimit keeps a block under the 5000 character LINE text limit.
const DefaultChunkLimit = 4500

// Chunk packs lines into blocks of at most limit runes, joining lines with a
// single newline. A line longer than limit becomes a block of its own and is
// never split. Joining the blocks with "\n" yields strings.Join(lines, "\n").
func Chunk(lines []string, limit int) []string {
	if limit <= 0 {
		limit = DefaultChunkLimit
	}

	blocks := make([]string, 0, 1)
	var cur []string
	curLen := 0

	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = cur[:0]
			curLen = 0
		}
	}

	for _, line := range lines {
		n := utf8.RuneCountInString(line)
		switch {
		case n > limit:
			flush()
			blocks = append(blocks, line)
		case len(cur) == 0:
			cur = append(cur, line)
			curLen = n
		case curLen+1+n <= limit:
			cur = append(cur, line)
			curLen += 1 + n
		default:
			flush()
			cur = append(cur, line)
			curLen = n
		}
	}
	flush()
	return blocks
}
