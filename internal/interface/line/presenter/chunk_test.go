package presenter

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_Basic(t *testing.T) {
	assert.Empty(t, Chunk(nil, 10))
	assert.Equal(t, []string{"a\nb\nc"}, Chunk([]string{"a", "b", "c"}, 10))
	assert.Equal(t, []string{"aaaa\nbbbb", "cc"}, Chunk([]string{"aaaa", "bbbb", "cc"}, 9))
}

func TestChunk_ExactLimit(t *testing.T) {
	blocks := Chunk([]string{"aaaa", "bbbb"}, 9)
	assert.Equal(t, []string{"aaaa\nbbbb"}, blocks)

	blocks = Chunk([]string{"aaaa", "bbbb"}, 8)
	assert.Equal(t, []string{"aaaa", "bbbb"}, blocks)
}

func TestChunk_OversizeLineAlone(t *testing.T) {
	long := strings.Repeat("x", 20)
	blocks := Chunk([]string{"a", long, "b"}, 10)
	assert.Equal(t, []string{"a", long, "b"}, blocks)
}

func TestChunk_CountsRunes(t *testing.T) {
	blocks := Chunk([]string{"王小明", "陳大文"}, 7)
	assert.Equal(t, []string{"王小明\n陳大文"}, blocks)
}

func TestChunk_DefaultLimit(t *testing.T) {
	lines := make([]string, 0, 1000)
	for i := 0; i < 1000; i++ {
		lines = append(lines, fmt.Sprintf("member-%04d", i))
	}
	blocks := Chunk(lines, 0)
	require.Greater(t, len(blocks), 1)
	for _, b := range blocks {
		assert.LessOrEqual(t, utf8.RuneCountInString(b), DefaultChunkLimit)
	}
}

func TestChunk_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("ab王明 ")

	for iter := 0; iter < 200; iter++ {
		lines := make([]string, rng.Intn(30))
		for i := range lines {
			n := rng.Intn(15)
			rs := make([]rune, n)
			for j := range rs {
				rs[j] = alphabet[rng.Intn(len(alphabet))]
			}
			lines[i] = string(rs)
		}
		limit := 1 + rng.Intn(20)

		blocks := Chunk(lines, limit)
		if len(lines) == 0 {
			assert.Empty(t, blocks)
			continue
		}

		assert.Equal(t, lines, strings.Split(strings.Join(blocks, "\n"), "\n"))
		for _, b := range blocks {
			if utf8.RuneCountInString(b) > limit {
				assert.NotContains(t, b, "\n", "only a single oversize line may exceed the limit")
			}
		}
	}
}
