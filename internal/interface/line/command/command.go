// Package command turns raw chat text into a closed set of attendance commands.
package command

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"

	"github.com/dailypractice/attendance-hub/internal/domain/attendance"
	"github.com/dailypractice/attendance-hub/pkg/timeutil"
)

// Kind identifies a command. The set is closed; downstream code switches
// over every value.
type Kind int

const (
	KindRegister Kind = iota + 1
	KindMarkDone
	KindStatus
	KindRoster
	KindStats
	KindHelp
)

// String returns the canonical verb without the slash.
func (k Kind) String() string {
	switch k {
	case KindRegister:
		return "register"
	case KindMarkDone:
		return "done"
	case KindStatus:
		return "status"
	case KindRoster:
		return "roster"
	case KindStats:
		return "stats"
	case KindHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Stats range limits.
const (
	DefaultStatsDays = 7
	MaxStatsDays     = 90
)

// Command is a parsed chat command.
type Command struct {
	Kind Kind

	// Name is the custom display name for KindRegister, already normalized.
	// Empty means "use the platform profile".
	Name string

	// Days is the range length for KindStats when Month is zero.
	Days int

	// Year and Month select a calendar month for KindStats.
	Year  int
	Month time.Month
}

// IsMonth reports whether a stats command targets a calendar month.
func (c Command) IsMonth() bool {
	return c.Kind == KindStats && c.Month != 0
}

// verbs maps every accepted verb (lower-case, half-width) to its kind.
var verbs = map[string]Kind{
	"/register": KindRegister,
	"/r":        KindRegister,
	"報名":        KindRegister,

	"/done": KindMarkDone,
	"/d":    KindMarkDone,
	"打卡":    KindMarkDone,

	"/status": KindStatus,
	"/t":      KindStatus,
	"今日":      KindStatus,

	"/roster": KindRoster,
	"/s":      KindRoster,
	"名單":      KindRoster,

	"/stats": KindStats,
	"/st":    KindStats,
	"統計":     KindStats,

	"/help": KindHelp,
	"/h":    KindHelp,
	"說明":    KindHelp,
}

// Normalize folds full-width characters to half-width and trims the text.
func Normalize(text string) string {
	return strings.TrimSpace(width.Fold.String(text))
}

// Parse classifies text. The verb is case-folded; arguments keep their case.
// Anything that is not a known verb yields ok == false.
func Parse(text string) (Command, bool) {
	text = Normalize(text)
	if text == "" {
		return Command{}, false
	}

	verb, rest := splitVerb(text)
	kind, ok := verbs[strings.ToLower(verb)]
	if !ok {
		return Command{}, false
	}

	cmd := Command{Kind: kind}
	switch kind {
	case KindRegister:
		cmd.Name = attendance.NormalizeName(rest)
	case KindStats:
		cmd.Days, cmd.Year, cmd.Month = parseStatsArg(rest)
	case KindMarkDone, KindStatus, KindRoster, KindHelp:
	}
	return cmd, true
}

// LooksLikeCommand reports whether text would parse as a command.
func LooksLikeCommand(text string) bool {
	_, ok := Parse(text)
	return ok
}

func splitVerb(text string) (verb, rest string) {
	i := strings.IndexFunc(text, isSpace)
	if i < 0 {
		return text, ""
	}
	return text[:i], strings.TrimSpace(text[i:])
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '　'
}

// parseStatsArg accepts "N" (all digits) or "YYYY-MM". Everything else,
// including 0, falls back to DefaultStatsDays.
func parseStatsArg(arg string) (days, year int, month time.Month) {
	if fields := strings.Fields(arg); len(fields) > 0 {
		arg = fields[0]
	} else {
		return DefaultStatsDays, 0, 0
	}

	if isDigits(arg) {
		n, err := strconv.Atoi(arg)
		switch {
		case err != nil || n > MaxStatsDays:
			// overflowing digit strings are still "a lot of days"
			return MaxStatsDays, 0, 0
		case n <= 0:
			return DefaultStatsDays, 0, 0
		default:
			return n, 0, 0
		}
	}

	if y, m, ok := timeutil.ParseMonth(arg); ok {
		return 0, y, m
	}
	return DefaultStatsDays, 0, 0
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
