package invigilation

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var parenthetical = regexp.MustCompile(`[(\[（][^)\]）]*[)\]）]`)

// Normalizer canonicalises free-text specialty, subject and grade labels so
// that "Math (Advanced)", "MATH" and an aliased "رياضيات" compare equal.
type Normalizer struct {
	aliases map[string]string
}

// NewNormalizer builds a normalizer from an alias table mapping a label to its
// canonical form. Both sides are normalised before use.
func NewNormalizer(aliases map[string]string) *Normalizer {
	n := &Normalizer{aliases: make(map[string]string, len(aliases))}
	for from, to := range aliases {
		key := canonicalLabel(from)
		if key == "" {
			continue
		}
		n.aliases[key] = canonicalLabel(to)
	}
	return n
}

// With returns a copy that also resolves the extra aliases. Extra entries
// win over existing ones.
func (n *Normalizer) With(extra map[string]string) *Normalizer {
	out := &Normalizer{aliases: make(map[string]string)}
	if n != nil {
		for k, v := range n.aliases {
			out.aliases[k] = v
		}
	}
	for from, to := range extra {
		key := canonicalLabel(from)
		if key == "" {
			continue
		}
		out.aliases[key] = canonicalLabel(to)
	}
	return out
}

// Normalize folds case, applies NFKC, strips parenthetical annotations,
// collapses whitespace and resolves aliases.
func (n *Normalizer) Normalize(label string) string {
	key := canonicalLabel(label)
	if n == nil {
		return key
	}
	if canonical, ok := n.aliases[key]; ok {
		return canonical
	}
	return key
}

// SameSpecialty reports whether a supervisor's specialty matches the exam
// subject. A blank specialty or subject never matches.
func (n *Normalizer) SameSpecialty(specialty, subject string) bool {
	left := n.Normalize(specialty)
	right := n.Normalize(subject)
	return left != "" && left == right
}

func canonicalLabel(label string) string {
	value := norm.NFKC.String(label)
	value = parenthetical.ReplaceAllString(value, " ")
	value = cases.Fold().String(value)
	return strings.Join(strings.Fields(value), " ")
}

// UnavailableOn reports whether the raw unavailability field mentions the
// given date. The field is free text maintained by hand, so the match is a
// loose containment check against the common renderings of the date. A bare
// number is read as a spreadsheet date serial.
func UnavailableOn(raw string, date time.Time) bool {
	value := normalizeDigits(strings.TrimSpace(raw))
	if value == "" || strings.EqualFold(value, "nan") {
		return false
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		serial, ok := ParseDate(value)
		return ok && serial.Equal(civilDate(date))
	}
	for _, rendering := range dateRenderings(date) {
		if containsDate(value, rendering) {
			return true
		}
	}
	return false
}

// containsDate is strings.Contains that refuses matches glued to further
// digits, so 2025/1/1 is not found inside 2025/1/15.
func containsDate(haystack, needle string) bool {
	offset := 0
	for {
		idx := strings.Index(haystack[offset:], needle)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(needle)
		if !isDigitAt(haystack, start-1) && !isDigitAt(haystack, end) {
			return true
		}
		offset = start + 1
	}
}

func isDigitAt(value string, idx int) bool {
	if idx < 0 || idx >= len(value) {
		return false
	}
	return value[idx] >= '0' && value[idx] <= '9'
}

func dateRenderings(date time.Time) []string {
	return []string{
		date.Format("2006-01-02"),
		date.Format("2006/01/02"),
		date.Format("2006/1/2"),
		date.Format("2006-1-2"),
		date.Format("02/01/2006"),
	}
}
