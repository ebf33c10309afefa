// =============================================================================
// Register Interests Parser - Text Normalisation
// =============================================================================
//
// Register pages are hand-edited HTML with Windows-1252 punctuation, zero
// width spaces and arbitrary line wrapping. Everything that compares or
// matches text goes through Normalize first so that errata written against
// one rendering of a page keep matching the next.
//
// =============================================================================

package textnorm

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrSubjectName is returned when a name cannot be split into surname and
// forename.
var ErrSubjectName = errors.New("cannot parse subject name")

var (
	win1252Replacer = strings.NewReplacer(
		"‚", "'",
		"ƒ", "f",
		"„", `"`,
		"†", "*",
		"ˆ", "^",
		"‹", "<",
		"‘", "'",
		"’", "'",
		"“", `"`,
		"”", `"`,
		"•", "-",
		"–", "-",
		"—", "-",
		"›", ">",
		// pages served as latin-1 but authored as UTF-8
		"Â£", "£",
		"\u200b", "",
		"\r\n", " ",
		"\n", " ",
	)

	doubleSpaces = regexp.MustCompile(`[\s\p{Zs}]{2,}`)

	remunerationBands = regexp.MustCompile(`(?is)£0-5,+000|up to £5,?000|£\d+,+00[01]-£\d+,+000`)

	initials    = regexp.MustCompile(`[A-Z]\.`)
	subjectName = regexp.MustCompile(`(?i)([\p{L}\-']+),.*?([\p{L}\-']+)$`)
)

// Normalize maps Windows-1252 punctuation to ASCII, drops zero width
// spaces, folds newlines, applies NFKC and collapses runs of whitespace.
// Leading and trailing whitespace is trimmed.
func Normalize(text string) string {
	text = win1252Replacer.Replace(text)
	text = norm.NFKC.String(text)
	text = doubleSpaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// RemoveRemunerationBands strips salary band phrasing such as "up to
// £5,000" or "£45,001-£50,000". Bands describe a bracket, not the amount.
func RemoveRemunerationBands(text string) string {
	return remunerationBands.ReplaceAllString(text, "")
}

// ContainsFold reports whether needle occurs in text, ignoring case, after
// remuneration bands are removed from text.
func ContainsFold(text, needle string) bool {
	return strings.Contains(
		strings.ToLower(RemoveRemunerationBands(text)),
		strings.ToLower(needle),
	)
}

// NormalizeSubject turns a register name such as "ABBOTT, Ms Diane" into
// "abbott, diane". Honorifics between the comma and the forename are
// dropped, as are initials like "J.".
func NormalizeSubject(name string) (string, error) {
	cleaned := strings.TrimSpace(initials.ReplaceAllString(name, ""))
	m := subjectName.FindStringSubmatch(cleaned)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrSubjectName, name)
	}
	return strings.ToLower(m[1] + ", " + m[2]), nil
}

// SplitSubject returns the surname and forename of a normalised subject.
func SplitSubject(subject string) (surname, forename string) {
	surname, forename, _ = strings.Cut(subject, ",")
	return strings.TrimSpace(surname), strings.TrimSpace(forename)
}
