package document

import (
	"iter"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ginjaninja78/register-interests/internal/amount"
	"github.com/ginjaninja78/register-interests/internal/textnorm"
)

// =============================================================================
// INDENTATION CONVENTIONS
// =============================================================================

const (
	// TertiaryIndentClass marks a line that may introduce sub-entries.
	TertiaryIndentClass = "indent"

	// LastLineClass marks the previous/next navigation at the foot of a page.
	LastLineClass = "prevNext"
)

// SubEntryIndentClasses are the two deepest indentation classes.
var SubEntryIndentClasses = []string{"indent2", "indent3"}

// IndentClasses is every class that counts as indentation.
var IndentClasses = append([]string{TertiaryIndentClass}, SubEntryIndentClasses...)

// MaxIndentLevel is the deepest level any sub-entry class denotes.
var MaxIndentLevel = maxLevel(SubEntryIndentClasses)

var (
	trailingDigits = regexp.MustCompile(`([0-9]+)$`)
	categoryCode   = regexp.MustCompile(`^(\d{1,2})\.`)

	// An updated date is preferred over the registered date:
	// "(Registered 30 June 2011; updated 4 October 2012)" => "4 October 2012".
	registrationDate = regexp.MustCompile(`(?is).*?(?:Updated).{0,3}?([0-9]{1,2} [a-z]+ [0-9]{4})|(?:Registered).{0,3}?([0-9]{1,2} [a-z]+\s?[0-9]{4})`)
)

// ClassLevel returns the nesting depth a class denotes: its trailing digits,
// or 0 for an indentation class without digits.
func ClassLevel(class string) (int, bool) {
	if m := trailingDigits.FindStringSubmatch(class); m != nil {
		level, err := strconv.Atoi(m[1])
		return level, err == nil
	}
	if strings.Contains(class, TertiaryIndentClass) {
		return 0, true
	}
	return 0, false
}

func maxLevel(classes []string) int {
	deepest := 0
	for _, c := range classes {
		if level, ok := ClassLevel(c); ok && level > deepest {
			deepest = level
		}
	}
	return deepest
}

// =============================================================================
// LINE
// =============================================================================

// Line is a read-only view over one content node. All predicates derive from
// tags, classes and text; none of them interpret the meaning of an entry.
type Line struct {
	node Node
}

// NewLine wraps a node.
func NewLine(n Node) Line {
	return Line{node: n}
}

// Node returns the wrapped node.
func (l Line) Node() Node { return l.node }

// Text returns the normalised text of the line.
func (l Line) Text() string { return l.node.Text() }

// IsEmpty reports whether the line has no text.
func (l Line) IsEmpty() bool { return l.Text() == "" }

// IsSingleCharacter reports placeholder lines holding one visible character.
func (l Line) IsSingleCharacter() bool {
	return utf8.RuneCountInString(l.Text()) <= 1
}

// IsNil reports the literal "Nil" entries of empty categories.
func (l Line) IsNil() bool {
	text := l.Text()
	return text == "Nil" || text == "Nil."
}

// IsLastLine reports the page footer navigation.
func (l Line) IsLastLine() bool {
	return l.hasClass(LastLineClass)
}

// IsRectification reports a rectification notice. These are never titles,
// even when set in bold.
func (l Line) IsRectification() bool {
	return textnorm.ContainsFold(l.Text(), "rectification procedure")
}

// IsTitle reports a category heading: an h3, or a non-indented line with
// non-empty bold text.
func (l Line) IsTitle() bool {
	if l.IsRectification() {
		return false
	}
	if l.node.TagName() == "h3" || l.node.FindDescendant("h3") != nil {
		return true
	}
	if l.IsIndented() {
		return false
	}
	// some titles carry several strong elements, the first of them empty
	for _, strong := range l.node.FindDescendants("strong") {
		if strong.Text() != "" {
			return true
		}
	}
	return false
}

// IsIndented reports any indentation class.
func (l Line) IsIndented() bool {
	return l.hasClass(IndentClasses...)
}

// IsSubEntry reports the two deepest indentation classes.
func (l Line) IsSubEntry() bool {
	return l.hasClass(SubEntryIndentClasses...)
}

// IndentClass returns the first class naming an indentation, or "".
func (l Line) IndentClass() string {
	return indentClass(l.node)
}

// IndentLevel returns the depth of the line's indentation class, 0 when it
// has none.
func (l Line) IndentLevel() int {
	level, _ := ClassLevel(l.IndentClass())
	return level
}

// IsParentWithSubEntries reports a tertiary-indented line that introduces
// the sub-entries directly after it. Such a line is context for its children
// and is never a record of its own.
func (l Line) IsParentWithSubEntries() bool {
	if l.parentNode() != nil {
		return false
	}
	if !l.hasClass(TertiaryIndentClass) {
		return false
	}

	next := l.node.NextSibling(StructuralTags, NotSpacer)
	if next == nil || next.TagName() == "h3" {
		return false
	}
	return slices.ContainsFunc(next.Classes(), func(c string) bool {
		return slices.Contains(SubEntryIndentClasses, c)
	})
}

// HasAmount reports a currency marker outside a remuneration band.
func (l Line) HasAmount() bool {
	return amount.HasMarker(l.Text())
}

// RegistrationDate returns the updated date if the line states one, the
// registered date otherwise, or "".
func (l Line) RegistrationDate() string {
	return parseRegistrationDate(l.Text())
}

// HasDateOrAmount reports the terminal markers that close an entry.
func (l Line) HasDateOrAmount() bool {
	return l.HasAmount() || l.RegistrationDate() != ""
}

// CategoryCode returns the number a category heading starts with.
func (l Line) CategoryCode() (int, bool) {
	return parseCategoryCode(l.Text())
}

// IsPreviousLineHeader reports whether the nearest preceding structural
// sibling is a numbered category heading.
func (l Line) IsPreviousLineHeader() bool {
	prev := first(l.node.PreviousSiblings(StructuralTags, NotSpacer))
	if prev == nil || prev.TagName() != "h3" {
		return false
	}
	_, ok := parseCategoryCode(prev.Text())
	return ok
}

// IsPageHeader reports a line that repeats the subject's own name, e.g.
// "ABBOTT, Diane (Hackney North and Stoke Newington)". Some pages reuse
// heading tags for it.
func (l Line) IsPageHeader(subject string) bool {
	tag := l.node.TagName()
	heading := tag == "h2" || tag == "h3"
	if !heading {
		if l.node.FindDescendant("strong") == nil {
			return false
		}
		if first(l.node.PreviousSiblings([]string{"h2", "h3"}, NotSpacer)) == nil {
			return false
		}
	}

	surname, forename := textnorm.SplitSubject(subject)
	if surname == "" || forename == "" {
		return false
	}
	pattern, err := regexp.Compile(`(?i).?(` + regexp.QuoteMeta(surname) + `.+` + regexp.QuoteMeta(forename) + `.+\(:?.+\))`)
	if err != nil {
		return false
	}
	return pattern.MatchString(l.Text())
}

func (l Line) hasClass(classes ...string) bool {
	return slices.ContainsFunc(l.node.Classes(), func(c string) bool {
		return slices.Contains(classes, c)
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func indentClass(n Node) string {
	for _, c := range n.Classes() {
		if strings.Contains(c, TertiaryIndentClass) {
			return c
		}
	}
	return ""
}

func parseRegistrationDate(text string) string {
	m := registrationDate.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

func parseCategoryCode(text string) (int, bool) {
	m := categoryCode.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	code, err := strconv.Atoi(m[1])
	if err != nil || code == 0 {
		return 0, false
	}
	return code, true
}

func first(seq iter.Seq[Node]) Node {
	for n := range seq {
		return n
	}
	return nil
}
