package document

import (
	"errors"
	"fmt"
)

// ErrMissingParent is returned when a sub-entry has no context line.
var ErrMissingParent = errors.New("missing parent line")

// ErrMissingCategory is returned when a title carries no category code.
var ErrMissingCategory = errors.New("could not extract category code")

// Parent returns the text of the line a sub-entry inherits its context
// from.
//
// Two backward scans run over the preceding siblings. The first ignores
// siblings indented at or below this line's level and stops at a numbered
// heading. The second stops at any heading or at a deeper sub-entry chain,
// and takes the first indented sibling without a date or amount.
func (l Line) Parent() (string, error) {
	parent := l.parentNode()
	if parent == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingParent, l.Text())
	}
	return parent.Text(), nil
}

// CategoryCodeOrErr is CategoryCode with ErrMissingCategory for titles
// that do not start with a number.
func (l Line) CategoryCodeOrErr() (int, error) {
	code, ok := l.CategoryCode()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingCategory, l.Text())
	}
	return code, nil
}

func (l Line) parentNode() Node {
	if n := l.shallowerSibling(); n != nil {
		return n
	}
	return l.contextSibling()
}

// shallowerSibling is the first pass.
func (l Line) shallowerSibling() Node {
	level := l.IndentLevel()
	excluded := make([]string, 0, MaxIndentLevel)
	for i := level; i < MaxIndentLevel; i++ {
		if i == 0 {
			excluded = append(excluded, TertiaryIndentClass)
			continue
		}
		excluded = append(excluded, fmt.Sprintf("%s%d", TertiaryIndentClass, i))
	}

	for sibling := range l.node.PreviousSiblings(StructuralTags, NotIn(excluded...)) {
		if sibling.TagName() == "h3" || sibling.FindDescendant("strong") != nil {
			if _, ok := parseCategoryCode(sibling.Text()); ok {
				return nil
			}
			return sibling
		}
		if sibling.Text() != "" {
			return sibling
		}
	}
	return nil
}

// contextSibling is the second pass.
func (l Line) contextSibling() Node {
	level := l.IndentLevel()
	for sibling := range l.node.PreviousSiblings(StructuralTags, NotSpacer) {
		if sibling.TagName() == "h3" {
			return nil
		}

		class := indentClass(sibling)
		if sibling.Text() == "" || class == "" {
			continue
		}
		if siblingLevel, _ := ClassLevel(class); siblingLevel > level {
			return nil
		}
		if !NewLine(sibling).HasDateOrAmount() {
			return sibling
		}
	}
	return nil
}
