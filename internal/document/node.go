// =============================================================================
// Register Interests Parser - Document Nodes
// =============================================================================
//
// The parsing engine never touches markup directly. It works against Node,
// the small set of tree capabilities it needs, and walks a page as a flat
// sequence of leaf content nodes in document order.
//
// The HTML implementation lives in internal/htmltree.
//
// =============================================================================

package document

import (
	"iter"
	"slices"
	"strings"
)

// Structural tags are the block elements that carry register content.
var StructuralTags = []string{"p", "h3"}

// Node is one element of a page's content tree.
type Node interface {
	// Text returns the normalised text of the element and its descendants.
	Text() string

	// TagName returns the lower-case element name.
	TagName() string

	// Classes returns the element's class attribute values.
	Classes() []string

	// NextSibling returns the nearest following sibling element whose tag
	// is in tags and whose classes satisfy keep. Empty tags accepts any
	// element and a nil keep accepts any classes.
	NextSibling(tags []string, keep ClassFilter) Node

	// PreviousSiblings yields preceding sibling elements, nearest first,
	// filtered the same way as NextSibling.
	PreviousSiblings(tags []string, keep ClassFilter) iter.Seq[Node]

	// FindDescendant returns the first descendant, in document order, whose
	// tag is one of tags.
	FindDescendant(tags ...string) Node

	// FindDescendants returns every descendant with the given tag.
	FindDescendants(tag string) []Node

	// Children returns the child elements and the text runs between them,
	// in document order. Text runs report an empty TagName and never
	// contain whitespace only.
	Children() []Node
}

// ClassFilter decides whether a single class value is acceptable. An
// element without classes is tested with the empty string.
type ClassFilter func(class string) bool

// MatchClasses applies keep to an element's classes. The element passes when
// any single class passes, or when the space-joined class list passes.
func MatchClasses(classes []string, keep ClassFilter) bool {
	if keep == nil {
		return true
	}
	if len(classes) == 0 {
		return keep("")
	}
	for _, c := range classes {
		if keep(c) {
			return true
		}
	}
	return keep(strings.Join(classes, " "))
}

// NotSpacer rejects the empty spacer paragraphs some pages use for layout.
func NotSpacer(class string) bool {
	return class != "spacer"
}

// NotIn returns a filter rejecting the listed classes.
func NotIn(classes ...string) ClassFilter {
	return func(class string) bool {
		return !slices.Contains(classes, class)
	}
}

// HasTag reports whether tag is one of tags. Empty tags matches everything.
func HasTag(tags []string, tag string) bool {
	return len(tags) == 0 || slices.Contains(tags, tag)
}

// Flatten yields content nodes starting at first and continuing through its
// following siblings. An element that wraps structural blocks is replaced by
// its children, recursively, so nested blocks and the loose text around them
// come out in document order before the wrapper's next sibling.
func Flatten(first Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for n := first; n != nil; n = n.NextSibling(nil, nil) {
			if !visit(n, yield) {
				return
			}
		}
	}
}

// visit yields n, or the leaves below it when it wraps structural blocks.
func visit(n Node, yield func(Node) bool) bool {
	if n.FindDescendant(StructuralTags...) == nil {
		return yield(n)
	}
	for _, c := range n.Children() {
		if !visit(c, yield) {
			return false
		}
	}
	return true
}

// Lines is Flatten wrapped in Line views.
func Lines(first Node) iter.Seq[Line] {
	return func(yield func(Line) bool) {
		for n := range Flatten(first) {
			if !yield(NewLine(n)) {
				return
			}
		}
	}
}
