// =============================================================================
// Register Interests Parser - HTML Document Tree
// =============================================================================
//
// This package turns a saved register page into document.Node values.
//
// PAGE LAYOUT:
//   <div id="mainTextBlock">
//     <h2>ABBOTT, Diane (Hackney North and Stoke Newington)</h2>
//     <h3>1. Employment and earnings</h3>
//     <p>Fee for ... (Registered 1 January 2016)</p>
//     <p class="indent">...</p>
//     <p class="indent2">...</p>
//     ...
//     <p class="prevNext">...</p>
//   </div>
//
// Pages are frequently malformed. golang.org/x/net/html applies the same
// error recovery as browsers, so nested paragraphs and stray headings come
// out the way a reader sees them.
//
// =============================================================================

package htmltree

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"github.com/ginjaninja78/register-interests/internal/document"
	"github.com/ginjaninja78/register-interests/internal/textnorm"
)

// DefaultContentID is the id of the element holding register entries.
const DefaultContentID = "mainTextBlock"

var (
	// ErrNoContent is returned when the page has no content block.
	ErrNoContent = errors.New("content block not found")

	// ErrNoHeading is returned when the content block has no subject heading.
	ErrNoHeading = errors.New("subject heading not found")
)

// =============================================================================
// PAGE
// =============================================================================

// Page is a parsed register page for one subject.
type Page struct {
	root    *html.Node
	content *html.Node
	heading *html.Node
}

// Load parses a page and locates its content block.
//
// PARAMETERS:
//   - r: the page bytes, in any encoding the page declares
//   - contentID: id of the content element, DefaultContentID when empty
//
// RETURNS:
//   - The page, or an error if the markup has no content block or heading
func Load(r io.Reader, contentID string) (*Page, error) {
	if contentID == "" {
		contentID = DefaultContentID
	}

	decoded, err := charset.NewReader(r, "")
	if err != nil {
		return nil, fmt.Errorf("failed to detect page encoding: %w", err)
	}

	root, err := html.Parse(decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	content := findByID(root, contentID)
	if content == nil {
		return nil, fmt.Errorf("%w: #%s", ErrNoContent, contentID)
	}

	heading := findFirst(content, func(n *html.Node) bool { return n.DataAtom == atom.H2 })
	if heading == nil {
		return nil, ErrNoHeading
	}

	return &Page{root: root, content: content, heading: heading}, nil
}

// LoadFile opens and parses a saved page.
func LoadFile(path, contentID string) (*Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer f.Close()

	return Load(f, contentID)
}

// Heading returns the subject heading text, e.g.
// "ABBOTT, Diane (Hackney North and Stoke Newington)".
func (p *Page) Heading() string {
	return nodeText(p.heading)
}

// SubjectName returns the heading without the constituency in brackets.
func (p *Page) SubjectName() string {
	name, _, _ := strings.Cut(p.Heading(), "(")
	return strings.TrimSpace(name)
}

// First returns the first element after the subject heading, where register
// entries begin.
func (p *Page) First() document.Node {
	return wrap(nextElement(p.heading))
}

// Lines yields the page's content lines in document order.
func (p *Page) Lines() iter.Seq[document.Line] {
	return document.Lines(p.First())
}

// =============================================================================
// ELEMENT
// =============================================================================

// Element adapts an html element, or a text run inside a wrapper element, to
// document.Node.
type Element struct {
	n *html.Node
}

// wrap returns a nil interface for a nil node, never a typed nil.
func wrap(n *html.Node) document.Node {
	if n == nil {
		return nil
	}
	return &Element{n: n}
}

// Text returns the normalised text content.
func (e *Element) Text() string {
	if e.n.Type == html.TextNode {
		return textnorm.Normalize(e.n.Data)
	}
	return nodeText(e.n)
}

// TagName returns the element name, or "" for a text run.
func (e *Element) TagName() string {
	if e.n.Type != html.ElementNode {
		return ""
	}
	return e.n.Data
}

// Classes returns the class attribute split on whitespace.
func (e *Element) Classes() []string {
	for _, a := range e.n.Attr {
		if a.Key == "class" {
			return strings.Fields(a.Val)
		}
	}
	return nil
}

// NextSibling returns the nearest matching following sibling.
func (e *Element) NextSibling(tags []string, keep document.ClassFilter) document.Node {
	for s := e.n.NextSibling; s != nil; s = s.NextSibling {
		if matches(s, tags, keep) {
			return wrap(s)
		}
	}
	return nil
}

// PreviousSiblings yields matching preceding siblings, nearest first.
func (e *Element) PreviousSiblings(tags []string, keep document.ClassFilter) iter.Seq[document.Node] {
	return func(yield func(document.Node) bool) {
		for s := e.n.PrevSibling; s != nil; s = s.PrevSibling {
			if !matches(s, tags, keep) {
				continue
			}
			if !yield(wrap(s)) {
				return
			}
		}
	}
}

// FindDescendant returns the first descendant with one of the tags.
func (e *Element) FindDescendant(tags ...string) document.Node {
	return wrap(findFirst(e.n, func(n *html.Node) bool {
		return n != e.n && document.HasTag(tags, n.Data)
	}))
}

// FindDescendants returns every descendant with the tag.
func (e *Element) FindDescendants(tag string) []document.Node {
	var out []document.Node
	for n := range descendants(e.n) {
		if n.Data == tag {
			out = append(out, wrap(n))
		}
	}
	return out
}

// Children returns child elements and the non-blank text runs between them.
func (e *Element) Children() []document.Node {
	var out []document.Node
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			if c.DataAtom == atom.Script || c.DataAtom == atom.Style {
				continue
			}
			out = append(out, wrap(c))
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				out = append(out, wrap(c))
			}
		}
	}
	return out
}

// =============================================================================
// TREE HELPERS
// =============================================================================

func matches(n *html.Node, tags []string, keep document.ClassFilter) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if !document.HasTag(tags, n.Data) {
		return false
	}
	return document.MatchClasses((&Element{n: n}).Classes(), keep)
}

func nextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

// descendants yields element descendants of n in document order, excluding n.
func descendants(n *html.Node) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		var visit func(*html.Node) bool
		visit = func(p *html.Node) bool {
			for c := p.FirstChild; c != nil; c = c.NextSibling {
				if c.Type != html.ElementNode {
					continue
				}
				if !yield(c) || !visit(c) {
					return false
				}
			}
			return true
		}
		visit(n)
	}
}

func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	for d := range descendants(n) {
		if pred(d) {
			return d
		}
	}
	return nil
}

func findByID(n *html.Node, id string) *html.Node {
	return findFirst(n, func(d *html.Node) bool {
		for _, a := range d.Attr {
			if a.Key == "id" && a.Val == id {
				return true
			}
		}
		return false
	})
}

// nodeText joins every text node under n with newlines, then normalises.
func nodeText(n *html.Node) string {
	var parts []string
	var visit func(*html.Node)
	visit = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				parts = append(parts, c.Data)
			case html.ElementNode:
				if c.DataAtom == atom.Script || c.DataAtom == atom.Style {
					continue
				}
				visit(c)
			}
		}
	}
	visit(n)
	return textnorm.Normalize(strings.Join(parts, "\n"))
}
