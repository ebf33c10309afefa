package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/ginjaninja78/register-interests/internal/types"
)

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// XMLOptions contains options for XML generation.
//
// XML STRUCTURE:
//
//	<interests period="2015-16">
//	  <subject name="abbott, diane">
//	    <interest n="1" period="2015-16">
//	      <category code="1">Employment and earnings</category>
//	      <date>3 May 2016</date>
//	      <amount>500.00</amount>
//	      <description>...</description>
//	    </interest>
//	  </subject>
//	  <subject name="adams, nigel">
//	    <interest n="2" period="2015-16">   <!-- numbering continues -->
//	  ...
type XMLOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	IncludeXMLDeclaration bool

	// RootAttributes are added to the root element, sorted by name.
	RootAttributes map[string]string
}

// DefaultXMLOptions returns the default generation options.
func DefaultXMLOptions() XMLOptions {
	return XMLOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		RootAttributes:        make(map[string]string),
	}
}

// =============================================================================
// XML DOCUMENT BUILDING
// =============================================================================

// element is a generic XML element: either a text value or children.
type element struct {
	name     string
	attrs    []xml.Attr
	value    string
	children []element
}

// WriteXML writes interests grouped by subject, in order of first
// appearance, numbering interests across the whole document.
func WriteXML(w io.Writer, interests []types.Interest, options XMLOptions) error {
	var buffer bytes.Buffer

	if options.IncludeXMLDeclaration {
		buffer.WriteString(xml.Header)
	}

	writeElement(&buffer, buildDocument(interests, options), options.Indent, 0)

	if _, err := w.Write(buffer.Bytes()); err != nil {
		return fmt.Errorf("failed to write XML: %w", err)
	}
	return nil
}

func buildDocument(interests []types.Interest, options XMLOptions) element {
	root := element{name: "interests"}
	for _, key := range sortedKeys(options.RootAttributes) {
		root.attrs = append(root.attrs, attr(key, options.RootAttributes[key]))
	}

	subjects := make(map[string]int)
	for n, i := range interests {
		idx, ok := subjects[i.Subject]
		if !ok {
			idx = len(root.children)
			subjects[i.Subject] = idx
			root.children = append(root.children, element{
				name:  "subject",
				attrs: []xml.Attr{attr("name", i.Subject)},
			})
		}
		root.children[idx].children = append(root.children[idx].children, buildInterestElement(i, n+1))
	}
	return root
}

// buildInterestElement constructs one numbered interest.
func buildInterestElement(i types.Interest, n int) element {
	e := element{
		name:  "interest",
		attrs: []xml.Attr{attr("n", strconv.Itoa(n)), attr("period", i.Period)},
	}
	e.children = append(e.children, element{
		name:  "category",
		attrs: []xml.Attr{attr("code", strconv.Itoa(i.CategoryCode))},
		value: i.CategoryTitle,
	})
	if i.Date != "" {
		e.children = append(e.children, element{name: "date", value: i.Date})
	}
	if i.Amount != nil {
		e.children = append(e.children, element{name: "amount", value: i.Amount.StringFixed(2)})
	}
	e.children = append(e.children, element{name: "description", value: i.Description})
	return e
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

// writeElement writes an XML element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, e element, indent string, level int) {
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}

	buffer.WriteString("<")
	buffer.WriteString(e.name)
	for _, a := range e.attrs {
		fmt.Fprintf(buffer, " %s=\"%s\"", a.Name.Local, escapeXML(a.Value))
	}

	if len(e.children) == 0 && e.value == "" {
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	if e.value != "" {
		buffer.WriteString(escapeXML(e.value))
	} else {
		buffer.WriteString("\n")
		for _, child := range e.children {
			writeElement(buffer, child, indent, level+1)
		}
		for i := 0; i < level; i++ {
			buffer.WriteString(indent)
		}
	}

	buffer.WriteString("</")
	buffer.WriteString(e.name)
	buffer.WriteString(">\n")
}

// escapeXML escapes special characters for XML.
func escapeXML(s string) string {
	var buffer bytes.Buffer
	if err := xml.EscapeText(&buffer, []byte(s)); err != nil {
		return s
	}
	return buffer.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
