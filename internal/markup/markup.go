// Package markup wraps golang.org/x/net/html with the lookup, attribute and
// structural helpers used by the report editors and the deck compiler.
package markup

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML report. It is never shared between requests:
// callers parse their own copy, mutate it, and render it back to a string.
type Document struct {
	root *html.Node
}

// Parse builds a Document from an HTML string. Parsing is lenient and never
// fails on malformed markup.
func Parse(src string) *Document {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		root = &html.Node{Type: html.DocumentNode}
	}
	return &Document{root: root}
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Head returns the <head> element, or nil.
func (d *Document) Head() *html.Node { return findAtom(d.root, atom.Head) }

// Body returns the <body> element, or the document node when there is none.
func (d *Document) Body() *html.Node {
	if b := findAtom(d.root, atom.Body); b != nil {
		return b
	}
	return d.root
}

// Render serializes the whole document.
func (d *Document) Render() string {
	var buf bytes.Buffer
	_ = html.Render(&buf, d.root)
	return buf.String()
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	return &Document{root: CloneNode(d.root)}
}

// Sections returns the top-level <section> elements in document order.
// A section nested inside another section is part of its parent's content.
func (d *Document) Sections() []*html.Node {
	return Sections(d.root)
}

// Title returns the text of the <title> element, or "".
func (d *Document) Title() string {
	if t := findAtom(d.root, atom.Title); t != nil {
		return Text(t)
	}
	return ""
}

// Sections returns the <section> elements under root that have no <section> ancestor below root.
func Sections(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Section {
				out = append(out, c)
				continue
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

// CloneNode deep-copies n and its subtree. The copy is detached.
func CloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(CloneNode(ch))
	}
	return c
}

// Walk visits every element under root (root included) in document order.
// Returning false from fn skips the element's subtree.
func Walk(root *html.Node, fn func(*html.Node) bool) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && !fn(n) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
}

// FindAll returns every element under root matching pred, in document order.
func FindAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	Walk(root, func(n *html.Node) bool {
		if n != root && pred(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// FindFirst returns the first element under root matching pred.
func FindFirst(root *html.Node, pred func(*html.Node) bool) *html.Node {
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && pred(c) {
				found = c
				return true
			}
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(root)
	return found
}

// FirstTag returns the first descendant element with the given tag name.
func FirstTag(root *html.Node, tag string) *html.Node {
	a := atom.Lookup([]byte(tag))
	return FindFirst(root, func(n *html.Node) bool {
		if a != 0 {
			return n.DataAtom == a
		}
		return n.Data == tag
	})
}

func findAtom(root *html.Node, a atom.Atom) *html.Node {
	if root.Type == html.ElementNode && root.DataAtom == a {
		return root
	}
	return FindFirst(root, func(n *html.Node) bool { return n.DataAtom == a })
}

// ElementChildren returns the direct element children of n.
func ElementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// FirstElementChild returns the first direct element child of n, or nil.
func FirstElementChild(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// ParentElement returns the closest element ancestor of n, or nil.
func ParentElement(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}

// Attr returns the value of attribute key, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether n carries attribute key.
func HasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return true
		}
	}
	return false
}

// SetAttr sets or adds attribute key.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes attribute key if present.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// ClassTokens splits the class attribute into tokens.
func ClassTokens(n *html.Node) []string {
	return strings.Fields(Attr(n, "class"))
}

// HasClass reports whether n has the exact class token.
func HasClass(n *html.Node, class string) bool {
	for _, c := range ClassTokens(n) {
		if c == class {
			return true
		}
	}
	return false
}

// IsTag reports whether n is an element with one of the given tag names.
func IsTag(n *html.Node, tags ...string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, t := range tags {
		if n.Data == t {
			return true
		}
	}
	return false
}

// Text returns the text content of n with whitespace collapsed. Script and
// style bodies are skipped and block boundaries read as a space.
func Text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
			if blockElements[n.DataAtom] {
				sb.WriteByte(' ')
				defer sb.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return CollapseSpace(sb.String())
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Header: true, atom.Footer: true, atom.Aside: true, atom.Nav: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Table: true, atom.Tr: true,
	atom.Td: true, atom.Th: true, atom.Br: true, atom.Blockquote: true,
	atom.Figure: true, atom.Figcaption: true, atom.Pre: true,
}

// RawText returns the concatenated text content of n without normalization.
func RawText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// CollapseSpace trims s and folds internal whitespace runs to one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// OuterHTML renders n itself.
func OuterHTML(n *html.Node) string {
	var buf bytes.Buffer
	_ = html.Render(&buf, n)
	return buf.String()
}
