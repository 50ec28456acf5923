package markup

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseFragment parses markup as the children of an element shaped like
// context. A nil context parses as body content. The returned nodes are detached.
func ParseFragment(context *html.Node, markup string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	if context != nil && context.Type == html.ElementNode {
		ctx = &html.Node{
			Type:      html.ElementNode,
			Data:      context.Data,
			DataAtom:  context.DataAtom,
			Namespace: context.Namespace,
		}
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	return nodes, nil
}

// NewElement creates a detached element.
func NewElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

// NewText creates a detached text node.
func NewText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Remove detaches n from its parent.
func Remove(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// InsertBefore places nodes, in order, immediately before ref.
func InsertBefore(ref *html.Node, nodes ...*html.Node) {
	parent := ref.Parent
	if parent == nil {
		return
	}
	for _, n := range nodes {
		Remove(n)
		parent.InsertBefore(n, ref)
	}
}

// InsertAfter places nodes, in order, immediately after ref.
func InsertAfter(ref *html.Node, nodes ...*html.Node) {
	parent := ref.Parent
	if parent == nil {
		return
	}
	next := ref.NextSibling
	for _, n := range nodes {
		Remove(n)
		parent.InsertBefore(n, next)
	}
}

// Prepend inserts nodes, in order, before the first child of parent.
func Prepend(parent *html.Node, nodes ...*html.Node) {
	first := parent.FirstChild
	for _, n := range nodes {
		Remove(n)
		parent.InsertBefore(n, first)
	}
}

// Append adds nodes as the last children of parent.
func Append(parent *html.Node, nodes ...*html.Node) {
	for _, n := range nodes {
		Remove(n)
		parent.AppendChild(n)
	}
}

// Replace swaps old for nodes at the same position.
func Replace(old *html.Node, nodes ...*html.Node) {
	InsertBefore(old, nodes...)
	Remove(old)
}

// SetInner replaces all children of n with nodes.
func SetInner(n *html.Node, nodes ...*html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	Append(n, nodes...)
}

// SetInnerHTML parses markup in the context of n and replaces its children.
func SetInnerHTML(n *html.Node, markup string) error {
	nodes, err := ParseFragment(n, markup)
	if err != nil {
		return err
	}
	SetInner(n, nodes...)
	return nil
}
