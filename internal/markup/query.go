package markup

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Selector is a compiled CSS selector list. Matching follows cascadia:
// all CSS3 combinators, :not, :has, :nth-*(an+b) and attribute operators.
type Selector struct {
	raw string
	sel cascadia.Selector
}

// Compile parses a selector list.
func Compile(sel string) (*Selector, error) {
	if strings.TrimSpace(sel) == "" {
		return nil, fmt.Errorf("selector %q: empty", sel)
	}
	compiled, err := cascadia.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", sel, err)
	}
	return &Selector{raw: sel, sel: compiled}, nil
}

// String returns the source text of the selector.
func (s *Selector) String() string { return s.raw }

// Match reports whether element n matches the selector.
func (s *Selector) Match(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	return s.sel.Match(n)
}

// All returns every descendant of root matching s, in document order.
func (s *Selector) All(root *html.Node) []*html.Node {
	if root == nil {
		return nil
	}
	return selection(root).FindMatcher(s.sel).Nodes
}

// First returns the first descendant of root matching s.
func (s *Selector) First(root *html.Node) *html.Node {
	if root == nil {
		return nil
	}
	return cascadia.Query(root, s.sel)
}

// Query returns the descendants of root matching sel. An invalid selector matches nothing.
func Query(root *html.Node, sel string) []*html.Node {
	s, err := Compile(sel)
	if err != nil {
		return nil
	}
	return s.All(root)
}

// First returns the first descendant of root matching sel, or nil.
func First(root *html.Node, sel string) *html.Node {
	s, err := Compile(sel)
	if err != nil {
		return nil
	}
	return s.First(root)
}

// Closest returns n or its nearest ancestor matching sel.
func Closest(n *html.Node, sel string) *html.Node {
	s, err := Compile(sel)
	if err != nil || n == nil {
		return nil
	}
	if found := selection(n).ClosestMatcher(s.sel).Nodes; len(found) > 0 {
		return found[0]
	}
	return nil
}

func selection(n *html.Node) *goquery.Selection {
	return goquery.NewDocumentFromNode(n).Selection
}
