// Package locate finds the card or section a free-text reference points at.
//
// Location is a pure pipeline: candidate extraction walks the tree once in
// document order, Score ranks each candidate against the search text, and
// Best keeps the first candidate with the highest positive score.
package locate

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/reportsmith/internal/markup"
	"golang.org/x/net/html"
)

// ErrNotFound is returned when no candidate scores above zero.
var ErrNotFound = errors.New("not found")

// ErrEmptySearch is returned for a blank search text.
var ErrEmptySearch = errors.New("empty search text")

// Score weights.
const (
	ScoreExact          = 10000
	ScoreContains       = 500
	ScoreContainedIn    = 400
	ScoreWord           = 100
	ScoreFullText       = 50
	BonusFirstChildSame = 5000
	BonusFirstChildHas  = 200
)

// largeFontPx is the inline font-size (2rem) from which text counts as a headline.
const largeFontPx = 32

// Kind tells whether a match is a card or a section.
type Kind string

const (
	KindCard    Kind = "card"
	KindSection Kind = "section"
)

// Candidate is an element the locator may return, with the texts it is scored on.
type Candidate struct {
	Node      *html.Node
	Title     string
	TitleNode *html.Node
	FirstText string
	FullText  string
}

// Match is the winning candidate.
type Match struct {
	Candidate
	Kind  Kind
	Score int
	// Index is the position among top-level sections for section matches, -1 otherwise.
	Index int
}

// Card returns the best-matching card under root.
func Card(root *html.Node, search string) (*Match, error) {
	if strings.TrimSpace(search) == "" {
		return nil, ErrEmptySearch
	}
	c, score, ok := Best(Candidates(root), search)
	if !ok {
		return nil, fmt.Errorf("card %q: %w", search, ErrNotFound)
	}
	return &Match{Candidate: c, Kind: KindCard, Score: score, Index: -1}, nil
}

// Section returns the best-matching top-level section, by title or id.
func Section(root *html.Node, search string) (*Match, error) {
	if strings.TrimSpace(search) == "" {
		return nil, ErrEmptySearch
	}
	best, bestScore, bestIdx := Candidate{}, 0, -1
	slug := slugish(search)
	for i, sec := range markup.Sections(root) {
		c := sectionCandidate(sec)
		score := Score(c, search)
		if id := markup.Attr(sec, "id"); id != "" && (id == search || strings.EqualFold(id, slug)) {
			score += ScoreExact
		}
		if score > bestScore {
			best, bestScore, bestIdx = c, score, i
		}
	}
	if bestIdx < 0 {
		return nil, fmt.Errorf("section %q: %w", search, ErrNotFound)
	}
	return &Match{Candidate: best, Kind: KindSection, Score: bestScore, Index: bestIdx}, nil
}

// Element returns the best card, falling back to sections when no card matches.
func Element(root *html.Node, search string) (*Match, error) {
	m, err := Card(root, search)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return Section(root, search)
}

// Best returns the highest-scoring candidate. Ties keep the earliest
// candidate; a zero best score means no match.
func Best(cands []Candidate, search string) (Candidate, int, bool) {
	var best Candidate
	bestScore := 0
	for _, c := range cands {
		if s := Score(c, search); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, bestScore, bestScore > 0
}

// Score rates one candidate against the search text.
func Score(c Candidate, search string) int {
	s := normalize(search)
	if s == "" {
		return 0
	}
	t := normalize(c.Title)

	score := 0
	switch {
	case t != "" && t == s:
		score = ScoreExact
	case t != "" && strings.Contains(t, s):
		diff := utf8.RuneCountInString(t) - utf8.RuneCountInString(s)
		score = ScoreContains + max(0, 500-10*abs(diff))
	case t != "" && strings.Contains(s, t):
		score = ScoreContainedIn
	default:
		if n := wordOverlap(t, s); n > 0 {
			score = n * ScoreWord
		} else if strings.Contains(normalize(c.FullText), s) {
			score = ScoreFullText
		}
	}

	if first := normalize(c.FirstText); first != "" {
		switch {
		case first == s:
			score += BonusFirstChildSame
		case strings.Contains(first, s):
			score += BonusFirstChildHas
		}
	}
	return score
}

// Candidates extracts card candidates under root in document order.
func Candidates(root *html.Node) []Candidate {
	forced := make(map[*html.Node]bool)
	var out []Candidate
	markup.Walk(root, func(n *html.Node) bool {
		if n == root {
			return true
		}
		if IsGrid(n) {
			for _, ch := range markup.ElementChildren(n) {
				if styled(ch) {
					forced[ch] = true
				}
			}
			return true
		}
		if forced[n] || isCandidate(n) {
			out = append(out, newCandidate(n))
		}
		return true
	})
	return out
}

func newCandidate(n *html.Node) Candidate {
	title, titleNode := TitleOf(n)
	c := Candidate{
		Node:      n,
		Title:     title,
		TitleNode: titleNode,
		FullText:  markup.Text(n),
	}
	if first := markup.FirstElementChild(n); first != nil {
		c.FirstText = markup.Text(first)
	}
	return c
}

func sectionCandidate(sec *html.Node) Candidate {
	c := Candidate{Node: sec, FullText: markup.Text(sec)}
	for _, tag := range []string{"h2", "h1", "h3"} {
		if h := markup.FirstTag(sec, tag); h != nil {
			if t := markup.Text(h); t != "" {
				c.Title, c.TitleNode = t, h
				break
			}
		}
	}
	if first := markup.FirstElementChild(sec); first != nil {
		c.FirstText = markup.Text(first)
	}
	return c
}

// TitleOf picks the display title of a card: large-styled text first, then
// the first h3, h2 or h4 in that order. Text inside a nested candidate is
// not the wrapper's own, unless the wrapper holds exactly one such child and
// nothing else titles it (a card with a header block).
func TitleOf(n *html.Node) (string, *html.Node) {
	nested := nestedCandidates(n)
	if t, node := findTitle(n, nested); node != nil {
		return t, node
	}
	if len(nested) == 1 {
		return findTitle(n, nil)
	}
	return "", nil
}

func findTitle(n *html.Node, skip map[*html.Node]bool) (string, *html.Node) {
	big := firstOwn(n, skip, func(d *html.Node) bool {
		return isLarge(d) && meaningful(markup.Text(d))
	})
	if big != nil {
		return markup.Text(big), big
	}
	for _, tag := range []string{"h3", "h2", "h4"} {
		h := firstOwn(n, skip, func(d *html.Node) bool {
			return markup.IsTag(d, tag) && markup.Text(d) != ""
		})
		if h != nil {
			return markup.Text(h), h
		}
	}
	return "", nil
}

// firstOwn returns the first descendant of n matching pred, in document
// order, without entering the subtrees in skip.
func firstOwn(n *html.Node, skip map[*html.Node]bool, pred func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || skip[c] {
			continue
		}
		if pred(c) {
			return c
		}
		if d := firstOwn(c, skip, pred); d != nil {
			return d
		}
	}
	return nil
}

// nestedCandidates returns the outermost candidates strictly inside n.
func nestedCandidates(n *html.Node) map[*html.Node]bool {
	out := make(map[*html.Node]bool)
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		grid := IsGrid(p)
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if isCandidate(c) || (grid && styled(c)) {
				out[c] = true
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// IsGrid reports whether n lays its children out in columns.
func IsGrid(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	st := markup.ElementStyle(n)
	if v, ok := st.Get("display"); ok && strings.Contains(strings.ToLower(v), "grid") {
		return true
	}
	if st.Has("grid-template-columns") {
		return true
	}
	for _, tok := range markup.ClassTokens(n) {
		if hasSegment(tok, "grid") {
			return true
		}
	}
	return false
}

// DrillDown resolves a grid wrapper to the child holding title. Non-grid
// elements are returned unchanged.
func DrillDown(n *html.Node, title string) *html.Node {
	if !IsGrid(n) {
		return n
	}
	want := normalize(title)
	children := markup.ElementChildren(n)
	for _, ch := range children {
		if want != "" && strings.Contains(normalize(markup.Text(ch)), want) {
			return ch
		}
	}
	if len(children) > 0 {
		return children[0]
	}
	return n
}

// isCandidate applies the marker and container rules; grid wrappers never qualify.
func isCandidate(n *html.Node) bool {
	if n.Type != html.ElementNode || IsGrid(n) {
		return false
	}
	return hasCardMarker(n) || (isContainer(n) && (hasHeadingChild(n) || hasLargeChild(n)))
}

func styled(n *html.Node) bool {
	return markup.HasAttr(n, "style") || markup.HasAttr(n, "class")
}

var cardMarkers = []string{"card", "box", "tile", "panel", "metric", "kpi", "stat"}

func hasCardMarker(n *html.Node) bool {
	if markup.HasAttr(n, "data-card") {
		return true
	}
	for _, tok := range markup.ClassTokens(n) {
		for _, m := range cardMarkers {
			if hasSegment(tok, m) {
				return true
			}
		}
	}
	return false
}

// hasSegment reports whether a class token has seg as one of its - or _ separated parts.
func hasSegment(token, seg string) bool {
	for _, part := range strings.FieldsFunc(strings.ToLower(token), func(r rune) bool { return r == '-' || r == '_' }) {
		if part == seg {
			return true
		}
	}
	return false
}

func isContainer(n *html.Node) bool {
	return markup.IsTag(n, "div", "article", "aside", "li", "figure")
}

func hasHeadingChild(n *html.Node) bool {
	for _, ch := range markup.ElementChildren(n) {
		if markup.IsTag(ch, "h2", "h3", "h4") {
			return true
		}
	}
	return false
}

func hasLargeChild(n *html.Node) bool {
	for _, ch := range markup.ElementChildren(n) {
		if isLarge(ch) {
			return true
		}
	}
	return false
}

func isLarge(n *html.Node) bool {
	v, ok := markup.ElementStyle(n).Get("font-size")
	if !ok {
		return false
	}
	px, ok := markup.FontSizePx(v)
	return ok && px >= largeFontPx
}

// meaningful rejects short or purely symbolic text such as a lone emoji.
func meaningful(s string) bool {
	if utf8.RuneCountInString(s) <= 2 {
		return false
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(markup.CollapseSpace(s))
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
}

// wordOverlap counts distinct search words that also appear in the title.
func wordOverlap(title, search string) int {
	if title == "" {
		return 0
	}
	have := make(map[string]bool)
	for _, w := range words(title) {
		have[w] = true
	}
	seen := make(map[string]bool)
	n := 0
	for _, w := range words(search) {
		if have[w] && !seen[w] {
			seen[w] = true
			n++
		}
	}
	return n
}

func slugish(s string) string {
	return strings.Join(words(normalize(s)), "-")
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
