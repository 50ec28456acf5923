// Package edit implements the report mutation operators.
//
// Every operator takes the current report as an HTML string and returns a
// new one. Operators parse their own document, so a failed operator leaves
// the caller's report untouched.
package edit

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dgallion1/reportsmith/internal/locate"
	"github.com/dgallion1/reportsmith/internal/markup"
	"golang.org/x/net/html"
)

// Result is the outcome of one successful operator.
type Result struct {
	HTML    string `json:"-"`
	Message string `json:"message"`
	Instant bool   `json:"instant"`
	// Changes counts applied mutations. Zero means the operator was a no-op.
	Changes int `json:"changes"`
}

// NoOp reports whether the operator left the document unchanged.
func (r Result) NoOp() bool { return r.Changes == 0 }

// Icon positions.
const (
	BeforeTitle = "before_title"
	AfterTitle  = "after_title"
)

var propertyRe = regexp.MustCompile(`^-{0,2}[a-zA-Z][a-zA-Z0-9-]*$`)

func findElement(doc *markup.Document, search string) (*locate.Match, error) {
	m, err := locate.Element(doc.Root(), search)
	if errors.Is(err, locate.ErrEmptySearch) {
		return nil, invalidf("search_text is required")
	}
	return m, err
}

func findCard(doc *markup.Document, search string) (*locate.Match, error) {
	m, err := locate.Card(doc.Root(), search)
	if errors.Is(err, locate.ErrEmptySearch) {
		return nil, invalidf("search_text is required")
	}
	return m, err
}

// SetStyle sets one inline style property on the located element. Values of
// color properties may be color names.
func SetStyle(src, search, property, value string, p *Palette) (Result, error) {
	property = strings.ToLower(strings.TrimSpace(property))
	value = strings.TrimSpace(value)
	if !propertyRe.MatchString(property) {
		return Result{}, invalidf("invalid style property %q", property)
	}
	if strings.Contains(property, "color") || property == "background" {
		value = p.Resolve(value)
	}
	if value == "" || unsafeCSS.MatchString(value) {
		return Result{}, invalidf("invalid value %q for %s", value, property)
	}

	doc := markup.Parse(src)
	m, err := findElement(doc, search)
	if err != nil {
		return Result{}, err
	}

	st := markup.ElementStyle(m.Node)
	if old, ok := st.Get(property); ok && old == value && st.Merged() == 0 {
		return Result{HTML: src, Message: fmt.Sprintf("%s of %q is already %s", property, m.Title, value), Instant: true}, nil
	}
	st.Set(property, value)
	markup.SetElementStyle(m.Node, st)

	return Result{
		HTML:    doc.Render(),
		Message: fmt.Sprintf("Set %s to %s on %q", property, value, displayTitle(m)),
		Instant: true,
		Changes: 1,
	}, nil
}

// SetAccent recolors the left accent bar of the located element, creating a
// 4px solid bar when there is none.
func SetAccent(src, search, color string, p *Palette) (Result, error) {
	resolved := p.Resolve(color)
	if !validColor(resolved) {
		return Result{}, invalidf("unusable color %q", color)
	}

	doc := markup.Parse(src)
	m, err := findElement(doc, search)
	if err != nil {
		return Result{}, err
	}

	st := markup.ElementStyle(m.Node)
	before := st.String()
	switch {
	case st.Has("border-left"):
		v, _ := st.Get("border-left")
		st.Set("border-left", replaceBorderColor(v, resolved))
	case st.Has("border-left-color"):
		st.Set("border-left-color", resolved)
	default:
		st.Set("border-left", "4px solid "+resolved)
	}
	if st.String() == before {
		return Result{HTML: src, Message: fmt.Sprintf("Accent bar of %q is already %s", displayTitle(m), resolved), Instant: true}, nil
	}
	markup.SetElementStyle(m.Node, st)

	return Result{
		HTML:    doc.Render(),
		Message: fmt.Sprintf("Changed the accent bar of %q to %s", displayTitle(m), resolved),
		Instant: true,
		Changes: 1,
	}, nil
}

var borderStyles = map[string]bool{
	"none": true, "hidden": true, "dotted": true, "dashed": true, "solid": true,
	"double": true, "groove": true, "ridge": true, "inset": true, "outset": true,
}

// replaceBorderColor swaps the color part of a border shorthand, keeping
// width and line style.
func replaceBorderColor(v, color string) string {
	var out []string
	replaced := false
	for _, part := range cssWords(v) {
		lower := strings.ToLower(part)
		isWidth := lower == "thin" || lower == "medium" || lower == "thick" ||
			(len(lower) > 0 && (lower[0] == '.' || (lower[0] >= '0' && lower[0] <= '9')))
		if isWidth || borderStyles[lower] || lower == "!important" {
			out = append(out, part)
			continue
		}
		if !replaced {
			out = append(out, color)
			replaced = true
		}
	}
	if !replaced {
		out = append(out, color)
	}
	return strings.Join(out, " ")
}

// cssWords splits a value on spaces outside parentheses.
func cssWords(v string) []string {
	var out []string
	depth := 0
	start := -1
	for i, r := range v {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case (r == ' ' || r == '\t') && depth == 0:
			if start >= 0 {
				out = append(out, v[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, v[start:])
	}
	return out
}

// AddIcon puts icon before or after the title text of the located element,
// separated by one space. The title's existing markup is kept.
func AddIcon(src, search, icon, position string) (Result, error) {
	icon = strings.TrimSpace(icon)
	if icon == "" || len(icon) > 512 {
		return Result{}, invalidf("icon must be a short non-empty string")
	}
	pos, err := normalizePosition(position)
	if err != nil {
		return Result{}, err
	}

	doc := markup.Parse(src)
	m, err := findElement(doc, search)
	if err != nil {
		return Result{}, err
	}
	title := m.TitleNode
	if title == nil {
		title = markup.FindFirst(m.Node, func(n *html.Node) bool { return markup.IsTag(n, "h1", "h2", "h3", "h4") })
	}
	if title == nil {
		return Result{}, notFoundf("%q has no title element", search)
	}

	var iconNodes []*html.Node
	if strings.ContainsAny(icon, "<>") {
		iconNodes, err = markup.ParseFragment(title, icon)
		if err != nil {
			return Result{}, invalidf("icon markup: %v", err)
		}
	}

	if pos == BeforeTitle {
		if iconNodes == nil {
			markup.Prepend(title, markup.NewText(icon+" "))
		} else {
			markup.Prepend(title, append(iconNodes, markup.NewText(" "))...)
		}
	} else {
		if iconNodes == nil {
			markup.Append(title, markup.NewText(" "+icon))
		} else {
			markup.Append(title, append([]*html.Node{markup.NewText(" ")}, iconNodes...)...)
		}
	}

	return Result{
		HTML:    doc.Render(),
		Message: fmt.Sprintf("Added %s %s %q", icon, strings.ReplaceAll(pos, "_", " "), displayTitle(m)),
		Instant: true,
		Changes: 1,
	}, nil
}

func normalizePosition(p string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "", "before_title", "before", "start", "prepend", "left":
		return BeforeTitle, nil
	case "after_title", "after", "end", "append", "right":
		return AfterTitle, nil
	}
	return "", invalidf("position must be %s or %s, got %q", BeforeTitle, AfterTitle, p)
}

// DeleteCard removes the located card.
func DeleteCard(src, search string) (Result, error) {
	doc := markup.Parse(src)
	m, err := findCard(doc, search)
	if err != nil {
		return Result{}, err
	}
	markup.Remove(m.Node)
	return Result{
		HTML:    doc.Render(),
		Message: fmt.Sprintf("Deleted %q", displayTitle(m)),
		Instant: true,
		Changes: 1,
	}, nil
}

// MoveSection moves the section at index from so that it ends up at index
// to. Both indices count top-level sections before the move.
func MoveSection(src string, from, to int) (Result, error) {
	doc := markup.Parse(src)
	secs := doc.Sections()
	n := len(secs)
	if from < 0 || from >= n {
		return Result{}, notFoundf("section index %d out of range (have %d sections)", from, n)
	}
	if to < 0 || to >= n {
		return Result{}, notFoundf("target position %d out of range (have %d sections)", to, n)
	}
	title := sectionTitle(secs[from], from)
	if from == to {
		return Result{HTML: src, Message: fmt.Sprintf("%q is already at position %d", title, to), Instant: true}, nil
	}

	moving := secs[from]
	remaining := append(secs[:from:from], secs[from+1:]...)
	if to >= len(remaining) {
		markup.InsertAfter(remaining[len(remaining)-1], moving)
	} else {
		markup.InsertBefore(remaining[to], moving)
	}

	return Result{
		HTML:    doc.Render(),
		Message: fmt.Sprintf("Moved %q from position %d to %d", title, from, to),
		Instant: true,
		Changes: 1,
	}, nil
}

// DeleteSection removes the section at index.
func DeleteSection(src string, index int) (Result, error) {
	doc := markup.Parse(src)
	secs := doc.Sections()
	if index < 0 || index >= len(secs) {
		return Result{}, notFoundf("section index %d out of range (have %d sections)", index, len(secs))
	}
	title := sectionTitle(secs[index], index)
	markup.Remove(secs[index])
	return Result{
		HTML:    doc.Render(),
		Message: fmt.Sprintf("Deleted section %q", title),
		Instant: true,
		Changes: 1,
	}, nil
}

// SectionInfo describes one top-level section.
type SectionInfo struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ListSections returns index, id and title of each top-level section.
func ListSections(src string) []SectionInfo {
	secs := markup.Parse(src).Sections()
	out := make([]SectionInfo, len(secs))
	for i, s := range secs {
		out[i] = SectionInfo{Index: i, ID: markup.Attr(s, "id"), Title: sectionTitle(s, i)}
	}
	return out
}

func sectionTitle(sec *html.Node, index int) string {
	for _, tag := range []string{"h2", "h1"} {
		if h := markup.FirstTag(sec, tag); h != nil {
			if t := markup.Text(h); t != "" {
				return t
			}
		}
	}
	if id := markup.Attr(sec, "id"); id != "" {
		return id
	}
	return fmt.Sprintf("Section %d", index+1)
}

func displayTitle(m *locate.Match) string {
	if m.Title != "" {
		return m.Title
	}
	return markup.Attr(m.Node, "id")
}
