// Package deck compiles a generated HTML report into a self-contained slide
// presentation: a title slide, a table of contents, then one slide per
// report section in document order.
package deck

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/dgallion1/reportsmith/internal/markup"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

//go:embed templates/deck.html.tmpl
var templateFS embed.FS

var deckTemplate = template.Must(template.ParseFS(templateFS, "templates/deck.html.tmpl"))

const (
	defaultTitle    = "Report"
	defaultSubtitle = "Analysis Report"
)

// Kind identifies what a slide shows.
type Kind string

const (
	KindTitle    Kind = "title"
	KindContents Kind = "contents"
	KindSection  Kind = "section"
)

// Section is one non-hero report section.
type Section struct {
	ID      string `json:"id,omitempty"`
	Title   string `json:"title"`
	Content string `json:"-"`
}

// Outline is what Extract reads out of a report.
type Outline struct {
	Title    string    `json:"title"`
	Subtitle string    `json:"subtitle"`
	Sections []Section `json:"sections"`
}

// Slide is one page of the deck. Index is 0-based and contiguous.
type Slide struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	Kind  Kind   `json:"kind"`

	content template.HTML
}

// Entry is one table-of-contents card.
type Entry struct {
	Number string
	Title  string
	Target int
	Emoji  string
	Theme  Theme
}

// Theme is the color set of a table-of-contents card.
type Theme struct {
	Background template.CSS
	Border     template.CSS
	Badge      template.CSS
	Icon       template.CSS
}

// Deck is a compiled presentation.
type Deck struct {
	Title    string
	Subtitle string
	Slides   []Slide
	Contents []Entry

	head []template.HTML
}

var themes = []Theme{
	theme("59,130,246", "#3b82f6", "#1e40af"),
	theme("16,185,129", "#10b981", "#047857"),
	theme("245,158,11", "#f59e0b", "#d97706"),
	theme("147,51,234", "#9333ea", "#7c3aed"),
	theme("6,182,212", "#06b6d4", "#0891b2"),
}

var emojis = []string{"📊", "💰", "📈", "🌐", "🎯", "💸", "✅"}

func theme(rgb, from, to string) Theme {
	return Theme{
		Background: template.CSS(fmt.Sprintf("linear-gradient(135deg, rgba(%s,0.1) 0%%, rgba(%s,0.05) 100%%)", rgb, rgb)),
		Border:     template.CSS(fmt.Sprintf("rgba(%s,0.2)", rgb)),
		Badge:      template.CSS(fmt.Sprintf("linear-gradient(135deg, %s 0%%, %s 100%%)", from, to)),
		Icon:       template.CSS(fmt.Sprintf("rgba(%s,0.15)", rgb)),
	}
}

// Extract reads the title, subtitle and non-hero sections of a report.
func Extract(doc *markup.Document) Outline {
	hero := findHero(doc.Root())
	out := Outline{
		Title:    reportTitle(doc, hero),
		Subtitle: defaultSubtitle,
	}
	if hero != nil {
		if p := markup.FirstTag(hero, "p"); p != nil {
			if s := markup.Text(p); s != "" {
				out.Subtitle = s
			}
		}
	}

	for _, sec := range doc.Sections() {
		if sec == hero || isHero(sec) {
			continue
		}
		content := strings.TrimSpace(markup.InnerHTML(sec))
		if content == "" {
			continue
		}
		title := ""
		if h2 := markup.FirstTag(sec, "h2"); h2 != nil {
			title = markup.Text(h2)
		}
		if title == "" {
			title = fmt.Sprintf("Section %d", len(out.Sections)+1)
		}
		out.Sections = append(out.Sections, Section{
			ID:      markup.Attr(sec, "id"),
			Title:   title,
			Content: content,
		})
	}
	return out
}

func reportTitle(doc *markup.Document, hero *html.Node) string {
	if hero != nil {
		if h1 := markup.FirstTag(hero, "h1"); h1 != nil {
			if t := markup.Text(h1); t != "" {
				return t
			}
		}
	}
	if t := markup.CollapseSpace(doc.Title()); t != "" {
		return t
	}
	if h1 := markup.FirstTag(doc.Body(), "h1"); h1 != nil {
		if t := markup.Text(h1); t != "" {
			return t
		}
	}
	return defaultTitle
}

func isHero(n *html.Node) bool {
	return markup.Attr(n, "id") == "hero" || markup.HasClass(n, "hero")
}

func findHero(root *html.Node) *html.Node {
	return markup.FindFirst(root, isHero)
}

// Compile turns report HTML into a deck.
func Compile(src string) (*Deck, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("compile deck: empty report")
	}
	doc := markup.Parse(src)
	outline := Extract(doc)

	d := &Deck{
		Title:    outline.Title,
		Subtitle: outline.Subtitle,
		head:     carriedHead(doc),
	}
	d.Slides = append(d.Slides,
		Slide{Index: 0, Title: outline.Title, Kind: KindTitle},
		Slide{Index: 1, Title: "Table of Contents", Kind: KindContents},
	)
	for i, sec := range outline.Sections {
		d.Contents = append(d.Contents, Entry{
			Number: fmt.Sprintf("%02d", i+1),
			Title:  sec.Title,
			Target: i + 2,
			Emoji:  emojis[i%len(emojis)],
			Theme:  themes[i%len(themes)],
		})
		d.Slides = append(d.Slides, Slide{
			Index:   i + 2,
			Title:   sec.Title,
			Kind:    KindSection,
			content: template.HTML(sec.Content),
		})
	}
	for i := range d.Slides {
		if strings.TrimSpace(d.Slides[i].Title) == "" {
			d.Slides[i].Title = fmt.Sprintf("Slide %d", i+1)
		}
	}
	return d, nil
}

// carriedHead collects the report's <style> blocks and stylesheet links so
// section content keeps its look inside the deck. Scripts are dropped.
func carriedHead(doc *markup.Document) []template.HTML {
	var out []template.HTML
	markup.Walk(doc.Root(), func(n *html.Node) bool {
		switch n.DataAtom {
		case atom.Style:
			out = append(out, template.HTML(markup.OuterHTML(n)))
			return false
		case atom.Link:
			if strings.EqualFold(markup.Attr(n, "rel"), "stylesheet") {
				out = append(out, template.HTML(markup.OuterHTML(n)))
			}
		}
		return true
	})
	return out
}

// Content returns the slide body markup. Only section slides have one.
func (s Slide) Content() template.HTML { return s.content }

// Total is the number of slides.
func (d *Deck) Total() int { return len(d.Slides) }

// Head returns the carried report styles.
func (d *Deck) Head() []template.HTML { return d.head }

// Render produces the complete presentation document.
func (d *Deck) Render() (string, error) {
	var buf bytes.Buffer
	if err := deckTemplate.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render deck: %w", err)
	}
	return buf.String(), nil
}

// Build compiles and renders in one step.
func Build(src string) (string, error) {
	d, err := Compile(src)
	if err != nil {
		return "", err
	}
	return d.Render()
}
