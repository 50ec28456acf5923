package source

import (
	"io"
	"strings"

	"github.com/dgallion1/reportsmith/internal/markup"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// extractHTML keeps block text in document order and starts a new page at
// every h1. The <title> wins over the first heading as document title.
func extractHTML(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	parsed := markup.Parse(string(data))

	doc := &Document{Title: markup.CollapseSpace(parsed.Title())}
	var current strings.Builder
	flush := func() {
		if t := strings.TrimSpace(current.String()); t != "" {
			doc.Pages = append(doc.Pages, Page{Number: len(doc.Pages) + 1, Text: t})
		}
		current.Reset()
	}
	add := func(s string) {
		if s = markup.CollapseSpace(s); s == "" {
			return
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(s)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Nav, atom.Footer, atom.Header, atom.Noscript, atom.Template:
				return
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				title := markup.Text(n)
				if n.DataAtom == atom.H1 {
					flush()
				}
				if doc.Title == "" {
					doc.Title = markup.CollapseSpace(title)
				}
				add(title)
				return
			case atom.P, atom.Li, atom.Td, atom.Th, atom.Blockquote, atom.Pre, atom.Figcaption:
				add(markup.Text(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	root := parsed.Body()
	if root == nil {
		root = parsed.Root()
	}
	walk(root)
	flush()
	return doc, nil
}
