package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dgallion1/reportsmith/internal/deck"
	"github.com/dgallion1/reportsmith/internal/edit"
	"github.com/dgallion1/reportsmith/internal/locate"
	"github.com/dgallion1/reportsmith/internal/markup"
	"github.com/dgallion1/reportsmith/internal/profile"
	"github.com/dgallion1/reportsmith/internal/source"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"
)

func (a *app) extractCmd() *cobra.Command {
	var (
		query     string
		maxTokens int
	)
	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Extract text from a PDF, DOCX, TXT or Markdown document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			doc, err := source.Extract(cmd.Context(), args[0], f, source.Options{
				PdftotextFallback: cfg.PDFFallbackPdftotext,
			})
			if err != nil {
				return err
			}
			text := doc.Text()
			if maxTokens > 0 {
				text = source.Excerpt(text, query, maxTokens)
			}
			a.log.Info("extracted", "file", args[0], "format", doc.Format, "pages", doc.PageCount)

			if a.jsonOut {
				prof := profile.Detect(text)
				return a.printJSON(map[string]any{
					"title":            doc.Title,
					"format":           doc.Format,
					"page_count":       doc.PageCount,
					"estimated_tokens": source.EstimateTokens(text),
					"profile":          prof,
					"text":             text,
				})
			}
			a.printf("%s\n", text)
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "rank excerpt chunks by relevance to this query")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "return an excerpt of at most this many tokens")
	return cmd
}

func (a *app) sectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sections REPORT",
		Short: "List the top-level sections of a report in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			secs := edit.ListSections(src)
			if a.jsonOut {
				return a.printJSON(secs)
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tID\tTITLE")
			for _, s := range secs {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Index, orDash(s.ID), s.Title)
			}
			return tw.Flush()
		},
	}
}

type cardInfo struct {
	Title   string `json:"title"`
	Tag     string `json:"tag"`
	Class   string `json:"class,omitempty"`
	Section int    `json:"section"`
}

func (a *app) cardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cards REPORT",
		Short: "List the cards the locator can address, in document order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			cards := listCards(src)
			if a.jsonOut {
				return a.printJSON(cards)
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SECTION\tELEMENT\tTITLE")
			for _, c := range cards {
				el := c.Tag
				if c.Class != "" {
					el += "." + strings.ReplaceAll(c.Class, " ", ".")
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", c.Section, el, orDash(c.Title))
			}
			return tw.Flush()
		},
	}
}

// listCards pairs each locator candidate with the index of its enclosing
// top-level section, or -1 outside any section.
func listCards(src string) []cardInfo {
	doc := markup.Parse(src)
	secs := doc.Sections()
	var out []cardInfo
	for _, c := range locate.Candidates(doc.Root()) {
		info := cardInfo{
			Title:   c.Title,
			Tag:     c.Node.Data,
			Class:   markup.Attr(c.Node, "class"),
			Section: -1,
		}
		for i, s := range secs {
			if contains(s, c.Node) {
				info.Section = i
				break
			}
		}
		out = append(out, info)
	}
	return out
}

func contains(ancestor, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

func (a *app) deckCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "deck REPORT",
		Short: "Compile a report into a self-contained slide deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			out, err := deck.Build(src)
			if err != nil {
				return err
			}
			return a.writeOutput(output, []byte(out))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
