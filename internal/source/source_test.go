package source

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_TextParagraphs(t *testing.T) {
	input := "First paragraph line one.\r\nFirst paragraph line two.\n\n\nSecond paragraph.\n\nThird paragraph."
	doc, err := Extract(context.Background(), "notes.txt", strings.NewReader(input), Options{})
	require.NoError(t, err)

	assert.Equal(t, "notes", doc.Title)
	assert.Equal(t, "txt", doc.Format)
	assert.Equal(t, 1, doc.PageCount)
	assert.Equal(t, "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph.", doc.Text())
}

func TestExtract_Markdown(t *testing.T) {
	input := "# Cash Flow Analysis\n\nIntro *with* emphasis.\n\n## Details\n\n- one\n- two\n\n# Risks\n\nMarket risk.\n"
	doc, err := Extract(context.Background(), "report.md", strings.NewReader(input), Options{})
	require.NoError(t, err)

	assert.Equal(t, "Cash Flow Analysis", doc.Title, "title from first heading")
	require.Len(t, doc.Pages, 2, "one page per top-level heading")
	assert.Contains(t, doc.Pages[0].Text, "Intro with emphasis.")
	assert.Contains(t, doc.Pages[0].Text, "one\ntwo")
	assert.Equal(t, 1, strings.Count(doc.Pages[0].Text, "Cash Flow Analysis"), "heading text duplicated")
	assert.True(t, strings.HasPrefix(doc.Pages[1].Text, "Risks"), doc.Pages[1].Text)
}

func TestExtract_Unsupported(t *testing.T) {
	_, err := Extract(context.Background(), "sheet.xlsx", strings.NewReader("x"), Options{})
	require.ErrorIs(t, err, ErrUnsupported)

	assert.False(t, IsSupported("sheet.xlsx"))
	assert.True(t, IsSupported("Report.PDF"))
}

func TestExtract_Empty(t *testing.T) {
	_, err := Extract(context.Background(), "blank.txt", strings.NewReader("\n\n  \n"), Options{})
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestExtract_InvalidPDF(t *testing.T) {
	_, err := Extract(context.Background(), "broken.pdf", strings.NewReader("not a pdf at all"), Options{})
	assert.Error(t, err)
}

func TestEstimateTokens(t *testing.T) {
	assert.Zero(t, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("a"))
	assert.Equal(t, 399, EstimateTokens(strings.Repeat("word ", 300)))
}

func TestExcerpt_FitsWhole(t *testing.T) {
	text := "Short document about cash flow."
	assert.Equal(t, text, Excerpt(text, "risk", 100))
	assert.Empty(t, Excerpt(text, "risk", 0), "zero budget")
}

func TestExcerpt_PrefersRelevantChunks(t *testing.T) {
	filler := strings.Repeat("General background sentence without the keyword. ", 60)
	relevant := strings.Repeat("Liquidity risk rose sharply this quarter. ", 20)
	text := filler + "\n\n" + filler + "\n\n" + relevant + "\n\n" + filler

	got := Excerpt(text, "liquidity risk", 400)
	require.Contains(t, got, "Liquidity risk rose")
	assert.LessOrEqual(t, EstimateTokens(got), 400)
}

func TestExcerpt_NoQueryKeepsLeadingText(t *testing.T) {
	text := "Opening paragraph.\n\n" + strings.Repeat("More text here. ", 400)
	got := Excerpt(text, "", 300)
	assert.True(t, strings.HasPrefix(got, "Opening paragraph."), got[:min(80, len(got))])
}

func TestChunks_SplitsLongParagraph(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 100)
	chunks := Chunks(text, 100)
	require.GreaterOrEqual(t, len(chunks), 5)
	for i, c := range chunks {
		assert.LessOrEqual(t, EstimateTokens(c), 100, "chunk %d", i)
	}
}

func TestExtract_HTML(t *testing.T) {
	input := `<html><head><title>Bond Primer</title><style>p { color: red; }</style></head><body>
<nav><a href="#">Home</a></nav>
<h1>Valuation</h1><p>Present   value of
coupons.</p><ul><li>Par</li><li>Premium</li></ul>
<h1>Risks</h1><p>Duration and convexity.</p>
<script>var x = 1;</script>
</body></html>`
	doc, err := Extract(context.Background(), "primer.html", strings.NewReader(input), Options{})
	require.NoError(t, err)

	assert.Equal(t, "Bond Primer", doc.Title)
	require.Len(t, doc.Pages, 2, "one page per h1")
	assert.Equal(t, "Valuation\n\nPresent value of coupons.\n\nPar\n\nPremium", doc.Pages[0].Text)
	for _, bad := range []string{"Home", "color: red", "var x"} {
		assert.NotContains(t, doc.Text(), bad)
	}
}

func TestExtract_CSV(t *testing.T) {
	var b strings.Builder
	b.WriteString("bond,coupon,maturity\n")
	for i := range 25 {
		b.WriteString("B" + strings.Repeat("x", i%3) + ",5%,2030\n")
	}
	doc, err := Extract(context.Background(), "bonds.csv", strings.NewReader(b.String()), Options{})
	require.NoError(t, err)

	require.Len(t, doc.Pages, 2)
	assert.True(t, strings.HasPrefix(doc.Pages[0].Text, "Rows 2-21\nColumns: bond, coupon, maturity"), doc.Pages[0].Text)
	assert.Contains(t, doc.Pages[0].Text, "bond: B, coupon: 5%, maturity: 2030")
	assert.True(t, strings.HasPrefix(doc.Pages[1].Text, "Rows 22-26"), doc.Pages[1].Text)

	_, err = Extract(context.Background(), "header.csv", strings.NewReader("a,b\n"), Options{})
	assert.ErrorIs(t, err, ErrEmpty, "header-only csv")
}
