package locate

import (
	"errors"
	"testing"

	"github.com/dgallion1/reportsmith/internal/markup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func root(t *testing.T, src string) *markup.Document {
	t.Helper()
	return markup.Parse("<html><body>" + src + "</body></html>")
}

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		cand   Candidate
		search string
		want   int
	}{
		{"exact", Candidate{Title: "Present Value"}, "present  value", ScoreExact},
		{"title contains", Candidate{Title: "Present Value Calculation"}, "Present Value", 880},
		{"title contains far", Candidate{Title: "Net Present Value of the Whole Investment Portfolio Over the Next Ten Years"}, "present value", 500},
		{"search contains title", Candidate{Title: "Risk"}, "risk analysis", ScoreContainedIn},
		{"word overlap", Candidate{Title: "Market Risk Overview"}, "risk of market", 2 * ScoreWord},
		{"full text", Candidate{Title: "Summary", FullText: "The churn rate fell"}, "churn rate", ScoreFullText},
		{"first child equals", Candidate{Title: "85%", FirstText: "Completion Rate"}, "completion rate", BonusFirstChildSame},
		{"first child contains", Candidate{Title: "Cash Flow", FirstText: "Cash Flow Statement"}, "cash flow", ScoreExact + BonusFirstChildHas},
		{"nothing", Candidate{Title: "Revenue", FullText: "Revenue grew"}, "headcount", 0},
		{"empty search", Candidate{Title: "Revenue"}, "  ", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.cand, tt.search))
		})
	}
}

func TestCard_ExactTitleBeatsLongerTitle(t *testing.T) {
	doc := root(t, `
<div class="card"><h3>Present Value Calculation</h3><p>a</p></div>
<div class="card"><h3>Present Value</h3><p>b</p></div>`)

	m, err := Card(doc.Root(), "Present Value")
	require.NoError(t, err)
	assert.Equal(t, "Present Value", m.Title)
	assert.Equal(t, "b", markup.Text(markup.First(m.Node, "p")))
}

func TestCard_TieKeepsDocumentOrder(t *testing.T) {
	doc := root(t, `
<div class="card" id="one"><h3>Risk</h3></div>
<div class="card" id="two"><h3>Risk</h3></div>`)

	m, err := Card(doc.Root(), "risk")
	require.NoError(t, err)
	assert.Equal(t, "one", markup.Attr(m.Node, "id"))
}

func TestCandidates_GridWrapperNeverReturned(t *testing.T) {
	doc := root(t, `
<div id="grid" style="display: grid; grid-template-columns: 1fr 1fr">
  <div style="padding: 1rem"><h3>Cash Flow</h3><p>ok</p></div>
  <div style="padding: 1rem"><h3>Risk</h3><p>high</p></div>
</div>`)

	cands := Candidates(doc.Root())
	require.Len(t, cands, 2)
	for _, c := range cands {
		assert.NotEqual(t, "grid", markup.Attr(c.Node, "id"))
	}

	m, err := Card(doc.Root(), "Cash Flow")
	require.NoError(t, err)
	assert.Equal(t, "Cash Flow", m.Title)
	assert.Equal(t, "grid", markup.Attr(markup.ParentElement(m.Node), "id"))
}

func TestCandidates_GridClassWrapperWithMarker(t *testing.T) {
	doc := root(t, `
<div class="card-grid">
  <div class="kpi"><span>Churn</span></div>
  <div class="kpi"><span>NPS</span></div>
</div>`)

	cands := Candidates(doc.Root())
	require.Len(t, cands, 2)
	assert.Equal(t, "Churn", cands[0].FullText)
}

func TestTitleOf_Priority(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"large text first", `<div class="card"><h3>Revenue</h3><div style="font-size: 2.5rem">$1.2M</div></div>`, "$1.2M"},
		{"glyph skipped", `<div class="card"><span style="font-size:3rem">📊</span><h3>Growth</h3></div>`, "Growth"},
		{"short skipped", `<div class="card"><span style="font-size:40px">A+</span><h2>Grade</h2></div>`, "Grade"},
		{"small font ignored", `<div class="card"><span style="font-size:1rem">Minor</span><h4>Notes</h4></div>`, "Notes"},
		{"h3 before h2", `<div class="card"><h2>Overview</h2><h3>Details</h3></div>`, "Details"},
		{"h2 before h4", `<div class="card"><h4>Small</h4><h2>Big</h2></div>`, "Big"},
		{"none", `<div class="card"><p>Just text</p></div>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := root(t, tt.src)
			card := markup.First(doc.Root(), ".card")
			require.NotNil(t, card)
			got, _ := TitleOf(card)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCandidates_LargeChildContainer(t *testing.T) {
	doc := root(t, `<div id="big"><div style="font-size: 2rem">42 days</div><p>Average delay</p></div>`)
	cands := Candidates(doc.Root())
	require.Len(t, cands, 1)
	assert.Equal(t, "big", markup.Attr(cands[0].Node, "id"))
	assert.Equal(t, "42 days", cands[0].Title)

	m, err := Card(doc.Root(), "average delay")
	require.NoError(t, err)
	assert.Equal(t, ScoreFullText, m.Score)
}

func TestCard_NotFound(t *testing.T) {
	doc := root(t, `<div class="card"><h3>Revenue</h3></div>`)

	_, err := Card(doc.Root(), "headcount")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = Card(doc.Root(), " ")
	assert.True(t, errors.Is(err, ErrEmptySearch))
}

func TestSection_ByTitleAndID(t *testing.T) {
	doc := root(t, `
<section id="hero"><h1>Report</h1></section>
<section id="market-analysis"><h2>Market Analysis</h2><p>x</p></section>
<section id="risks"><h2>Risk Register</h2></section>`)

	m, err := Section(doc.Root(), "market analysis")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Index)
	assert.Equal(t, KindSection, m.Kind)

	m, err = Section(doc.Root(), "risks")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Index)
}

func TestElement_FallsBackToSection(t *testing.T) {
	doc := root(t, `
<section id="a"><h2>Findings</h2><div class="card"><h3>Churn</h3></div></section>`)

	m, err := Element(doc.Root(), "churn")
	require.NoError(t, err)
	assert.Equal(t, KindCard, m.Kind)

	m, err = Element(doc.Root(), "findings")
	require.NoError(t, err)
	assert.Equal(t, KindSection, m.Kind)
	assert.Equal(t, 0, m.Index)
}

func TestDrillDown(t *testing.T) {
	doc := root(t, `
<div id="g" class="grid"><div class="c1"><h3>Alpha</h3></div><div class="c2"><h3>Beta</h3></div></div>
<div id="plain"><h3>Gamma</h3></div>`)

	g := markup.First(doc.Root(), "#g")
	assert.Equal(t, "c2", markup.Attr(DrillDown(g, "beta"), "class"))
	assert.Equal(t, "c1", markup.Attr(DrillDown(g, "zzz"), "class"))

	plain := markup.First(doc.Root(), "#plain")
	assert.Same(t, plain, DrillDown(plain, "gamma"))
}

const metricsWrapper = `<section id="m">
<div class="container"><h2>Key Metrics</h2>
  <div class="card"><h3>Revenue</h3><div style="font-size: 2.5rem">$5M</div></div>
  <div class="card"><h3>Margin</h3><div style="font-size: 2.5rem">40%</div></div>
</div></section>`

func TestTitleOf_WrapperKeepsOwnHeading(t *testing.T) {
	doc := root(t, metricsWrapper)
	wrapper := markup.First(doc.Root(), ".container")
	require.NotNil(t, wrapper)

	got, node := TitleOf(wrapper)
	assert.Equal(t, "Key Metrics", got)
	assert.Equal(t, "h2", node.Data)
}

func TestCard_NestedCardBeatsWrapper(t *testing.T) {
	doc := root(t, metricsWrapper)

	m, err := Card(doc.Root(), "$5M")
	require.NoError(t, err)
	assert.Equal(t, "card", markup.Attr(m.Node, "class"))
	assert.Equal(t, "Revenue", markup.Text(markup.FirstTag(m.Node, "h3")))

	m, err = Card(doc.Root(), "key metrics")
	require.NoError(t, err)
	assert.Equal(t, "container", markup.Attr(m.Node, "class"))
}

func TestTitleOf_WrapperWithoutHeading(t *testing.T) {
	doc := root(t, `<div class="metrics-panel">
  <div class="card"><div style="font-size: 2.5rem">$5M</div></div>
  <div class="card"><div style="font-size: 2.5rem">40%</div></div>
</div>`)
	panel := markup.First(doc.Root(), ".metrics-panel")
	got, _ := TitleOf(panel)
	assert.Empty(t, got)

	m, err := Card(doc.Root(), "40%")
	require.NoError(t, err)
	assert.Equal(t, "card", markup.Attr(m.Node, "class"))
	assert.Equal(t, "40%", m.Title)
}

func TestCard_HeaderBlockTitlesItsCard(t *testing.T) {
	doc := root(t, `<div class="card" id="outer"><div class="card-header"><h3>Revenue</h3></div><p>$5M this quarter</p></div>`)
	outer := markup.First(doc.Root(), "#outer")

	got, _ := TitleOf(outer)
	assert.Equal(t, "Revenue", got)

	m, err := Card(doc.Root(), "revenue")
	require.NoError(t, err)
	assert.Equal(t, "outer", markup.Attr(m.Node, "id"))
}
