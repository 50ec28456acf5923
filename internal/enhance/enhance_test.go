package enhance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dgallion1/reportsmith/internal/edit"
	"github.com/dgallion1/reportsmith/internal/genai"
	"github.com/dgallion1/reportsmith/internal/markup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html/atom"
)

const report = `<html><head><style>body { color: #111; }</style></head><body>
<section id="summary"><h2>Summary</h2><div class="card"><h3>Revenue</h3></div><div class="card"><h3>Margin</h3></div></section>
<section id="risks"><h2>Risks</h2></section>
</body></html>`

const svg = `<svg width="40" height="40"><circle cx="20" cy="20" r="10" fill="#3b82f6"></circle></svg>`

func TestParsePlan(t *testing.T) {
	raw := "Here you go:\n```json\n" + `{"newCSS": ".card { padding: 8px; }", "svgInjections": [
		{"selector": "#summary", "position": "append", "svg": "<svg></svg>"},
		{"targetSelector": ".card", "position": "Before", "svgCode": "<svg id=\"b\"></svg>"}
	]}` + "\n```"
	p, err := ParsePlan(raw)
	require.NoError(t, err)
	assert.Equal(t, ".card { padding: 8px; }", p.NewCSS)
	require.Len(t, p.Injections, 2)
	assert.Equal(t, Injection{Selector: "#summary", Position: "append", SVG: "<svg></svg>"}, p.Injections[0])
	assert.Equal(t, Injection{Selector: ".card", Position: "before", SVG: `<svg id="b"></svg>`}, p.Injections[1])
}

func TestParsePlan_Malformed(t *testing.T) {
	for _, raw := range []string{
		"not json",
		`{"svgInjections": []}`,
		`{"newCSS": "a{}"}`,
		`{"newCSS": "  ", "svgInjections": []}`,
	} {
		_, err := ParsePlan(raw)
		var m *edit.MalformedOutputError
		assert.True(t, errors.As(err, &m), raw)
	}
}

func TestNormalize(t *testing.T) {
	p := &Plan{NewCSS: ":root { --success: #28A745; --danger: #dc3545; } .x { color: #ffc107; border-color: #17a2b8; background: #28a7451a; }"}
	for i := 0; i < 12; i++ {
		p.Injections = append(p.Injections, Injection{Selector: fmt.Sprintf("#s%d", i), Position: Append, SVG: svg})
	}
	p.Injections[1].SVG = `<svg><rect fill="#0f172a"></rect><text>75%</text></svg>`
	p.Injections[2].SVG = `<svg><text>Avancement du rapport</text></svg>`
	p.Injections[3].SVG = `<svg><text>Report 82%</text></svg>`

	dropped := p.Normalize()

	assert.Equal(t, 5, dropped) // 2 over the cap, 3 unreadable
	require.Len(t, p.Injections, 7)
	assert.Equal(t, "#s0", p.Injections[0].Selector)
	assert.Equal(t, "#s4", p.Injections[1].Selector)
	assert.Equal(t, "#s9", p.Injections[6].Selector)

	assert.Contains(t, p.NewCSS, "--success: #60a5fa")
	assert.Contains(t, p.NewCSS, "--danger: #3b82f6")
	assert.Contains(t, p.NewCSS, "color: #93c5fd")
	assert.Contains(t, p.NewCSS, "border-color: #60a5fa")
	assert.Contains(t, p.NewCSS, "#28a7451a", "longer hex tokens are not status colors")
	assert.Contains(t, p.NewCSS, "li { margin-bottom: 8px; }")
	assert.Contains(t, p.NewCSS, `svg[width="300"]`)
}

func TestApply(t *testing.T) {
	p := &Plan{
		NewCSS: ".card { padding: 8px; }",
		Injections: []Injection{
			{Selector: "#summary > h2", Position: After, SVG: svg},
			{Selector: ".card", Position: Prepend, SVG: `<svg class="icon"></svg>`},
			{Selector: "#risks", Position: Append, SVG: `<svg class="tail"></svg>`},
			{Selector: "#missing", Position: Append, SVG: svg},
			{Selector: "#risks", Position: "sideways", SVG: svg},
			{Selector: "div[", Position: Append, SVG: svg},
		},
	}
	out, outcome := Apply(report, p)

	assert.Equal(t, 3, outcome.Injected)
	assert.Len(t, outcome.Skipped, 3)

	assert.Contains(t, out, `<style id="report-enhancement">.card { padding: 8px; }</style></head>`)
	assert.Contains(t, out, "body { color: #111; }", "original styles are kept")
	assert.Contains(t, out, `<h2>Summary</h2><svg width="40" height="40">`)
	assert.Equal(t, 2, strings.Count(out, `<div class="card"><svg class="icon"></svg><h3>`))
	assert.Contains(t, out, `<h2>Risks</h2><svg class="tail"></svg></section>`)
}

type fakeGen struct {
	out string
	err error
}

func (f *fakeGen) Generate(_ context.Context, _ genai.Request) (string, error) {
	return f.out, f.err
}

func TestEnhancer(t *testing.T) {
	gen := &fakeGen{out: `{"newCSS": "h2 { color: #dc3545; }", "svgInjections": [{"selector": "#risks", "position": "append", "svg": "<svg class=\"r\"></svg>"}]}`}
	res, err := NewEnhancer(gen, nil).Enhance(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Injected)
	assert.Zero(t, res.Dropped)
	assert.Contains(t, res.HTML, "h2 { color: #3b82f6; }")
	assert.Contains(t, res.HTML, `<svg class="r"></svg>`)
}

func TestEnhancer_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewEnhancer(&fakeGen{}, nil).Enhance(ctx, " ")
	assert.ErrorIs(t, err, edit.ErrInvalidArgument)

	_, err = NewEnhancer(nil, nil).Enhance(ctx, report)
	assert.ErrorIs(t, err, edit.ErrUpstreamUnavailable)

	_, err = NewEnhancer(&fakeGen{err: &genai.RetryableError{StatusCode: 529}}, nil).Enhance(ctx, report)
	assert.ErrorIs(t, err, edit.ErrUpstreamUnavailable)
	assert.True(t, edit.Retryable(err))

	_, err = NewEnhancer(&fakeGen{out: "sorry, no"}, nil).Enhance(ctx, report)
	assert.Equal(t, edit.KindMalformedOutput, edit.KindOf(err))

	_, err = NewEnhancer(&fakeGen{out: ""}, nil).Enhance(ctx, report)
	assert.Equal(t, edit.KindMalformedOutput, edit.KindOf(err))
}

func TestApply_CombinatorsAndPseudoClasses(t *testing.T) {
	p := &Plan{Injections: []Injection{
		{Selector: "h2 + div", Position: Append, SVG: `<svg class="adjacent"></svg>`},
		{Selector: ".card ~ .card", Position: Append, SVG: `<svg class="later"></svg>`},
		{Selector: "section:nth-child(2n)", Position: Append, SVG: `<svg class="even"></svg>`},
		{Selector: "section:not(#summary) > h2", Position: After, SVG: `<svg class="not"></svg>`},
	}}
	out, outcome := Apply(report, p)

	assert.Equal(t, 4, outcome.Injected)
	assert.Empty(t, outcome.Skipped)
	assert.Contains(t, out, `<h3>Revenue</h3><svg class="adjacent"></svg></div>`)
	assert.Contains(t, out, `<h3>Margin</h3><svg class="later"></svg></div>`)
	assert.Equal(t, 1, strings.Count(out, `class="adjacent"`))
	assert.Equal(t, 1, strings.Count(out, `class="later"`))
	assert.Contains(t, out, `<h2>Risks</h2><svg class="not"></svg><svg class="even"></svg></section>`)
}

func TestInject_AllOrNothing(t *testing.T) {
	doc := markup.Parse(report)
	cards := markup.Query(doc.Root(), ".card")
	require.Len(t, cards, 2)
	// A node whose atom disagrees with its tag name cannot host a fragment.
	cards[1].DataAtom = atom.Span

	reason := inject(doc, Injection{Selector: ".card", Position: Append, SVG: `<svg class="x"></svg>`})
	assert.NotEmpty(t, reason)
	assert.NotContains(t, doc.Render(), `class="x"`)
}
