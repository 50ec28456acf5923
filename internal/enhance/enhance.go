// Package enhance applies a generated visual plan (extra CSS plus SVG
// snippets anchored by selectors) to a report.
package enhance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/dgallion1/reportsmith/internal/edit"
	"github.com/dgallion1/reportsmith/internal/genai"
	"github.com/dgallion1/reportsmith/internal/markup"
	"github.com/dgallion1/reportsmith/internal/prompts"

	"golang.org/x/net/html"
)

// MaxInjections caps the SVG snippets applied from one plan.
const MaxInjections = 10

// StyleID is the id of the <style> element that carries the plan's CSS.
const StyleID = "report-enhancement"

// Injection positions.
const (
	Append  = "append"
	Prepend = "prepend"
	Before  = "before"
	After   = "after"
)

// Injection places one SVG snippet relative to every element matching
// Selector.
type Injection struct {
	Selector string `json:"selector"`
	Position string `json:"position"`
	SVG      string `json:"svg"`
}

// UnmarshalJSON also accepts the targetSelector/svgCode spelling.
func (in *Injection) UnmarshalJSON(data []byte) error {
	var raw struct {
		Selector       string `json:"selector"`
		TargetSelector string `json:"targetSelector"`
		Position       string `json:"position"`
		SVG            string `json:"svg"`
		SVGCode        string `json:"svgCode"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	in.Selector = firstNonEmpty(raw.Selector, raw.TargetSelector)
	in.Position = strings.ToLower(strings.TrimSpace(raw.Position))
	in.SVG = firstNonEmpty(raw.SVG, raw.SVGCode)
	return nil
}

// Plan is the generation service's answer to an enhancement prompt.
type Plan struct {
	NewCSS     string      `json:"newCSS"`
	Injections []Injection `json:"svgInjections"`
}

// ParsePlan decodes a plan out of a raw reply, tolerating code fences and
// surrounding prose.
func ParsePlan(raw string) (*Plan, error) {
	var p struct {
		NewCSS     *string      `json:"newCSS"`
		Injections *[]Injection `json:"svgInjections"`
	}
	if err := json.Unmarshal([]byte(genai.ExtractJSON(raw)), &p); err != nil {
		return nil, &edit.MalformedOutputError{Op: "enhance", Reason: err.Error(), Snippet: genai.Truncate(raw, 200)}
	}
	if p.NewCSS == nil || strings.TrimSpace(*p.NewCSS) == "" || p.Injections == nil {
		return nil, &edit.MalformedOutputError{Op: "enhance", Reason: "newCSS or svgInjections missing", Snippet: genai.Truncate(raw, 200)}
	}
	return &Plan{NewCSS: *p.NewCSS, Injections: *p.Injections}, nil
}

var forbiddenColors = map[string]string{
	"#28a745": "#60a5fa",
	"#dc3545": "#3b82f6",
	"#ffc107": "#93c5fd",
	"#17a2b8": "#60a5fa",
}

var forbiddenColorRe = regexp.MustCompile(`(?i)#(28a745|dc3545|ffc107|17a2b8)\b`)

const listCSS = `

/* list spacing */
ul, ol { margin-left: 20px; padding-left: 24px; }
li { margin-bottom: 8px; }
`

const svgCSS = `

/* center injected graphics */
.chart-container + svg, section > svg, .card > svg { display: block; margin: 24px auto !important; text-align: center; }
svg[width="300"], svg[width="320"] { display: block; margin: 24px auto !important; }
`

// Normalize forces the plan back into the report's palette and limits: it
// swaps forbidden status colors for blues, keeps the first MaxInjections
// injections, drops unreadable progress graphics, and appends the list and
// SVG layout rules. It returns the number of injections removed.
func (p *Plan) Normalize() int {
	before := len(p.Injections)

	p.NewCSS = forbiddenColorRe.ReplaceAllStringFunc(p.NewCSS, func(m string) string {
		return forbiddenColors[strings.ToLower(m)]
	})

	if len(p.Injections) > MaxInjections {
		p.Injections = p.Injections[:MaxInjections]
	}
	kept := p.Injections[:0]
	for _, in := range p.Injections {
		if !unreadable(in.SVG) {
			kept = append(kept, in)
		}
	}
	p.Injections = kept

	p.NewCSS += listCSS + svgCSS
	return before - len(p.Injections)
}

var (
	percentLabels = []string{"complété", "completed", "60%", "70%", "75%", "80%", "85%", "90%"}
	darkFills     = []string{`fill="#0f172a"`, `fill="%230f172a"`, `fill="#1e293b"`, `fill="%231e293b"`}
)

// unreadable flags percentage graphics drawn on dark fills and "report
// progress" widgets, which carry no information about the document.
func unreadable(svg string) bool {
	lower := strings.ToLower(svg)
	if containsAny(lower, percentLabels) && containsAny(lower, darkFills) {
		return true
	}
	if strings.Contains(lower, "avancement") || strings.Contains(lower, "report progress") {
		return true
	}
	return strings.Contains(lower, "82%") && (strings.Contains(lower, "rapport") || strings.Contains(lower, "report"))
}

// Outcome reports what Apply did.
type Outcome struct {
	Injected int      `json:"injected"`
	Skipped  []string `json:"skipped,omitempty"`
}

// Apply adds the plan's CSS to <head> and performs each injection. An
// injection whose selector is invalid or matches nothing is skipped.
func Apply(src string, p *Plan) (string, Outcome) {
	doc := markup.Parse(src)
	var out Outcome

	if css := strings.TrimSpace(p.NewCSS); css != "" {
		style := markup.NewElement("style", html.Attribute{Key: "id", Val: StyleID})
		markup.Append(style, markup.NewText(p.NewCSS))
		parent := doc.Head()
		if parent == nil {
			parent = doc.Body()
		}
		markup.Append(parent, style)
	}

	for _, in := range p.Injections {
		if reason := inject(doc, in); reason != "" {
			out.Skipped = append(out.Skipped, fmt.Sprintf("%s: %s", in.Selector, reason))
			continue
		}
		out.Injected++
	}
	return doc.Render(), out
}

func inject(doc *markup.Document, in Injection) string {
	if in.Selector == "" || in.SVG == "" {
		return "incomplete injection"
	}
	switch in.Position {
	case Append, Prepend, Before, After:
	default:
		return fmt.Sprintf("unknown position %q", in.Position)
	}
	sel, err := markup.Compile(in.Selector)
	if err != nil {
		return err.Error()
	}
	targets := sel.All(doc.Root())
	if len(targets) == 0 {
		return "no match"
	}

	// Every fragment is parsed before the first target is touched.
	type insertion struct {
		target *html.Node
		nodes  []*html.Node
	}
	pending := make([]insertion, 0, len(targets))
	for _, t := range targets {
		parent := t
		if in.Position == Before || in.Position == After {
			parent = t.Parent
		}
		if parent == nil {
			continue
		}
		nodes, err := markup.ParseFragment(parent, in.SVG)
		if err != nil {
			return err.Error()
		}
		pending = append(pending, insertion{target: t, nodes: nodes})
	}
	if len(pending) == 0 {
		return "no insertion point"
	}

	for _, p := range pending {
		switch in.Position {
		case Append:
			markup.Append(p.target, p.nodes...)
		case Prepend:
			markup.Prepend(p.target, p.nodes...)
		case Before:
			markup.InsertBefore(p.target, p.nodes...)
		case After:
			markup.InsertAfter(p.target, p.nodes...)
		}
	}
	return ""
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req genai.Request) (string, error)
}

// Result is the output of Enhancer.Enhance.
type Result struct {
	HTML    string `json:"-"`
	Dropped int    `json:"dropped"`
	Outcome
}

// Enhancer asks the generation service for a plan and applies it.
type Enhancer struct {
	gen Generator
	log *slog.Logger
}

func NewEnhancer(gen Generator, log *slog.Logger) *Enhancer {
	if log == nil {
		log = slog.Default()
	}
	return &Enhancer{gen: gen, log: log}
}

// Enhance runs one enhancement round over src.
func (e *Enhancer) Enhance(ctx context.Context, src string) (*Result, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%w: report html is required", edit.ErrInvalidArgument)
	}
	if e.gen == nil {
		return nil, fmt.Errorf("enhance: %w: no generation client configured", edit.ErrUpstreamUnavailable)
	}
	raw, err := e.gen.Generate(ctx, prompts.Enhance(src))
	if err := edit.WrapGeneration("enhance", raw, err); err != nil {
		return nil, err
	}
	plan, err := ParsePlan(raw)
	if err != nil {
		return nil, err
	}
	dropped := plan.Normalize()
	out, outcome := Apply(src, plan)
	e.log.Info("report enhanced",
		"injected", outcome.Injected,
		"skipped", len(outcome.Skipped),
		"dropped", dropped,
		"css_bytes", len(plan.NewCSS),
	)
	return &Result{HTML: out, Dropped: dropped, Outcome: outcome}, nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
