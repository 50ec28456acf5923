package edit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/dgallion1/reportsmith/internal/genai"
	"github.com/dgallion1/reportsmith/internal/locate"
	"github.com/dgallion1/reportsmith/internal/markup"
	"github.com/dgallion1/reportsmith/internal/prompts"
	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// Generator produces text for a prompt. *genai.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, req genai.Request) (string, error)
}

// Editor runs the operators that may call the generation service.
type Editor struct {
	gen     Generator
	palette *Palette
	log     *slog.Logger
}

// NewEditor creates an Editor. gen may be nil, in which case every
// operation that needs generation fails with ErrUpstreamUnavailable.
func NewEditor(gen Generator, palette *Palette, log *slog.Logger) *Editor {
	if palette == nil {
		palette = DefaultPalette()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Editor{gen: gen, palette: palette, log: log}
}

// Palette returns the editor's color palette.
func (e *Editor) Palette() *Palette { return e.palette }

// AddSectionArgs are the arguments of AddSection.
type AddSectionArgs struct {
	Title           string
	Position        int
	GenerateContent bool
	Source          string
}

// Modify actions.
const (
	ActionDelete     = "delete"
	ActionExpand     = "expand"
	ActionSummarize  = "summarize"
	ActionRegenerate = "regenerate"
)

// NormalizeAction maps action synonyms onto the four modify actions.
func NormalizeAction(a string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(a)) {
	case "delete", "remove":
		return ActionDelete, nil
	case "expand", "extend", "develop":
		return ActionExpand, nil
	case "summarize", "summarise", "shorten", "condense":
		return ActionSummarize, nil
	case "regenerate", "rewrite", "redo":
		return ActionRegenerate, nil
	}
	return "", invalidf("unknown section action %q", a)
}

// sectionStyle is what a new section copies from an existing one.
type sectionStyle struct {
	sectionStyle string
	sectionClass string
	wrapperStyle string
	wrapperClass string
	headingStyle string
	headingClass string
	paraStyle    string
	cardStyle    string
	cardClass    string
	accents      []string
}

func (s sectionStyle) hints() string {
	var sb strings.Builder
	line := func(label, v string) {
		if v != "" {
			fmt.Fprintf(&sb, "- %s: %s\n", label, v)
		}
	}
	line("section style", s.sectionStyle)
	line("section class", s.sectionClass)
	line("heading style", s.headingStyle)
	line("heading class", s.headingClass)
	line("paragraph style", s.paraStyle)
	line("card style", s.cardStyle)
	line("card class", s.cardClass)
	if len(s.accents) > 0 {
		line("accent colors", strings.Join(s.accents, ", "))
	}
	if sb.Len() == 0 {
		return "- no existing sections; use a clean neutral layout\n"
	}
	return sb.String()
}

// sampleStyle reads styling from the first non-hero section.
func sampleStyle(secs []*html.Node, src string, p *Palette) sectionStyle {
	var st sectionStyle
	st.accents = AccentColors(src, p)
	if len(st.accents) > 3 {
		st.accents = st.accents[:3]
	}
	var sample *html.Node
	for _, s := range secs {
		if markup.Attr(s, "id") == "hero" || markup.HasClass(s, "hero") {
			continue
		}
		sample = s
		break
	}
	if sample == nil {
		return st
	}
	st.sectionStyle = markup.Attr(sample, "style")
	st.sectionClass = markup.Attr(sample, "class")
	if kids := markup.ElementChildren(sample); len(kids) == 1 && markup.IsTag(kids[0], "div") {
		st.wrapperStyle = markup.Attr(kids[0], "style")
		st.wrapperClass = markup.Attr(kids[0], "class")
	}
	if h := markup.FirstTag(sample, "h2"); h != nil {
		st.headingStyle = markup.Attr(h, "style")
		st.headingClass = markup.Attr(h, "class")
	}
	if para := markup.FirstTag(sample, "p"); para != nil {
		st.paraStyle = markup.Attr(para, "style")
	}
	for _, c := range locate.Candidates(sample) {
		if c.Node == sample {
			continue
		}
		st.cardStyle = markup.Attr(c.Node, "style")
		st.cardClass = markup.Attr(c.Node, "class")
		break
	}
	return st
}

// AddSection inserts a new section after the section at args.Position, or
// before the last section when the position is past the end.
func (e *Editor) AddSection(ctx context.Context, src string, args AddSectionArgs) (Result, error) {
	title := strings.TrimSpace(args.Title)
	if title == "" {
		return Result{}, invalidf("title is required")
	}
	if args.Position < 0 {
		return Result{}, invalidf("position must not be negative, got %d", args.Position)
	}

	doc := markup.Parse(src)
	secs := doc.Sections()
	style := sampleStyle(secs, src, e.palette)

	var content []*html.Node
	if args.GenerateContent {
		out, err := e.generate(ctx, "add_section", prompts.NewSection(title, style.hints(), args.Source))
		if err != nil {
			return Result{}, err
		}
		frag := genai.TrimToMarkup(out)
		if frag == "" {
			return Result{}, &MalformedOutputError{Op: "add_section", Reason: "no markup in output", Snippet: genai.Truncate(out, 200)}
		}
		sec := markup.NewElement("section")
		content, err = markup.ParseFragment(sec, unwrapTag(frag, "section"))
		if err != nil {
			return Result{}, &MalformedOutputError{Op: "add_section", Reason: err.Error(), Snippet: genai.Truncate(out, 200)}
		}
	}

	sec := markup.NewElement("section", html.Attribute{Key: "id", Val: uniqueID(doc.Root(), title)})
	if style.sectionClass != "" {
		markup.SetAttr(sec, "class", style.sectionClass)
	}
	if style.sectionStyle != "" {
		markup.SetAttr(sec, "style", style.sectionStyle)
	}
	parent := sec
	if style.wrapperStyle != "" || style.wrapperClass != "" {
		wrapper := markup.NewElement("div")
		if style.wrapperClass != "" {
			markup.SetAttr(wrapper, "class", style.wrapperClass)
		}
		if style.wrapperStyle != "" {
			markup.SetAttr(wrapper, "style", style.wrapperStyle)
		}
		markup.Append(sec, wrapper)
		parent = wrapper
	}
	if !hasHeading(content) {
		h := markup.NewElement("h2")
		if style.headingClass != "" {
			markup.SetAttr(h, "class", style.headingClass)
		}
		if style.headingStyle != "" {
			markup.SetAttr(h, "style", style.headingStyle)
		}
		markup.Append(h, markup.NewText(title))
		markup.Append(parent, h)
	}
	if content != nil {
		markup.Append(parent, content...)
	} else {
		para := markup.NewElement("p")
		if style.paraStyle != "" {
			markup.SetAttr(para, "style", style.paraStyle)
		}
		markup.Append(parent, para)
	}

	var where string
	switch {
	case len(secs) == 0:
		markup.Append(doc.Body(), sec)
		where = "at the end of the report"
	case args.Position >= len(secs):
		markup.InsertBefore(secs[len(secs)-1], sec)
		where = "before the last section"
	default:
		markup.InsertAfter(secs[args.Position], sec)
		where = fmt.Sprintf("after %q", sectionTitle(secs[args.Position], args.Position))
	}

	e.log.Info("section added", "title", title, "position", args.Position, "generated", args.GenerateContent)
	return Result{
		HTML:    doc.Render(),
		Message: fmt.Sprintf("Added section %q %s", title, where),
		Instant: !args.GenerateContent,
		Changes: 1,
	}, nil
}

// ModifySection deletes, expands, summarizes or regenerates the section at
// index. AI actions replace the section's children and keep the section
// element with its attributes.
func (e *Editor) ModifySection(ctx context.Context, src string, index int, action, source string) (Result, error) {
	act, err := NormalizeAction(action)
	if err != nil {
		return Result{}, err
	}
	if act == ActionDelete {
		return DeleteSection(src, index)
	}

	doc := markup.Parse(src)
	secs := doc.Sections()
	if index < 0 || index >= len(secs) {
		return Result{}, notFoundf("section index %d out of range (have %d sections)", index, len(secs))
	}
	sec := secs[index]
	title := sectionTitle(sec, index)

	out, err := e.generate(ctx, "modify_section", prompts.ModifySection(act, title, markup.InnerHTML(sec), source))
	if err != nil {
		return Result{}, err
	}
	frag := genai.TrimToMarkup(out)
	if frag == "" {
		return Result{}, &MalformedOutputError{Op: "modify_section", Reason: "no markup in output", Snippet: genai.Truncate(out, 200)}
	}
	if err := markup.SetInnerHTML(sec, unwrapTag(frag, "section")); err != nil {
		return Result{}, &MalformedOutputError{Op: "modify_section", Reason: err.Error(), Snippet: genai.Truncate(out, 200)}
	}

	verb := map[string]string{ActionExpand: "Expanded", ActionSummarize: "Summarized", ActionRegenerate: "Regenerated"}[act]
	return Result{
		HTML:    doc.Render(),
		Message: fmt.Sprintf("%s section %q", verb, title),
		Changes: 1,
	}, nil
}

// RecreateCard regenerates the located card in the style of the current
// one and replaces it in place.
func (e *Editor) RecreateCard(ctx context.Context, src, search, instructions, source string) (Result, error) {
	doc := markup.Parse(src)
	m, err := findElement(doc, search)
	if err != nil {
		return Result{}, err
	}
	target := locate.DrillDown(m.Node, m.Title)
	title := displayTitle(m)

	out, err := e.generate(ctx, "recreate_card", prompts.RecreateCard(title, markup.OuterHTML(target), instructions, source))
	if err != nil {
		return Result{}, err
	}
	frag := genai.TrimToMarkup(out)
	if frag == "" {
		return Result{}, &MalformedOutputError{Op: "recreate_card", Reason: "no markup in output", Snippet: genai.Truncate(out, 200)}
	}

	repl := markup.NewElement(target.Data)
	for _, key := range []string{"id", "class", "style"} {
		if v := markup.Attr(target, key); v != "" {
			markup.SetAttr(repl, key, v)
		}
	}
	if err := markup.SetInnerHTML(repl, unwrapTag(frag, target.Data)); err != nil {
		return Result{}, &MalformedOutputError{Op: "recreate_card", Reason: err.Error(), Snippet: genai.Truncate(out, 200)}
	}
	markup.Replace(target, repl)

	return Result{
		HTML:    doc.Render(),
		Message: fmt.Sprintf("Recreated %q", title),
		Changes: 1,
	}, nil
}

func (e *Editor) generate(ctx context.Context, op string, req genai.Request) (string, error) {
	if e.gen == nil {
		return "", fmt.Errorf("%s: %w: no generation client configured", op, ErrUpstreamUnavailable)
	}
	out, err := e.gen.Generate(ctx, req)
	if err := WrapGeneration(op, out, err); err != nil {
		return "", err
	}
	return out, nil
}

// unwrapTag returns the inner markup of frag when frag is a single element
// of the given tag, so the caller's own element is not nested twice.
func unwrapTag(frag, tag string) string {
	nodes, err := markup.ParseFragment(nil, frag)
	if err != nil {
		return frag
	}
	var root *html.Node
	for _, n := range nodes {
		switch {
		case n.Type == html.ElementNode:
			if root != nil {
				return frag
			}
			root = n
		case n.Type == html.TextNode && strings.TrimSpace(n.Data) == "":
		case n.Type == html.CommentNode:
		default:
			return frag
		}
	}
	if root == nil || root.Data != tag {
		return frag
	}
	return markup.InnerHTML(root)
}

func hasHeading(nodes []*html.Node) bool {
	for _, n := range nodes {
		if markup.IsTag(n, "h1", "h2") {
			return true
		}
		if markup.FindFirst(n, func(c *html.Node) bool { return markup.IsTag(c, "h1", "h2") }) != nil {
			return true
		}
	}
	return false
}

var dashRun = regexp.MustCompile(`-+`)

// Slugify converts a title to an id, keeping letters of any script.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '-'
	}, s)
	s = strings.Trim(dashRun.ReplaceAllString(s, "-"), "-")
	if r := []rune(s); len(r) > 50 {
		s = strings.TrimRight(string(r[:50]), "-")
	}
	return s
}

// uniqueID slugs title and suffixes -2, -3... until no element uses it.
func uniqueID(root *html.Node, title string) string {
	base := Slugify(title)
	if base == "" {
		base = "section-" + uuid.NewString()[:8]
	}
	used := map[string]bool{}
	markup.Walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if id := markup.Attr(n, "id"); id != "" {
				used[id] = true
			}
		}
		return true
	})
	id := base
	for i := 2; used[id]; i++ {
		id = fmt.Sprintf("%s-%d", base, i)
	}
	return id
}

// IsMalformed reports whether err carries a MalformedOutputError.
func IsMalformed(err error) bool {
	var m *MalformedOutputError
	return errors.As(err, &m)
}
