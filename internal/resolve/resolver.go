// Package resolve maps free-text edit instructions onto report operators.
//
// Classification is delegated to a tool-calling model constrained to the
// operator schemas of Tools. Everything after classification is
// deterministic: raw calls are decoded into Commands, validated, and run in
// order against the report each previous call produced.
package resolve

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/dgallion1/reportsmith/internal/edit"
	"github.com/dgallion1/reportsmith/internal/genai"
	"github.com/dgallion1/reportsmith/internal/locate"
	"github.com/dgallion1/reportsmith/internal/markup"
	"github.com/dgallion1/reportsmith/internal/source"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
)

// Classifier selects tools for a prompt. *genai.Client satisfies it.
type Classifier interface {
	Classify(ctx context.Context, req genai.ToolRequest) (*genai.ToolResponse, error)
}

// State is the lifecycle position of one operator call.
type State string

const (
	StateReceived  State = "received"
	StateResolved  State = "resolved"
	StateExecuting State = "executing"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Request is one edit instruction against the current report.
type Request struct {
	Instruction string
	HTML        string
	// Source is the text of the document the report was generated from.
	// AI-backed operators use relevant excerpts of it; it may be empty.
	Source string
}

// Outcome reports one attempted operator call.
type Outcome struct {
	Operator  string `json:"operator"`
	State     State  `json:"state"`
	OK        bool   `json:"ok"`
	Message   string `json:"message"`
	ErrorKind string `json:"error_kind,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	Instant   bool   `json:"instant"`
	Changes   int    `json:"changes"`
}

// Response is the aggregate result of an instruction.
type Response struct {
	HTML      string    `json:"html"`
	Changed   bool      `json:"changed"`
	Reply     string    `json:"reply,omitempty"`
	ReplyHTML string    `json:"reply_html,omitempty"`
	Outcomes  []Outcome `json:"outcomes"`
}

// Succeeded counts successful outcomes.
func (r *Response) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK {
			n++
		}
	}
	return n
}

const systemPrompt = `You edit an existing HTML report on behalf of the user.
Pick the tool that performs the requested change and fill its arguments from the report context.
Section indices are 0-based and refer to the section list exactly as given.
Use search_text values copied from the card or section titles listed.
If the request needs several changes, call several tools in the order they should run.
If no tool applies, answer in plain text without calling a tool.`

const (
	excerptChars  = 160
	maxCardTitles = 60
	// sourceTokens bounds the source excerpt handed to AI-backed operators.
	sourceTokens = 3000
)

// Resolver classifies instructions and executes the resulting commands.
type Resolver struct {
	classifier Classifier
	editor     *edit.Editor
	log        *slog.Logger
	md         *converter.Converter
	markdown   goldmark.Markdown
	policy     *bluemonday.Policy
}

// New creates a Resolver. classifier may be nil when only Execute is used.
func New(classifier Classifier, editor *edit.Editor, log *slog.Logger) *Resolver {
	if editor == nil {
		editor = edit.NewEditor(nil, nil, log)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		classifier: classifier,
		editor:     editor,
		log:        log,
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:   bluemonday.UGCPolicy(),
	}
}

// Handle classifies req.Instruction and runs every returned operator call
// sequentially. Operator failures are reported in the outcomes; the
// returned error covers only the classification step.
func (r *Resolver) Handle(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Instruction) == "" {
		return nil, fmt.Errorf("%w: instruction is required", edit.ErrInvalidArgument)
	}
	if strings.TrimSpace(req.HTML) == "" {
		return nil, fmt.Errorf("%w: report html is required", edit.ErrInvalidArgument)
	}
	if r.classifier == nil {
		return nil, fmt.Errorf("classify: %w: no classifier configured", edit.ErrUpstreamUnavailable)
	}

	resp, err := r.classifier.Classify(ctx, genai.ToolRequest{
		System: systemPrompt,
		Prompt: r.Prompt(req.HTML, req.Instruction),
		Tools:  Tools(),
	})
	if err != nil {
		if genai.IsRetryable(err) {
			return nil, fmt.Errorf("classify: %w: %v", edit.ErrUpstreamUnavailable, err)
		}
		return nil, fmt.Errorf("classify: %w", err)
	}

	out := &Response{HTML: req.HTML, Reply: strings.TrimSpace(resp.Text)}
	if len(resp.ToolCalls) == 0 && out.Reply == "" {
		out.Reply = "I could not match that request to a change in the report. Try naming the card or section."
	}
	if out.Reply != "" {
		out.ReplyHTML = r.RenderReply(out.Reply)
	}

	current := req.HTML
	for i, call := range resp.ToolCalls {
		log := r.log.With("operator", call.Name, "call", i)
		oc := Outcome{Operator: call.Name, State: StateReceived}

		cmd, err := Decode(call)
		if err != nil {
			out.Outcomes = append(out.Outcomes, failed(oc, err))
			log.Warn("operator rejected", "error", err)
			continue
		}
		oc.State = StateResolved
		oc.Instant = Instant(cmd)

		if err := ctx.Err(); err != nil {
			out.Outcomes = append(out.Outcomes, failed(oc, err))
			continue
		}

		oc.State = StateExecuting
		res, err := r.Execute(ctx, cmd, current, req.Source)
		if err != nil {
			out.Outcomes = append(out.Outcomes, failed(oc, err))
			log.Warn("operator failed", "error", err, "kind", edit.KindOf(err))
			continue
		}
		current = res.HTML
		oc.State = StateSucceeded
		oc.OK = true
		oc.Message = res.Message
		oc.Instant = res.Instant
		oc.Changes = res.Changes
		out.Outcomes = append(out.Outcomes, oc)
		log.Info("operator applied", "changes", res.Changes, "instant", res.Instant)
	}
	out.HTML = current
	out.Changed = current != req.HTML
	return out, nil
}

func failed(oc Outcome, err error) Outcome {
	oc.State = StateFailed
	oc.OK = false
	oc.Message = err.Error()
	oc.ErrorKind = edit.KindOf(err)
	oc.Retryable = edit.Retryable(err)
	return oc
}

// Execute runs one command against src.
func (r *Resolver) Execute(ctx context.Context, cmd Command, src, sourceText string) (edit.Result, error) {
	p := r.editor.Palette()
	switch c := cmd.(type) {
	case ChangeColor:
		return edit.Recolor(src, c.NewColor, p)
	case ChangeCardStyle:
		return edit.SetStyle(src, c.SearchText, c.StyleProperty, c.StyleValue, p)
	case ChangeBarColor:
		return edit.SetAccent(src, c.SearchText, c.NewColor, p)
	case AddIcon:
		return edit.AddIcon(src, c.SearchText, c.Icon, c.Position)
	case DeleteCard:
		return edit.DeleteCard(src, c.SearchText)
	case MoveSection:
		return edit.MoveSection(src, c.SectionIndex, c.NewPosition)
	case AddSection:
		var excerpt string
		if c.GenerateContent {
			excerpt = source.Excerpt(sourceText, c.Title, sourceTokens)
		}
		return r.editor.AddSection(ctx, src, edit.AddSectionArgs{
			Title:           c.Title,
			Position:        c.Position,
			GenerateContent: c.GenerateContent,
			Source:          excerpt,
		})
	case ModifySection:
		var query string
		if secs := edit.ListSections(src); c.SectionIndex >= 0 && c.SectionIndex < len(secs) {
			query = secs[c.SectionIndex].Title
		}
		return r.editor.ModifySection(ctx, src, c.SectionIndex, c.Action, source.Excerpt(sourceText, query, sourceTokens))
	case RecreateCard:
		excerpt := source.Excerpt(sourceText, c.SearchText+" "+c.Instructions, sourceTokens)
		return r.editor.RecreateCard(ctx, src, c.SearchText, c.Instructions, excerpt)
	}
	return edit.Result{}, fmt.Errorf("%w: unsupported command %T", edit.ErrInvalidArgument, cmd)
}

// Prompt builds the classification prompt: the current section order with
// short excerpts, the card titles, then the instruction.
func (r *Resolver) Prompt(reportHTML, instruction string) string {
	doc := markup.Parse(reportHTML)
	var sb strings.Builder
	sb.WriteString("REPORT SECTIONS (index, id, title, excerpt):\n")
	secs := doc.Sections()
	if len(secs) == 0 {
		sb.WriteString("(none)\n")
	}
	for i, info := range edit.ListSections(reportHTML) {
		fmt.Fprintf(&sb, "[%d] id=%q title=%q\n", i, info.ID, info.Title)
		if ex := r.excerpt(secs[i]); ex != "" {
			fmt.Fprintf(&sb, "    %s\n", ex)
		}
	}

	titles := cardTitles(doc)
	if len(titles) > 0 {
		sb.WriteString("\nCARDS:\n")
		for _, t := range titles {
			fmt.Fprintf(&sb, "- %s\n", t)
		}
	}

	sb.WriteString("\nUSER REQUEST:\n")
	sb.WriteString(strings.TrimSpace(instruction))
	sb.WriteString("\n")
	return sb.String()
}

func (r *Resolver) excerpt(sec *html.Node) string {
	text, err := r.md.ConvertString(markup.InnerHTML(sec))
	if err != nil {
		text = markup.Text(sec)
	}
	return genai.Truncate(markup.CollapseSpace(text), excerptChars)
}

func cardTitles(doc *markup.Document) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range locate.Candidates(doc.Root()) {
		if c.Title == "" || seen[c.Title] {
			continue
		}
		seen[c.Title] = true
		out = append(out, c.Title)
		if len(out) == maxCardTitles {
			break
		}
	}
	return out
}

// RenderReply renders a markdown reply to sanitized HTML.
func (r *Resolver) RenderReply(reply string) string {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(reply), &buf); err != nil {
		return r.policy.Sanitize("<p>" + reply + "</p>")
	}
	return strings.TrimSpace(r.policy.Sanitize(buf.String()))
}
