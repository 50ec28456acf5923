package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/reportsmith/internal/edit"
	"github.com/dgallion1/reportsmith/internal/genai"
	"github.com/dgallion1/reportsmith/internal/profile"
	"github.com/dgallion1/reportsmith/internal/prompts"
)

// Generator produces text for a prompt. *genai.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, req genai.Request) (string, error)
}

// Limits are the token budgets of the two generation phases.
type Limits struct {
	AnalysisMaxTokens int
	ReportMaxTokens   int
}

// Worker runs the analysis and report phases. It is used both by the job
// orchestrator and directly by the synchronous endpoints.
type Worker struct {
	gen       Generator
	templates *prompts.Templates
	limits    Limits
	log       *slog.Logger
}

func NewWorker(gen Generator, templates *prompts.Templates, limits Limits, log *slog.Logger) *Worker {
	if templates == nil {
		templates = prompts.NewTemplates()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Worker{gen: gen, templates: templates, limits: limits, log: log}
}

// Analyze asks for a structured analysis of the source text.
func (w *Worker) Analyze(ctx context.Context, sourceText string) (string, error) {
	if strings.TrimSpace(sourceText) == "" {
		return "", fmt.Errorf("%w: source text is required", edit.ErrInvalidArgument)
	}
	req := prompts.Analysis(sourceText)
	req.MaxTokens = w.limits.AnalysisMaxTokens
	out, err := w.generate(ctx, "analyze", req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Report writes the HTML report for an analysis. An empty reportType picks
// the default template.
func (w *Worker) Report(ctx context.Context, analysis, reportType string, prof profile.Profile) (string, error) {
	if strings.TrimSpace(analysis) == "" {
		return "", fmt.Errorf("%w: analysis is required", edit.ErrInvalidArgument)
	}
	tmpl, ok := w.templates.Get(reportType)
	if !ok {
		return "", fmt.Errorf("%w: unknown report type %q", edit.ErrInvalidArgument, reportType)
	}
	req := prompts.Report(analysis, tmpl, prof.Instructions())
	req.MaxTokens = w.limits.ReportMaxTokens
	out, err := w.generate(ctx, "report", req)
	if err != nil {
		return "", err
	}
	report := genai.TrimToMarkup(out)
	if report == "" {
		return "", &edit.MalformedOutputError{Op: "report", Reason: "no markup in output", Snippet: genai.Truncate(out, 200)}
	}
	return report, nil
}

// Process runs the full pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename, "report_type", job.ReportType)
	start := time.Now()
	text := job.Source()

	// Phase 1: Analyze
	job.SetStatus(StatusAnalyzing, "analyzing")
	prof := profile.Detect(text)
	job.SetProfile(prof)
	log.Info("document profile", "profile", prof.Type, "confidence", prof.Confidence, "matched", prof.Matched)

	analysis, err := w.Analyze(ctx, text)
	if err != nil {
		w.fail(log, job, "analyzing", err)
		return
	}
	job.SetAnalysis(analysis)

	// Phase 2: Generate
	job.SetStatus(StatusGenerating, "generating")
	report, err := w.Report(ctx, analysis, job.ReportType, prof)
	if err != nil {
		w.fail(log, job, "generating", err)
		return
	}

	job.Complete(report)
	log.Info("report generated", "bytes", len(report), "duration_ms", time.Since(start).Milliseconds())
}

func (w *Worker) fail(log *slog.Logger, job *Job, phase string, err error) {
	log.Error("job failed", "phase", phase, "kind", edit.KindOf(err), "error", err)
	job.AddError(fmt.Sprintf("%s: %s", phase, err))
	job.SetStatus(StatusFailed, phase)
}

func (w *Worker) generate(ctx context.Context, op string, req genai.Request) (string, error) {
	if w.gen == nil {
		return "", fmt.Errorf("%s: %w: no generation client configured", op, edit.ErrUpstreamUnavailable)
	}
	out, err := w.gen.Generate(ctx, req)
	if err := edit.WrapGeneration(op, out, err); err != nil {
		return "", err
	}
	return out, nil
}
