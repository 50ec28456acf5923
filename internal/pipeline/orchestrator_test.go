package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/reportsmith/internal/config"
	"github.com/dgallion1/reportsmith/internal/edit"
	"github.com/dgallion1/reportsmith/internal/genai"
	"github.com/dgallion1/reportsmith/internal/profile"
	"github.com/dgallion1/reportsmith/internal/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const reportReply = "Here is the report:\n```html\n<!DOCTYPE html><html><body><section id=\"hero\"><h1>Bonds</h1></section></body></html>\n```"

type scriptedGen struct {
	mu       sync.Mutex
	analysis string
	report   string
	err      error
	calls    []string
}

func (g *scriptedGen) Generate(ctx context.Context, req genai.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req.Prompt)
	if g.err != nil {
		return "", g.err
	}
	if strings.HasPrefix(req.Prompt, prompts.AnalysisPrompt) {
		return g.analysis, nil
	}
	return g.report, nil
}

// blockingGen holds every call until its context ends.
type blockingGen struct {
	started chan struct{}
	once    sync.Once
}

func (g *blockingGen) Generate(ctx context.Context, _ genai.Request) (string, error) {
	g.once.Do(func() { close(g.started) })
	<-ctx.Done()
	return "", ctx.Err()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.Config {
	return config.Config{WorkerCount: 2, MaxQueueSize: 4, JobTTL: time.Hour}
}

func waitFor(t *testing.T, job *Job, status JobStatus) JobSnapshot {
	t.Helper()
	require.Eventually(t, func() bool {
		return job.Snapshot().Status == status
	}, 2*time.Second, 5*time.Millisecond, "job %s never reached %q", job.ID, status)
	return job.Snapshot()
}

func TestOrchestrator_CompletesJob(t *testing.T) {
	defer goleak.VerifyNone(t)

	gen := &scriptedGen{analysis: "DOMAIN: finance", report: reportReply}
	o := NewOrchestrator(testConfig(), NewWorker(gen, nil, Limits{}, testLogger()), testLogger())
	o.Start(context.Background())
	defer o.Stop()

	job, dup, err := o.Submit(NewJob("bonds.pdf", "Bonds", "executive", "Quarterly revenue and market strategy."))
	require.NoError(t, err)
	require.False(t, dup)

	snap := waitFor(t, job, StatusCompleted)
	assert.True(t, strings.HasPrefix(snap.ReportHTML, "<!DOCTYPE html>"), "fenced report cleaned: %q", snap.ReportHTML)
	assert.True(t, strings.HasSuffix(snap.ReportHTML, "</html>"), "fenced report cleaned: %q", snap.ReportHTML)
	assert.Equal(t, "DOMAIN: finance", snap.Analysis)
	assert.Equal(t, profile.Business, snap.Profile)
	assert.Same(t, job, o.GetJob(job.ID))

	gen.mu.Lock()
	defer gen.mu.Unlock()
	require.Len(t, gen.calls, 2)
	assert.Contains(t, gen.calls[1], "Strategic Executive Report", "report prompt uses the executive template")
	assert.Contains(t, gen.calls[1], "DOMAIN: finance", "report prompt carries the analysis")
}

func TestOrchestrator_Dedup(t *testing.T) {
	defer goleak.VerifyNone(t)

	gen := &scriptedGen{analysis: "a", report: reportReply}
	o := NewOrchestrator(testConfig(), NewWorker(gen, nil, Limits{}, testLogger()), testLogger())
	o.Start(context.Background())
	defer o.Stop()

	first, _, err := o.Submit(NewJob("a.pdf", "A", "", "identical text"))
	require.NoError(t, err)
	second, dup, err := o.Submit(NewJob("copy.pdf", "A", "", "identical text"))
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Same(t, first, second, "duplicate returns the first job")
	waitFor(t, first, StatusCompleted)
}

func TestOrchestrator_FailedJob(t *testing.T) {
	defer goleak.VerifyNone(t)

	gen := &scriptedGen{err: errors.New("bad request")}
	o := NewOrchestrator(testConfig(), NewWorker(gen, nil, Limits{}, testLogger()), testLogger())
	o.Start(context.Background())
	defer o.Stop()

	job, _, err := o.Submit(NewJob("x.txt", "X", "", "some text"))
	require.NoError(t, err)
	snap := waitFor(t, job, StatusFailed)
	assert.Equal(t, "analyzing", snap.Phase)
	require.Len(t, snap.Errors, 1)
	assert.Contains(t, snap.Errors[0], "bad request")

	// a failed job does not block resubmission
	again, dup, err := o.Submit(NewJob("x.txt", "X", "", "some text"))
	require.NoError(t, err)
	assert.False(t, dup)
	assert.NotSame(t, job, again)
	waitFor(t, again, StatusFailed)
}

func TestOrchestrator_QueueFullAndStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	gen := &blockingGen{started: make(chan struct{})}
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, NewWorker(gen, nil, Limits{}, testLogger()), testLogger())
	o.Start(context.Background())

	running, _, err := o.Submit(NewJob("1.txt", "", "", "one"))
	require.NoError(t, err)
	<-gen.started

	_, _, err = o.Submit(NewJob("2.txt", "", "", "two"))
	require.NoError(t, err, "second job queues")
	assert.Equal(t, 1, o.QueueDepth())

	full, _, err := o.Submit(NewJob("3.txt", "", "", "three"))
	require.Error(t, err, "queue full")
	assert.Equal(t, StatusFailed, full.Snapshot().Status, "rejected job marked failed")

	o.Stop()
	assert.Equal(t, StatusFailed, running.Snapshot().Status, "running job fails on shutdown")
	_, _, err = o.Submit(NewJob("4.txt", "", "", "four"))
	assert.Error(t, err, "submit after stop")
	o.Stop() // idempotent
}

func TestWorker_Errors(t *testing.T) {
	ctx := context.Background()
	w := NewWorker(&scriptedGen{report: "I cannot help with that."}, nil, Limits{}, testLogger())

	_, err := w.Analyze(ctx, "  ")
	assert.ErrorIs(t, err, edit.ErrInvalidArgument)
	_, err = w.Report(ctx, "analysis", "poetry", profile.Default())
	assert.ErrorIs(t, err, edit.ErrInvalidArgument, "unknown report type")
	_, err = w.Report(ctx, "analysis", "", profile.Default())
	assert.Equal(t, edit.KindMalformedOutput, edit.KindOf(err), "%v", err)

	overloaded := NewWorker(&scriptedGen{err: &genai.RetryableError{StatusCode: 529}}, nil, Limits{}, testLogger())
	_, err = overloaded.Analyze(ctx, "text")
	assert.ErrorIs(t, err, edit.ErrUpstreamUnavailable)
	assert.True(t, edit.Retryable(err))

	none := NewWorker(nil, nil, Limits{}, testLogger())
	_, err = none.Analyze(ctx, "text")
	assert.ErrorIs(t, err, edit.ErrUpstreamUnavailable, "no client configured")
}

func TestWorker_EmptyCompletion(t *testing.T) {
	w := NewWorker(&scriptedGen{analysis: "  \n"}, nil, Limits{}, testLogger())
	_, err := w.Analyze(context.Background(), "text")
	assert.Equal(t, edit.KindMalformedOutput, edit.KindOf(err), "%v", err)
}

func TestWorker_TokenLimits(t *testing.T) {
	var got []int
	gen := generatorFunc(func(_ context.Context, req genai.Request) (string, error) {
		got = append(got, req.MaxTokens)
		return "<html></html>", nil
	})
	w := NewWorker(gen, nil, Limits{AnalysisMaxTokens: 111, ReportMaxTokens: 222}, testLogger())
	_, err := w.Analyze(context.Background(), "text")
	require.NoError(t, err)
	_, err = w.Report(context.Background(), "analysis", "academic", profile.Default())
	require.NoError(t, err)
	assert.Equal(t, []int{111, 222}, got)
}

type generatorFunc func(context.Context, genai.Request) (string, error)

func (f generatorFunc) Generate(ctx context.Context, req genai.Request) (string, error) {
	return f(ctx, req)
}
