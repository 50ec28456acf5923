package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/reportsmith/internal/config"
	"github.com/dgallion1/reportsmith/internal/edit"
	"github.com/dgallion1/reportsmith/internal/genai"
	"github.com/dgallion1/reportsmith/internal/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const report = `<html><head><title>Q3</title></head><body>
<section id="summary"><h2>Summary</h2>
<div class="card"><h3>Present Value</h3><p>$1,200</p></div>
<div class="card"><h3>Cash Flow</h3><p>Positive</p></div>
</section>
<section id="outlook"><h2>Outlook</h2><p>Stable</p></section>
<section id="risks"><h2>Risks</h2><p>Rates</p></section>
</body></html>`

type fakeLLM struct {
	out  string
	tool *genai.ToolResponse
}

func (f *fakeLLM) Generate(context.Context, genai.Request) (string, error) {
	return f.out, nil
}

func (f *fakeLLM) Classify(context.Context, genai.ToolRequest) (*genai.ToolResponse, error) {
	return f.tool, nil
}

type result struct {
	stdout string
	stderr string
	err    error
}

func run(t *testing.T, gen llm, args ...string) result {
	t.Helper()
	a := &app{newLLM: func(config.Config, *slog.Logger) llm { return gen }}
	cmd := a.rootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func writeReport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, os.WriteFile(path, []byte(report), 0o644))
	return path
}

func TestSections(t *testing.T) {
	path := writeReport(t)

	res := run(t, nil, "sections", path)
	require.NoError(t, res.err)
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "INDEX")
	assert.Contains(t, lines[1], "summary")
	assert.Contains(t, lines[3], "Risks")

	res = run(t, nil, "sections", "--json", path)
	require.NoError(t, res.err)
	var secs []edit.SectionInfo
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &secs))
	require.Len(t, secs, 3)
	assert.Equal(t, "Outlook", secs[1].Title)
}

func TestCards(t *testing.T) {
	path := writeReport(t)

	res := run(t, nil, "cards", "--json", path)
	require.NoError(t, res.err)
	var cards []cardInfo
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &cards))

	byTitle := map[string]cardInfo{}
	for _, c := range cards {
		byTitle[c.Title] = c
	}
	require.Contains(t, byTitle, "Cash Flow")
	assert.Equal(t, 0, byTitle["Cash Flow"].Section)
	assert.Equal(t, "card", byTitle["Cash Flow"].Class)

	res = run(t, nil, "cards", path)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "div.card")
	assert.Contains(t, res.stdout, "Present Value")
}

func TestDeck(t *testing.T) {
	path := writeReport(t)
	out := filepath.Join(t.TempDir(), "deck.html")

	res := run(t, nil, "deck", path, "-o", out)
	require.NoError(t, res.err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<!DOCTYPE html>"))
	assert.Contains(t, string(data), `data-title="Risks"`)
	assert.Empty(t, res.stdout)
}

func TestApply_Operator(t *testing.T) {
	path := writeReport(t)

	res := run(t, nil, "apply", path, resolve.OpMoveSection, "--arg", "section_index=2", "--arg", "new_position=0")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, `Moved "Risks" from position 2 to 0`)
	ids := edit.ListSections(res.stdout)
	require.Len(t, ids, 3)
	assert.Equal(t, "risks", ids[0].ID)
	assert.Equal(t, "summary", ids[1].ID)

	res = run(t, nil, "apply", path, resolve.OpDeleteCard, "--arg", "search_text=zzqx")
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, edit.ErrNotFound)
	assert.Empty(t, res.stdout)
}

func TestApply_InPlace(t *testing.T) {
	path := writeReport(t)

	res := run(t, nil, "apply", path, resolve.OpDeleteCard, "--arg", "search_text=Cash Flow", "-i")
	require.NoError(t, res.err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Cash Flow")
	assert.Contains(t, string(data), "Present Value")
}

func TestApply_Usage(t *testing.T) {
	path := writeReport(t)

	res := run(t, nil, "apply", path)
	assert.Error(t, res.err)

	res = run(t, nil, "apply", path, resolve.OpDeleteCard, "--instruction", "drop it")
	assert.Error(t, res.err)

	res = run(t, nil, "apply", path, resolve.OpDeleteCard, "--arg", "search_text")
	assert.Error(t, res.err)
}

func TestApply_Instruction(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	path := writeReport(t)
	gen := &fakeLLM{tool: &genai.ToolResponse{ToolCalls: []genai.ToolCall{
		{ID: "1", Name: resolve.OpDeleteCard, Input: map[string]any{"search_text": "Cash Flow"}},
	}}}

	res := run(t, gen, "apply", path, "--instruction", "remove the cash flow card")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "delete_card [ok]")
	assert.NotContains(t, res.stdout, "Cash Flow")
}

func TestApply_InstructionNeedsKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	path := writeReport(t)
	res := run(t, &fakeLLM{}, "apply", path, "--instruction", "make it pink")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "ANTHROPIC_API_KEY")
}

func TestExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Bond Notes\n\nPresent value of coupons.\n"), 0o644))

	res := run(t, nil, "extract", path)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Present value of coupons.")

	res = run(t, nil, "extract", "--json", path)
	require.NoError(t, res.err)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.Equal(t, "Bond Notes", out["title"])
	assert.Equal(t, "md", out["format"])
}

func TestEnhance(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	path := writeReport(t)
	gen := &fakeLLM{out: `{"newCSS": ".card { margin: 8px; }", "svgInjections": [{"selector": "#risks", "position": "append", "svg": "<svg class=\"gauge\"></svg>"}]}`}

	res := run(t, gen, "enhance", path)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `class="gauge"`)
	assert.Contains(t, res.stderr, "injected 1 graphics")
}

func TestSnapshot_RequiresOutput(t *testing.T) {
	res := run(t, nil, "snapshot", writeReport(t))
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "--output")
}

func TestParseArgPairs(t *testing.T) {
	in, err := parseArgPairs([]string{"search_text=Cash Flow", "style_value=a=b", "icon="})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"search_text": "Cash Flow", "style_value": "a=b", "icon": ""}, in)

	_, err = parseArgPairs([]string{"=x"})
	assert.Error(t, err)
}
