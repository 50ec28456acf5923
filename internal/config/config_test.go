package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PDF_FALLBACK_PDFTOTEXT", "")
	t.Setenv("WORKER_COUNT", "-1")
	t.Setenv("JOB_TTL", "garbage")
	t.Setenv("REQUEST_TIMEOUT", "")
	cfg := Load()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 2, cfg.WorkerCount, "non-positive worker count falls back")
	assert.Equal(t, time.Hour, cfg.JobTTL, "unparsable JOB_TTL falls back")
	assert.True(t, cfg.PDFFallbackPdftotext)
	assert.Zero(t, cfg.RequestTimeout, "request timeout is derived by the server when unset")
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("GENERATION_TIMEOUT", "90s")
	t.Setenv("REPORT_MAX_TOKENS", "12000")
	t.Setenv("PDF_FALLBACK_PDFTOTEXT", "false")
	t.Setenv("REQUEST_TIMEOUT", "10m")
	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, 12000, cfg.ReportMaxTokens)
	assert.False(t, cfg.PDFFallbackPdftotext)
	assert.Equal(t, 10*time.Minute, cfg.RequestTimeout)
}

func TestValidate(t *testing.T) {
	cfg := Config{}
	assert.Error(t, cfg.Validate(), "API key is required")

	cfg.AnthropicAPIKey = "k"
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reportsmith.yaml")
	overlay := `palette:
  neutrals: ["#FAFAF9"]
  colors:
    brand: "#123456"
templates:
  - key: executive
    sections: [Summary, Decisions]
`
	require.NoError(t, os.WriteFile(path, []byte(overlay), 0o644))

	cfg := Config{AnthropicAPIKey: "k", OverlayPath: path}
	require.NoError(t, cfg.LoadOverlay())
	require.NoError(t, cfg.Validate())

	p := cfg.Palette()
	assert.Equal(t, "#123456", p.Resolve("brand"))
	assert.True(t, p.IsNeutral("#fafaf9"), "overlay neutral")
	assert.True(t, p.IsNeutral("#ffffff"), "built-in neutrals kept")

	tmpl, ok := cfg.Templates().Get("executive")
	require.True(t, ok)
	assert.Equal(t, []string{"Summary", "Decisions"}, tmpl.Sections)
	assert.NotEmpty(t, tmpl.Title, "built-in title kept")
}

func TestLoadOverlay_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("palette: [unclosed"), 0o644))

	cfg := Config{OverlayPath: path}
	assert.Error(t, cfg.LoadOverlay(), "parse error")

	cfg = Config{OverlayPath: filepath.Join(t.TempDir(), "missing.yaml")}
	assert.Error(t, cfg.LoadOverlay(), "read error")
}
