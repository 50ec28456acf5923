package snapshot

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsDefaults(t *testing.T) {
	var o Options
	o.defaults()
	assert.Equal(t, 1200, o.Width)
	assert.Equal(t, 630, o.Height)
	assert.Equal(t, 30*time.Second, o.Timeout)
	assert.NotNil(t, o.Logger)

	o = Options{Width: 800, Height: 600, Timeout: time.Second}
	o.defaults()
	assert.Equal(t, 800, o.Width)
	assert.Equal(t, 600, o.Height)
	assert.Equal(t, time.Second, o.Timeout)
}

func TestEmptyInput(t *testing.T) {
	_, err := HTML(context.Background(), "  ", Options{})
	assert.Error(t, err, "empty document")

	_, err = URL(context.Background(), "", Options{})
	assert.Error(t, err, "empty url")
}

// Needs a Chrome binary; opt in with REPORTSMITH_BROWSER_TESTS=1.
func TestHTML_Browser(t *testing.T) {
	if os.Getenv("REPORTSMITH_BROWSER_TESTS") == "" {
		t.Skip("set REPORTSMITH_BROWSER_TESTS=1 to run headless browser tests")
	}
	png, err := HTML(context.Background(), `<html><body style="background:#3b82f6"><h1>Hello</h1></body></html>`, Options{})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "expected PNG output, got %d bytes", len(png))
}
