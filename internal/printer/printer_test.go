package printer

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture redirects printer output for the duration of a test
func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	prevOut, prevErr, prevNoColor := stdout, stderr, color.NoColor
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	SetOutput(out, errOut)
	color.NoColor = true
	t.Cleanup(func() {
		stdout, stderr, color.NoColor = prevOut, prevErr, prevNoColor
	})
	return out, errOut
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "This is a test error")
	})

	t.Run("single suggestion is printed bare", func(t *testing.T) {
		_, errOut := capture(t)
		Error("Test Error", "Explanation", []string{"Try this fix"})
		assert.Contains(t, errOut.String(), "\nTry this fix\n")
		assert.NotContains(t, errOut.String(), "Either:")
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		_, errOut := capture(t)
		Error("Test Error", "Explanation", []string{"First option", "Second option"})
		assert.Contains(t, errOut.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	_, errOut := capture(t)
	err := ErrorWithContext("Test Error", "Explanation", map[string]string{
		"Workspace": "/path/to/workspace",
		"Manifest":  "src/main/AndroidManifest.xml",
	}, nil)
	require.Equal(t, "Test Error", err.Error())
	assert.Contains(t, errOut.String(), "  Manifest: src/main/AndroidManifest.xml\n  Workspace: /path/to/workspace\n")
}

func TestMessages(t *testing.T) {
	out, errOut := capture(t)

	Success("Backed up %s\n", "manifest")
	Success("✓ already prefixed\n")
	Warning("careful\n")
	Step("fetching\n")
	Banner("Current Dynamic Package Name:", "→ abc", "", "Generated at: now")

	assert.Contains(t, out.String(), "✓ Backed up manifest\n")
	assert.NotContains(t, out.String(), "✓ ✓")
	assert.Contains(t, out.String(), "→ fetching\n")
	assert.Contains(t, out.String(), rule+"\n  Current Dynamic Package Name:\n  → abc\n\n  Generated at: now\n"+rule+"\n")
	assert.Contains(t, errOut.String(), "⚠️  careful\n")
}
