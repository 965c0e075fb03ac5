package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner_IncludesVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "v1.2.3")
}

func TestNewRenderer_RendersMarkdown(t *testing.T) {
	render, err := NewRenderer(60)
	require.NoError(t, err)

	out, err := render("**Dune** cuesta 15,00 €")
	require.NoError(t, err)
	assert.Contains(t, out, "Dune")
	assert.NotContains(t, strings.TrimSpace(out), "**")
}
