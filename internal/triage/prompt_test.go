package triage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("  There is a fire at 12 Oak Street  ")

	assert.Contains(t, prompt, "<<<\nThere is a fire at 12 Oak Street\n>>>")
	assert.Contains(t, prompt, `"emergency_type"`)
	assert.Contains(t, prompt, `"callback_required"`)
	assert.True(t, strings.HasSuffix(prompt, "\n"))
}
