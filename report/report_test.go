package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repo-digest/helpers"
	"repo-digest/model"
)

// wordCounter counts whitespace separated words.
type wordCounter struct{}

func (wordCounter) CountTokens(text string) int {
	return len(strings.Fields(text))
}

func fixture() model.Summary {
	return model.NewSummary([]model.FileRecord{
		{Filename: "main.go", Path: "main.go", Content: "package main\n\nfunc main() {}\n"},
		{Filename: "util.go", Path: "internal/util.go", Content: "package internal\n"},
		{Filename: "README.md", Path: "README.md", Content: "# hello\n"},
		{Filename: "jquery.js", Path: "vendor/jquery.js", Content: "var x = 1;"},
		{Filename: "logo.png", Path: "logo.png", Content: "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"},
	})
}

func TestLanguages(t *testing.T) {
	langs := Languages(fixture())

	byName := map[string]LanguageStat{}
	for _, l := range langs {
		byName[l.Language] = l
	}

	require.Contains(t, byName, "Go")
	assert.Equal(t, 2, byName["Go"].Files)
	assert.Equal(t, "Go", langs[0].Language, "largest language first")
	assert.Contains(t, byName, "Markdown")
	assert.Contains(t, byName, languageBinary)
	assert.NotContains(t, byName, "JavaScript", "vendored files are skipped")
}

func TestLanguagesEmpty(t *testing.T) {
	assert.Empty(t, Languages(model.NewSummary(nil)))
}

func TestEstimateTokens(t *testing.T) {
	s := model.NewSummary([]model.FileRecord{
		{Filename: "a.txt", Content: "one two three"},
		{Filename: "b.txt", Content: ""},
	})

	// "Filename:" and the name count as two words per record
	assert.Equal(t, 7, EstimateTokens(s, wordCounter{}))
}

func TestBuildAndWrite(t *testing.T) {
	helpers.SetColorEnabled(false)

	r := Build("octo/hello", fixture(), wordCounter{})
	assert.Equal(t, 5, r.TotalFiles)
	assert.Equal(t, 1, r.Vendored)
	assert.Positive(t, r.Tokens)
	assert.Positive(t, r.TotalBytes)

	var buf bytes.Buffer
	r.Write(&buf)
	out := buf.String()
	assert.Contains(t, out, "Repository: octo/hello")
	assert.Contains(t, out, "Estimated tokens")
	assert.Contains(t, out, "Go")
}

func TestBuildWithoutCounter(t *testing.T) {
	r := Build("octo/hello", fixture(), nil)
	assert.Zero(t, r.Tokens)
}
