// Package report summarizes a fetched repository: language mix by file
// count and size, and an estimate of how many tokens the flattened code
// would cost an LLM.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-enry/go-enry/v2"
	"github.com/pkoukk/tiktoken-go"

	"repo-digest/helpers"
	"repo-digest/model"
)

const (
	languageOther  = "Other"
	languageBinary = "Binary"
)

type LanguageStat struct {
	Language string
	Files    int
	Bytes    int64
}

type Report struct {
	Repository string
	TotalFiles int
	TotalBytes int64
	Vendored   int
	Tokens     int
	Languages  []LanguageStat
}

// TokenCounter counts tokens in a piece of text.
type TokenCounter interface {
	CountTokens(text string) int
}

// TiktokenCounter counts with the cl100k_base encoding.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

func NewTiktokenCounter() (*TiktokenCounter, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	return &TiktokenCounter{encoding: encoding}, nil
}

func (c *TiktokenCounter) CountTokens(text string) int {
	if c.encoding == nil {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// Languages groups the files of s by detected language, largest first.
// Vendored paths are left out.
func Languages(s model.Summary) []LanguageStat {
	byLang := map[string]*LanguageStat{}
	for _, f := range s.Files {
		if enry.IsVendor(recordPath(f)) {
			continue
		}
		lang := detectLanguage(f)
		stat, ok := byLang[lang]
		if !ok {
			stat = &LanguageStat{Language: lang}
			byLang[lang] = stat
		}
		stat.Files++
		stat.Bytes += int64(len(f.Content))
	}

	out := make([]LanguageStat, 0, len(byLang))
	for _, stat := range byLang {
		out = append(out, *stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bytes != out[j].Bytes {
			return out[i].Bytes > out[j].Bytes
		}
		return out[i].Language < out[j].Language
	})
	return out
}

// EstimateTokens counts tokens over the same text the flattened artifact holds.
func EstimateTokens(s model.Summary, counter TokenCounter) int {
	total := 0
	for _, f := range s.Files {
		total += counter.CountTokens(fmt.Sprintf("Filename: %s\n%s\n\n", f.Filename, f.Content))
	}
	return total
}

// Build assembles a report. counter may be nil to skip the token estimate.
func Build(repository string, s model.Summary, counter TokenCounter) Report {
	r := Report{
		Repository: repository,
		TotalFiles: s.TotalFiles,
		Languages:  Languages(s),
	}
	for _, f := range s.Files {
		r.TotalBytes += int64(len(f.Content))
		if enry.IsVendor(recordPath(f)) {
			r.Vendored++
		}
	}
	if counter != nil {
		r.Tokens = EstimateTokens(s, counter)
	}
	return r
}

func (r Report) Write(w io.Writer) {
	helpers.Status(w, "Repository", r.Repository)
	helpers.Status(w, "Files", r.TotalFiles)
	helpers.Status(w, "Size", helpers.FormatBytes(r.TotalBytes))
	if r.Vendored > 0 {
		helpers.Status(w, "Vendored files", r.Vendored)
	}
	if r.Tokens > 0 {
		helpers.Status(w, "Estimated tokens", r.Tokens)
	}
	for _, l := range r.Languages {
		fmt.Fprintf(w, "    %-20s %6d files  %10s\n", l.Language, l.Files, helpers.FormatBytes(l.Bytes))
	}
}

func detectLanguage(f model.FileRecord) string {
	content := []byte(f.Content)
	if enry.IsBinary(content) {
		return languageBinary
	}
	if lang := enry.GetLanguage(f.Filename, content); lang != "" {
		return lang
	}
	return languageOther
}

func recordPath(f model.FileRecord) string {
	if f.Path != "" {
		return f.Path
	}
	return f.Filename
}
