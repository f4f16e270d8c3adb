package helpers

import (
	"fmt"
	"io"
	"os"
	"runtime"
)

const (
	Reset = "\033[0m"

	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

var colorEnabled = detectColorSupport()

func detectColorSupport() bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	if runtime.GOOS == "windows" {
		return os.Getenv("WT_SESSION") != "" || os.Getenv("TERM_PROGRAM") == "vscode"
	}
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

func SetColorEnabled(enabled bool) {
	colorEnabled = enabled
}

func Colorize(text, color string) string {
	if !colorEnabled {
		return text
	}
	return color + text + Reset
}

// Status prints a "[-] label: value" line in the CLI's output format.
func Status(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "%s %s: %v\n", Colorize("[-]", Cyan), label, value)
}

// Success prints a "[+] label: value" line.
func Success(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "%s %s: %v\n", Colorize("[+]", Green), label, value)
}

// Warning prints a "[~] label: value" line for problems that did not stop the command.
func Warning(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "%s %s: %v\n", Colorize("[~]", Yellow), label, value)
}

// Failure prints a "[!] label: err" line.
func Failure(w io.Writer, label string, err error) {
	fmt.Fprintf(w, "%s %s: %v\n", Colorize("[!]", Red), label, err)
}

func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
