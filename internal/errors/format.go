package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

// noColor is set when NO_COLOR is present in the environment.
var noColor atomic.Bool

func init() {
	_, set := os.LookupEnv("NO_COLOR")
	noColor.Store(set)
}

// SetColor turns ANSI colors in Format on or off.
func SetColor(on bool) {
	noColor.Store(!on)
}

func paint(code, s string) string {
	if noColor.Load() {
		return s
	}
	return code + s + ansiReset
}

// detailWidth is the column Format wraps details at.
const detailWidth = 72

// Format renders the error for a terminal: a header, the scenario lines
// around Location, the detail, the cause and the hint.
func (e *Error) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	header := "error"
	if e.Code != "" {
		header = "error[" + e.Code + "]"
	}
	fmt.Fprintf(&b, "%s %s\n", paint(ansiBold+ansiRed, header), paint(ansiBold, e.Message))

	if e.Location != nil {
		fmt.Fprintf(&b, "  %s %s\n", paint(ansiGray, "-->"), paint(ansiCyan, e.Location.String()))
		e.writeSnippet(&b)
	}

	if e.Detail != "" {
		b.WriteString("\n")
		for _, line := range wrapText(e.Detail, detailWidth) {
			b.WriteString("  " + line + "\n")
		}
	}
	if e.Wrapped != nil {
		fmt.Fprintf(&b, "\n  %s %s\n", paint(ansiYellow, "cause:"), e.Wrapped)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  %s %s\n", paint(ansiCyan, "hint:"), e.Suggestion)
	}
	b.WriteString("\n")
	return b.String()
}

// writeSnippet prints the context lines, marking the line the error is on.
func (e *Error) writeSnippet(b *strings.Builder) {
	if len(e.Context) == 0 {
		return
	}
	first := max(1, e.Location.Line-contextLines/2)
	gutter := paint(ansiGray, "|")

	b.WriteString("\n")
	for i, text := range e.Context {
		n := first + i
		marker := "  "
		if n == e.Location.Line {
			marker = paint(ansiRed, "> ")
		}
		fmt.Fprintf(b, "  %s%4d %s %s\n", marker, n, gutter, text)

		if n == e.Location.Line && e.Location.Column > 0 {
			fmt.Fprintf(b, "        %s %s%s\n", gutter, strings.Repeat(" ", e.Location.Column-1), paint(ansiRed, "^"))
		}
	}
}

// FormatCompact returns "file:line:col: CODE: message".
func (e *Error) FormatCompact() string {
	parts := make([]string, 0, 3)
	if e.Location != nil {
		parts = append(parts, e.Location.String())
	}
	if e.Code != "" {
		parts = append(parts, e.Code)
	}
	return strings.Join(append(parts, e.Message), ": ")
}

type jsonLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

type jsonError struct {
	Code       string        `json:"code,omitempty"`
	Category   Category      `json:"category"`
	Message    string        `json:"message"`
	Detail     string        `json:"detail,omitempty"`
	Location   *jsonLocation `json:"location,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
	Cause      string        `json:"cause,omitempty"`
}

// FormatJSON returns the error as a single-line JSON object.
func (e *Error) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
	}
	if e.Location != nil {
		out.Location = &jsonLocation{File: e.Location.File, Line: e.Location.Line, Column: e.Location.Column}
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Error())
	}
	return string(data)
}

// wrapText splits text into lines of at most width bytes, breaking on spaces.
// Words longer than width get a line of their own.
func wrapText(text string, width int) []string {
	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) > width:
			lines = append(lines, line)
			line = word
		default:
			line += " " + word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// Fprint writes err to w. Coded errors use Format; anything else gets a plain
// header.
func Fprint(w io.Writer, err error) {
	var ce *Error
	if stderrors.As(err, &ce) {
		fmt.Fprint(w, ce.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", paint(ansiBold+ansiRed, "error"), err)
}

// PrintError writes err to stderr.
func PrintError(err error) {
	Fprint(os.Stderr, err)
}
