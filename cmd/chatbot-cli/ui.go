// Package main provides UI utilities for the chatbot CLI.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/schollz/progressbar/v3"
)

// UI provides user-friendly output utilities.
type UI struct {
	out      io.Writer
	errOut   io.Writer
	noColor  bool
	jsonMode bool
}

// NewUI creates a new UI writing results to out and status lines to errOut.
func NewUI(out, errOut io.Writer, jsonMode, noColor bool) *UI {
	return &UI{
		out:      out,
		errOut:   errOut,
		noColor:  noColor,
		jsonMode: jsonMode,
	}
}

func (ui *UI) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if ui.noColor {
		c.DisableColor()
	}
	return c
}

// JSON writes v as indented JSON. It is the only output in JSON mode.
func (ui *UI) JSON(v interface{}) error {
	enc := json.NewEncoder(ui.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Success prints a success message.
func (ui *UI) Success(format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	ui.paint(color.FgGreen).Fprintf(ui.out, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (ui *UI) Error(format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	ui.paint(color.FgRed).Fprintf(ui.errOut, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (ui *UI) Warning(format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	ui.paint(color.FgYellow).Fprintf(ui.out, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// Info prints an info message.
func (ui *UI) Info(format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	ui.paint(color.FgCyan).Fprintf(ui.out, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Reply prints an assistant reply.
func (ui *UI) Reply(text string) {
	if ui.jsonMode {
		return
	}
	ui.paint(color.FgGreen, color.Bold).Fprint(ui.out, "bot> ")
	fmt.Fprintln(ui.out, text)
}

// Prompt prints the chat prompt.
func (ui *UI) Prompt() {
	if ui.jsonMode {
		return
	}
	ui.paint(color.FgBlue, color.Bold).Fprint(ui.out, "you> ")
}

// Section prints a section header.
func (ui *UI) Section(title string) {
	if ui.jsonMode {
		return
	}
	fmt.Fprintln(ui.out)
	ui.paint(color.FgMagenta, color.Bold).Fprintf(ui.out, "━━━ %s ━━━\n", strings.ToUpper(title))
	fmt.Fprintln(ui.out)
}

// KeyValue prints a key-value pair.
func (ui *UI) KeyValue(key string, value interface{}) {
	if ui.jsonMode {
		return
	}
	ui.paint(color.FgYellow).Fprintf(ui.out, "  %s: ", key)
	fmt.Fprintf(ui.out, "%v\n", value)
}

// Table prints a boxed table. Widths are measured in terminal cells so
// Arabic and English names line up.
func (ui *UI) Table(headers []string, rows [][]string) {
	if ui.jsonMode || len(headers) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = runewidth.StringWidth(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(cell))
			}
		}
	}

	frame := ui.paint(color.FgCyan, color.Bold)
	rule := func(left, mid, right string) {
		frame.Fprint(ui.out, left)
		for i, width := range widths {
			fmt.Fprint(ui.out, strings.Repeat("─", width+2))
			if i < len(widths)-1 {
				frame.Fprint(ui.out, mid)
			}
		}
		frame.Fprint(ui.out, right+"\n")
	}
	line := func(cells []string) {
		frame.Fprint(ui.out, "│")
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			fmt.Fprintf(ui.out, " %s ", runewidth.FillRight(cell, widths[i]))
			frame.Fprint(ui.out, "│")
		}
		fmt.Fprintln(ui.out)
	}

	rule("┌", "┬", "┐")
	line(headers)
	rule("├", "┼", "┤")
	for _, row := range rows {
		line(row)
	}
	rule("└", "┴", "┘")
}

// Spinner shows indeterminate progress while fn runs. It only animates on
// an interactive terminal.
func (ui *UI) Spinner(message string, fn func() error) error {
	if ui.jsonMode || !isTerminal(ui.errOut) {
		return fn()
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = ui.errOut
	s.Start()
	defer s.Stop()
	return fn()
}

// ProgressBar creates a determinate progress bar. It returns nil when
// output is not an interactive terminal; all Progress methods accept nil.
func (ui *UI) ProgressBar(total int, description string) *Progress {
	if ui.jsonMode || !isTerminal(ui.errOut) {
		return nil
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(ui.errOut),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("messages"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(ui.errOut, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &Progress{bar: bar}
}

// Progress wraps a progress bar.
type Progress struct {
	bar *progressbar.ProgressBar
}

// Add advances the bar by one.
func (p *Progress) Add() {
	if p == nil {
		return
	}
	_ = p.bar.Add(1)
}

// Finish completes the bar.
func (p *Progress) Finish() {
	if p == nil {
		return
	}
	_ = p.bar.Finish()
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}

// truncate shortens s to at most n terminal cells.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.Truncate(s, n, "…")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
