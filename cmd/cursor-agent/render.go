package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	agent "github.com/Protocol-Lattice/cursor-agent"
)

var (
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	agentStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	systemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	toolStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	headerStyle = lipgloss.NewStyle().Bold(true)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

const (
	wrapWidth     = 100
	maxResultShow = 500
)

// printer writes styled output; replies are rendered as markdown.
type printer struct {
	out      io.Writer
	markdown *glamour.TermRenderer
}

func newPrinter(out io.Writer) *printer {
	style := glamour.WithStandardStyle("notty")
	if isTerminal(out) {
		style = glamour.WithAutoStyle()
	}
	p := &printer{out: out}
	if r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(wrapWidth)); err == nil {
		p.markdown = r
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func (p *printer) system(format string, args ...any) {
	fmt.Fprintln(p.out, systemStyle.Render("[System] "+fmt.Sprintf(format, args...)))
}

func (p *printer) fail(err error) {
	fmt.Fprintln(p.out, errorStyle.Render("[Error] "+err.Error()))
}

func (p *printer) separator() {
	fmt.Fprintln(p.out, toolStyle.Render(strings.Repeat("=", 80)))
}

// response prints the reply followed by a summary of the tools it used.
func (p *printer) response(resp *agent.Response) {
	fmt.Fprintln(p.out, agentStyle.Render("Agent:"))
	fmt.Fprintln(p.out, p.renderMarkdown(resp.Message))
	if len(resp.ToolCalls) == 0 {
		return
	}
	fmt.Fprintln(p.out, toolStyle.Render(fmt.Sprintf("The agent used %d tool(s):", len(resp.ToolCalls))))
	for i, call := range resp.ToolCalls {
		line := fmt.Sprintf("  %d. %s", i+1, call.Name)
		if call.Error != "" {
			line += " (error: " + truncate(call.Error, maxResultShow) + ")"
		}
		fmt.Fprintln(p.out, toolStyle.Render(line))
	}
}

func (p *printer) renderMarkdown(text string) string {
	if p.markdown == nil {
		return text
	}
	out, err := p.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "... [truncated]"
}
