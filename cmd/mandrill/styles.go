package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Palette
var (
	colorPrimary      = lipgloss.Color("#2C9AB7")
	colorPrimaryLight = lipgloss.Color("#5BC0DE")
	colorMuted        = lipgloss.Color("240")

	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
)

// Styles
var (
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(colorPrimary)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
)

// Icons
const (
	iconError   = "✗"
	iconWarning = "⚠"
	iconInfo    = "●"
)

// Plain prefixes used when stderr is not a terminal, so logs stay greppable.
const (
	plainError   = "error:"
	plainWarning = "warning:"
	plainInfo    = "info:"
)

var (
	testIsTTYMutex    sync.Mutex
	testIsTTYOverride *bool
)

// isTTY returns true if stderr is a terminal. Styled lines only ever go to
// stderr; stdout carries raw template content.
func isTTY() bool {
	testIsTTYMutex.Lock()
	override := testIsTTYOverride
	testIsTTYMutex.Unlock()
	if override != nil {
		return *override
	}
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// printStyled prints a message with an icon in TTY mode, or a plain prefix otherwise.
func printStyled(w io.Writer, icon, plain string, style lipgloss.Style, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if isTTY() {
		fmt.Fprintf(w, "%s %s\n", style.Render(icon), msg)
	} else {
		fmt.Fprintf(w, "%s %s\n", plain, msg)
	}
}

func printError(w io.Writer, format string, args ...interface{}) {
	printStyled(w, iconError, plainError, errorStyle, format, args...)
}

func printWarning(w io.Writer, format string, args ...interface{}) {
	printStyled(w, iconWarning, plainWarning, warningStyle, format, args...)
}

func printInfo(w io.Writer, format string, args ...interface{}) {
	printStyled(w, iconInfo, plainInfo, infoStyle, format, args...)
}
