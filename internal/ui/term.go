package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/javiermolinar/courtdesk/internal/grid"
	"github.com/javiermolinar/courtdesk/internal/timeline"
)

// Color definitions for consistent styling across the UI.
var (
	// Occupied: bold cyan, the thing the desk cares most about
	colorOccupied = color.New(color.FgCyan, color.Bold)

	// Blocked: red so maintenance windows stand out
	colorBlocked = color.New(color.FgRed)

	// Free time: dim
	colorFree = color.New(color.FgWhite, color.Faint)

	// Unread messages: yellow to make it pop
	colorUnread = color.New(color.FgYellow, color.Bold)

	// Headers: bold
	colorHeader = color.New(color.Bold)

	// Success: green
	colorOK = color.New(color.FgGreen)

	// Muted: for secondary information
	colorMuted = color.New(color.FgWhite, color.Faint)
)

// termWidth returns the terminal width, or a default if detection fails.
func termWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80 // sensible default
	}
	return width
}

// DisableColor disables all color output.
func DisableColor() {
	color.NoColor = true
}

// EnableColor enables color output (if terminal supports it).
func EnableColor() {
	color.NoColor = false
}

// glyph renders one cell of the text grid.
func glyph(state grid.CellState) string {
	switch state {
	case grid.Occupied:
		return colorOccupied.Sprint("█")
	case grid.Blocked:
		return colorBlocked.Sprint("▒")
	case grid.Unblock, grid.Unbook, grid.Cancelled:
		return colorMuted.Sprint("x")
	default:
		return colorFree.Sprint("·")
	}
}

func formatHeader(s string) string {
	return colorHeader.Sprint(s)
}

func formatMuted(s string) string {
	return colorMuted.Sprint(s)
}

func formatUnread(s string) string {
	return colorUnread.Sprint(s)
}

// toastPrinter prints desk toasts as they happen.
func toastPrinter(w io.Writer) timeline.Notifier {
	return timeline.NotifierFunc(func(t timeline.Toast) {
		if t.Level == timeline.LevelError {
			fmt.Fprintln(w, colorBlocked.Sprint("✗ "+t.Message))
			return
		}
		fmt.Fprintln(w, colorOK.Sprint("✓ "+t.Message))
	})
}
