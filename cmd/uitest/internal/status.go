package internal

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/goplus/uitest/internal/provision"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

func statusLine(s provision.State, detail string) string {
	style := pendingStyle
	marker := "•"
	switch s {
	case provision.DeviceReady:
		style, marker = okStyle, "✓"
	case provision.Failed:
		style, marker = failStyle, "✗"
	}
	return fmt.Sprintf("%s %s %s", style.Render(marker), style.Render(s.String()), detailStyle.Render(detail))
}

func statusPrinter(w io.Writer) provision.Observer {
	return func(s provision.State, detail string) {
		fmt.Fprintln(w, statusLine(s, detail))
	}
}
