package report

import (
	"fmt"
	"time"

	"dvamodel/internal/core/ports"

	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

// Summary is the one-line styled outcome printed after a scan.
func Summary(res ports.ScanResult) string {
	headline := okStyle.Render(fmt.Sprintf("%d models", res.Models))
	if res.FilesFailed > 0 {
		headline += " | " + warnStyle.Render(fmt.Sprintf("%d files failed", res.FilesFailed))
	}
	detail := mutedStyle.Render(fmt.Sprintf("%d files, %d unchanged, %s",
		res.FilesScanned, res.FilesSkipped, res.Duration.Round(time.Millisecond)))
	return headline + " " + detail
}
