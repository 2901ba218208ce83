package cmd

import (
	"fmt"
	"strings"

	"chunk-mender/core/chunk"

	"github.com/charmbracelet/lipgloss"
)

// bannerLimit caps the coordinates listed in the confirmation banner.
const bannerLimit = 10

// renderBanner lists the chunks about to be deleted.
func renderBanner(damaged []chunk.Coord) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		Render(fmt.Sprintf("%d chunk(s) could not be recovered from any backup", len(damaged)))

	lines := make([]string, 0, bannerLimit+1)
	for i, coord := range damaged {
		if i == bannerLimit {
			lines = append(lines, fmt.Sprintf("... and %d more", len(damaged)-bannerLimit))
			break
		}
		box := coord.Box()
		lines = append(lines, fmt.Sprintf("chunk %s at x=%d z=%d", coord, box.Origin.X, box.Origin.Z))
	}
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))

	hint := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render("Answer y to delete them and save, anything else aborts without changes.")

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, body, hint))
}
