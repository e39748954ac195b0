package style

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Gray = func(shade int) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(fmt.Sprintf("#%x%x%x", shade, shade, shade)))
	}

	BoldStyle = Gray(238).Bold(true) // #eeeeee
	Bold      = BoldStyle.Render

	LightGray = Gray(9)

	HABlue  = lipgloss.Color("#1DAEEF")
	HAStyle = lipgloss.NewStyle().Foreground(HABlue)

	MQTTPurple = lipgloss.Color("#660066")

	DarkDivider        = Gray(5).SetString("⁞")
	DarkerDivider      = Gray(3).SetString("|")
	DarkIndicatorLeft  = LightGray.SetString("←")
	DarkIndicatorRight = LightGray.SetString("→")
)

func ColorizeHABlue(text string) string {
	return HAStyle.SetString(text).Render()
}

func HABlueFrame(text string) string {
	return ColorizeHABlue("<") + text + ColorizeHABlue(">")
}

// KeyValues formats a mapping as sorted `key:value` pairs 💄.
func KeyValues(values map[string]any) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, Gray(8).Render(key)+ColorizeHABlue(":")+fmt.Sprint(values[key]))
	}

	return strings.Join(pairs, ColorizeHABlue("|"))
}
