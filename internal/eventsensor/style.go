package eventsensor

import (
	"fmt"
	"math/rand"

	"github.com/benleb/eventsensor-go/internal/homeassistant"
	"github.com/benleb/eventsensor-go/internal/style"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	// style configuration for sensor configuration printed at startup.

	// list general.
	list = lipgloss.NewStyle().
		MarginLeft(0).
		MarginRight(0).
		PaddingTop(1)

	listHeader = lipgloss.NewStyle().
			MarginLeft(1).
			MarginRight(2).
			Width(10).
			Align(lipgloss.Right).
			AlignVertical(lipgloss.Top).
			Foreground(lipgloss.Color("#333555")).
			Render

	listItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#969B86", Dark: "#ccc"})

	listItem = listItemStyle.Render

	// state map lists.
	mapArrow = lipgloss.NewStyle().SetString("→").
			PaddingLeft(1).
			PaddingRight(1).
			Foreground(style.HABlue).
			String()
	listItemMapping = func(from string, to string) string {
		return listItem(from) + mapArrow + lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Dark: "#eee", Light: "#111"}).
			Render(to)
	}
)

const ASCIIHeader = `
  ___              _   ___
 | __|_ _____ _ _ | |_/ __| ___ _ _  ___ ___ _ _
 | _|\ V / -_) ' \|  _\__ \/ -_) ' \(_-</ _ \ '_|
 |___|\_/\___|_||_|\__|___/\___|_||_/__/\___/_|`

// GenerateColorFromString generates a color based on the given seed.
func GenerateColorFromString(seedPhrase string) lipgloss.Color {
	// ✨  🪄    ✨    ✨     ✨   ✨
	//   ✨  🦄    ✨    ✨     ✨
	// ✨  🪄  magic numbers!  🦄   🪄
	//     ✨   🪄  ✨    ✨     ✨
	// ✨  🦄    ✨    ✨      🦄  ✨

	// initial magic color seed
	magicColorSeed := int64(17)

	// create a magic seed number to generate a random color
	magicSeedNumber := magicColorSeed

	// get something like the faculty of the seed number
	for _, r := range seedPhrase {
		magicSeedNumber *= int64(r)
	}

	// create a new random number generator with the magic seed number
	rng := rand.New(rand.NewSource(magicSeedNumber)) //nolint:gosec

	// generate a magic random - but deterministic - color based on the magic seed number
	magicColor := lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", rng.Intn(256), rng.Intn(256), rng.Intn(256)))

	log.Debugf("✨🪄  %s ✨ initial: %d 🦄  ✨ | seed: %+v 🪄🦄", lipgloss.NewStyle().Foreground(magicColor).Render(seedPhrase), magicColorSeed, magicSeedNumber)

	return magicColor
}

// FormatConfig renders the configuration of a sensor as list for the startup output.
func FormatConfig(entityID homeassistant.EntityID, uniqueID string, cfg Config) string {
	nameStyle := lipgloss.NewStyle().Foreground(GenerateColorFromString(cfg.Name)).Bold(true)

	rows := []string{
		listHeader("name") + nameStyle.Render(cfg.Name),
		listHeader("entity") + entityID.FmtString(),
		listHeader("unique id") + listItem(uniqueID),
		listHeader("event") + listItem(cfg.Event),
		listHeader("state") + listItem(cfg.State),
	}

	if len(cfg.EventData) > 0 {
		rows = append(rows, listHeader("filter")+style.KeyValues(cfg.EventData))
	}

	for idx, from := range sortedKeys(cfg.StateMap) {
		header := ""
		if idx == 0 {
			header = "state map"
		}

		rows = append(rows, listHeader(header)+listItemMapping(from, fmt.Sprint(cfg.StateMap[from])))
	}

	return list.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
