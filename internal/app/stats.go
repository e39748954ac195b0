package app

import (
	"fmt"
	"strings"

	"github.com/benleb/eventsensor-go/internal/eventsensor"
	"github.com/benleb/eventsensor-go/internal/style"
	"github.com/charmbracelet/lipgloss"
)

// printStats prints the stats about received/accepted events.
func (app *App) printStats() {
	fmt.Println()
	app.Pr.Print(app.fmtStats(app.ha.EventsReceived(), app.manager.Sensors()))
	fmt.Println()
}

func (app *App) fmtStats(eventsTotal uint64, sensors []*eventsensor.Sensor) string {
	fmtUnit := style.LightGray.Render("/m")
	perMinuteFormat := "%3.1f"

	minutes := app.ha.Uptime().Minutes()

	fmtCount := func(events uint64, countStyle lipgloss.Style) string {
		return fmt.Sprintf("%d%s%s", events, countStyle.Bold(true).Render("|"), fmt.Sprintf(perMinuteFormat, float64(events)/minutes)+fmtUnit)
	}

	fmtEventCounts := []string{fmtCount(eventsTotal, app.style)}

	for _, sensor := range sensors {
		_, accepted := sensor.EventsReceived()

		fmtSensorCount := strings.Builder{}
		fmtSensorCount.WriteString(sensor.EntityID().FmtShort())
		fmtSensorCount.WriteString(style.Gray(6).Render(":"))
		fmtSensorCount.WriteString(fmtCount(accepted, lipgloss.NewStyle().Foreground(eventsensor.GenerateColorFromString(sensor.Name()))))

		fmtEventCounts = append(fmtEventCounts, fmtSensorCount.String())
	}

	return strings.Join(fmtEventCounts, " | ")
}
