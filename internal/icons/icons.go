package icons

import "github.com/charmbracelet/lipgloss"

const (
	// sensor related messages.
	Bullseye = "🎯"
	Event    = "📨"
	Restore  = "♻️ "
	Save     = "💾"

	// reactions & related messages.
	Blind = "🙈"
	Hae   = "⁉️ ‽"
	Block = "🚫"

	// connection related messages.
	ConnectionChain = "🔗"
	ReconnectCircle = "↻"

	// other messages.
	Cross = "✖️"
	Tick  = "✔"

	Broom   = "🧹"
	Door    = "🚪"
	Glasses = "👓"
	Key     = "🔑"
	Rocket  = "🚀"
	Shrug   = "🤷‍♀️"
	Home    = "🏠"
	Call    = "📞"
	Mail    = "📬"

	Stopwatch = "⏱️"
	Sub       = "🚇"
	Unsub     = "🚏"
	Watchdog  = "🐕"

	// go stylecheck linter ST1018.
	WeightLift = "🏋️\u200d"
)

var (
	GreenTick = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).SetString(" " + Tick)
	RedCross  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).SetString(Cross)
)
