package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/benleb/eventsensor-go/internal/app"
	"github.com/benleb/eventsensor-go/internal/eventsensor"
	"github.com/benleb/eventsensor-go/internal/models"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/gops/agent"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runCmd represents the run command.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: models.AppIcon + " run EventSensor",

	RunE: func(_ *cobra.Command, _ []string) error {
		// print header/logo
		fmt.Println(lipgloss.NewStyle().Padding(2, 4).Render(eventsensor.ASCIIHeader))

		// diagnostics agent
		if viper.GetBool("eventsensor.gops") {
			if err := agent.Listen(agent.Options{}); err != nil {
				models.Printer.Errorf("starting gops agent failed: %v", err)
			} else {
				defer agent.Close()
			}
		}

		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}

		eventSensor, err := app.New(cfg)
		if err != nil {
			return err
		}

		// ctrl+c handler
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return eventSensor.Run(ctx)
	},
}

func init() { //nolint:gochecknoinits
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("gops", false, "start a gops diagnostics agent")
	_ = viper.BindPFlag("eventsensor.gops", runCmd.Flags().Lookup("gops"))
}
