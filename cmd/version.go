package cmd

import (
	"fmt"

	"github.com/benleb/eventsensor-go/internal/models"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the version",

	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("%s %s %s (%s, %s)\n", models.AppIcon, models.AppName, models.AppVersion, models.Commit, models.CommitDate)
	},
}

func init() { //nolint:gochecknoinits
	rootCmd.AddCommand(versionCmd)
}
