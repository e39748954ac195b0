package cmd

import (
	"errors"
	"fmt"

	"github.com/benleb/eventsensor-go/internal/eventsensor"
	"github.com/benleb/eventsensor-go/internal/homeassistant"
	"github.com/benleb/eventsensor-go/internal/icons"
	"github.com/benleb/eventsensor-go/internal/models"
	"github.com/benleb/eventsensor-go/internal/style"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var errCheckFailed = errors.New("config check failed")

// checkCmd validates the sensors of the config file without connecting to Home Assistant.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: icons.Glasses + " check the sensor configuration",

	RunE: func(_ *cobra.Command, _ []string) error {
		entries, parseErr := eventsensor.ReadEntries(viper.ConfigFileUsed())
		if parseErr != nil {
			models.Printer.Errorf("%s %v", icons.RedCross, parseErr)
		}

		uniqueIDs := mapset.NewThreadUnsafeSet[string]()
		entityIDs := mapset.NewThreadUnsafeSet[homeassistant.EntityID]()
		duplicates := 0

		for _, entry := range entries {
			if !uniqueIDs.Add(entry.UniqueID) {
				models.Printer.Errorf("%s %s: %v", icons.RedCross, style.Bold(entry.Title), fmt.Errorf("%w: %s", models.ErrAlreadyConfigured, entry.UniqueID))

				duplicates++

				continue
			}

			entityID := homeassistant.SensorEntityID(entry.Data.Name, 1)
			for suffix := 2; entityIDs.Contains(entityID); suffix++ {
				entityID = homeassistant.SensorEntityID(entry.Data.Name, suffix)
			}

			entityIDs.Add(entityID)

			fmt.Println(eventsensor.FormatConfig(entityID, entry.UniqueID, entry.Data))
		}

		fmt.Println()
		fmt.Printf("%s %s valid sensors\n", icons.GreenTick, style.Bold(fmt.Sprint(entityIDs.Cardinality())))

		if parseErr != nil || duplicates > 0 {
			return errCheckFailed
		}

		return nil
	},
}

func init() { //nolint:gochecknoinits
	rootCmd.AddCommand(checkCmd)
}
