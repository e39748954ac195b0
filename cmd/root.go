package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/benleb/eventsensor-go/internal/app"
	"github.com/benleb/eventsensor-go/internal/models"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "eventsensor",
	Short: models.AppIcon + " EventSensor",
	Long:  models.AppIcon + " Sensors for Home Assistant mirroring the most recent matching event into their state & attributes…",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() { //nolint:gochecknoinits
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.eventsensor.yaml)")

	// logging
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "show more output")
	_ = viper.BindPFlag("eventsensor.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "show debug output")
	_ = viper.BindPFlag("eventsensor.debug", rootCmd.PersistentFlags().Lookup("debug"))
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	_ = viper.BindPFlag("eventsensor.no_color", rootCmd.PersistentFlags().Lookup("no-color"))

	// defaults
	app.SetDefaults()
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".eventsensor" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".eventsensor")
	}

	// read in environment variables that match, e.g. EVENTSENSOR_HOMEASSISTANT_TOKEN
	viper.SetEnvPrefix("EVENTSENSOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		log.Error(fmt.Errorf("failed to read config file %s: %w", viper.ConfigFileUsed(), err))
	}

	setupPrinter()
}

// setupPrinter configures the global printer depending on the log flags.
func setupPrinter() {
	// general log settings & style
	var logLevel log.Level

	switch {
	case viper.GetBool("eventsensor.debug"):
		logLevel = log.DebugLevel

	case viper.GetBool("eventsensor.verbose"):
		logLevel = log.InfoLevel

	default:
		logLevel = log.WarnLevel
	}

	models.Printer = log.NewWithOptions(os.Stdout, log.Options{
		ReportTimestamp: false,
		TimeFormat:      " " + "15:04:05",
		ReportCaller:    logLevel < log.InfoLevel,
		Level:           logLevel,
	})

	if viper.GetBool("eventsensor.no_color") {
		models.Printer.SetColorProfile(termenv.Ascii)
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	log.SetDefault(models.Printer)
}
