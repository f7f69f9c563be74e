package cmd

import (
	"fmt"
	"os"

	"invoice-audit-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "invoiceaudit",
	Short: "Invoice OCR audit tool",
	Long: `Invoiceaudit canonicalizes OCR-extracted invoice records, completes
their monetary fields and classifies each record against an audit
configuration (expected buyer tax ID, audit period, amount tolerance).

Examples:
  invoiceaudit audit --records ocr.json --expected-tax-id 12345678
  invoiceaudit audit --records ocr.json --period-start 2024-11-01 --period-end 2024-12-31 --output-format json
  invoiceaudit learn --label "發祟號碼" --field invoiceNo --mappings mappings.json
  invoiceaudit version`,
	Version: getVersionString(),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		configureLogging()
	}
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	viper.SetEnvPrefix("INVOICEAUDIT")
	viper.AutomaticEnv()
}

// configureLogging raises the global log level in verbose mode. Reports go to
// stdout, logs to stderr, so the two streams stay separable.
func configureLogging() {
	logConfig := logger.DefaultConfig()
	logConfig.Output = os.Stderr
	if viper.GetBool("verbose") {
		logConfig.Level = logger.DebugLevel
	}

	log, err := logger.NewLogger(logConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logging: %s\n", err)
		os.Exit(1)
	}
	logger.SetGlobalLogger(log)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
