package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configDir string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cepcache",
	Short: "Brazilian postal address service",
	Long: `Serve, store and look up Brazilian postal addresses.
Postal codes that are not stored yet are resolved through ViaCEP and cached in postgres.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&configDir, "config", "c", ".", "directory that holds config.toml and .env",
	)
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
