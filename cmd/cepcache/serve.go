package main

import (
	"os"
	"path/filepath"

	"github.com/prior-it/cepcache/bootstrap"
	"github.com/prior-it/cepcache/config"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the address HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		srv, err := bootstrap.Server(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return srv.Start(cmd.Context(), nil)
	},
}

func loadConfig() (*config.Config, error) {
	return config.Load(os.DirFS(configDir), filepath.Join(configDir, ".env"))
}
