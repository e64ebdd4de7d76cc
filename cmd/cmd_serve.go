// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/jcodagnone/mapdeploy/publish"
	"github.com/jcodagnone/mapdeploy/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose map creation over HTTP (POST /api/maps)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr = serveAddr
		}

		if cfg.Server.WorkDir != "" {
			if err := os.MkdirAll(cfg.Server.WorkDir, 0o750); err != nil {
				return fmt.Errorf("creating work directory: %w", err)
			}
		}

		// no terminal to ask for consent: run `drive auth` beforehand
		srv := server.New(newCoordinator(cfg, false), server.Options{
			Backend: cfg.Backend,
			Zoom:    cfg.Map.Zoom,
			Width:   cfg.Map.Width,
			Height:  cfg.Map.Height,
			WorkDir: cfg.Server.WorkDir,
			Publish: publish.Options{
				FolderID: cfg.Drive.FolderID,
				Role:     cfg.Drive.Role,
			},
		})

		return srv.Run(cfg.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
}
