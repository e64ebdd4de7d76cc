// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"log"

	"github.com/spf13/cobra"
)

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Google Drive backend",
}

var driveAuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Run the consent flow and store the token for later runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		creds := newDriveCredentials(cfg, true)
		if _, err := creds.Acquire(cmd.Context()); err != nil {
			return err
		}

		log.Printf("✅ Token stored in %s", cfg.Drive.TokenFile)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(driveCmd)
	driveCmd.AddCommand(driveAuthCmd)
}
