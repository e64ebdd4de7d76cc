// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/jcodagnone/mapdeploy/config"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

type rootOptions struct {
	ConfigFile          string
	EnableHTTPTrace     bool
	EnableHTTPBodyTrace bool
}

var rootOpts = &rootOptions{}

var rootCmd = &cobra.Command{
	Use:   "mapdeploy",
	Short: "turns a list of addresses into a hosted interactive map",
	Long: `
mapdeploy geocodes a list of addresses, renders an interactive map centered on
them and publishes it to Netlify, GitHub Pages or Google Drive, answering with
a single shareable link.
`,
	SilenceUsage: true,
}

var Version = "dev"

func Execute(version string) {
	Version = version
	rootCmd.Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, .env and environment, in that order.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv(rootOpts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&rootOpts.ConfigFile,
		"config",
		"",
		"YAML configuration file",
	)
	rootCmd.PersistentFlags().BoolVar(
		&rootOpts.EnableHTTPTrace,
		"trace-http",
		false,
		"Trace HTTP requests and responses to stderr",
	)
	rootCmd.PersistentFlags().BoolVar(
		&rootOpts.EnableHTTPBodyTrace,
		"trace-http-body",
		false,
		"Trace HTTP bodies too",
	)
}
