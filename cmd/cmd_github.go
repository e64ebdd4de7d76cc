// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var githubCmd = &cobra.Command{
	Use:   "github",
	Short: "Manage maps published to GitHub Pages",
}

var githubListCmd = &cobra.Command{
	Use:   "list [dir]",
	Short: "List the HTML files published under a repository directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		dir := cfg.GitHub.Dir
		if len(args) > 0 {
			dir = args[0]
		}

		b := newGitHubBackend(cfg, newHTTPClient(cfg, cfg.Publish.Timeout))

		paths, err := b.ListHTML(cmd.Context(), dir)
		if err != nil {
			return err
		}

		if len(paths) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No HTML files under %s\n", dir)

			return nil
		}

		for _, p := range paths {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p, b.PagesURL(p))
		}

		return nil
	},
}

var githubDeleteCmd = &cobra.Command{
	Use:   "delete <path>...",
	Short: "Delete published files from the repository",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		results := newGitHubBackend(cfg, newHTTPClient(cfg, cfg.Publish.Timeout)).DeleteAll(cmd.Context(), args)

		paths := make([]string, 0, len(results))
		for p := range results {
			paths = append(paths, p)
		}

		sort.Strings(paths)

		var errs []error

		for _, p := range paths {
			res := results[p]
			if res.Success {
				fmt.Fprintf(cmd.OutOrStdout(), "✅ %s deleted\n", p)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "❌ %s: %s\n", p, res.Error)
				errs = append(errs, fmt.Errorf("%s: %s", p, res.Error))
			}
		}

		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(githubCmd)
	githubCmd.AddCommand(githubListCmd)
	githubCmd.AddCommand(githubDeleteCmd)
}
