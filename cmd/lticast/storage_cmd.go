// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/lticast/internal/persistence/sqlite"
)

var errIntegrity = errors.New("integrity check failed")

func newStorageCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Maintain the SQLite databases",
	}

	var path, mode string
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check database integrity",
		Long: "Runs PRAGMA quick_check (or integrity_check with --mode full) against one database\n" +
			"or, without --path, against every database in the data dir.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if mode != "quick" && mode != "full" {
				return fmt.Errorf("invalid mode %q (want quick or full)", mode)
			}

			paths := []string{path}
			if path == "" {
				cfg, _, err := opts.load()
				if err != nil {
					return err
				}
				paths = paths[:0]
				for _, name := range sqliteDatabases {
					p := filepath.Join(cfg.DataDir, name)
					if _, err := os.Stat(p); err == nil {
						paths = append(paths, p)
					}
				}
				if len(paths) == 0 {
					_, err := fmt.Fprintf(cmd.OutOrStdout(), "no databases found in %s\n", cfg.DataDir)
					return err
				}
			}

			out := cmd.OutOrStdout()
			failed := false
			for _, p := range paths {
				issues, err := sqlite.VerifyIntegrity(p, mode)
				if err != nil {
					return fmt.Errorf("%s: %w", p, err)
				}
				if len(issues) == 0 {
					fmt.Fprintf(out, "OK    %s\n", p)
					continue
				}
				failed = true
				fmt.Fprintf(out, "FAIL  %s\n      %s\n", p, strings.Join(issues, "\n      "))
			}
			if failed {
				return errIntegrity
			}
			return nil
		},
	}
	verify.Flags().StringVar(&path, "path", "", "path to a specific SQLite database file")
	verify.Flags().StringVar(&mode, "mode", "quick", "verification mode: quick or full")

	cmd.AddCommand(verify)
	return cmd
}
