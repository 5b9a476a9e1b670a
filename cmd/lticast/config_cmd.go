// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/lticast/internal/validate"
)

const redacted = "***"

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, loader, err := opts.load()
			if err != nil {
				var verr validate.ValidationError
				if errors.As(err, &verr) {
					out := cmd.OutOrStdout()
					for _, e := range verr.Errors() {
						fmt.Fprintf(out, "  %s: %s\n", e.Field, e.Message)
					}
				}
				return err
			}
			source := loader.Path()
			if source == "" {
				source = "environment and defaults"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "configuration OK (%s)\n", source)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.API.JWTSecret != "" {
				cfg.API.JWTSecret = redacted
			}
			if cfg.Cache.RedisPassword != "" {
				cfg.Cache.RedisPassword = redacted
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	})
	return cmd
}
