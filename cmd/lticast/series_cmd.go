// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ManuGH/lticast/internal/security"
	"github.com/ManuGH/lticast/internal/series"
)

func withSeriesStore(opts *rootOptions, fn func(*series.Store) error) error {
	cfg, _, err := opts.load()
	if err != nil {
		return err
	}
	store, err := series.OpenStore(filepath.Join(cfg.DataDir, seriesDBName))
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func orgContext(ctx context.Context, org string) context.Context {
	return security.WithUser(ctx, security.User{Username: "lticast-cli", Organization: org})
}

func newSeriesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Manage the series directory",
	}

	var org string
	var ids []string
	create := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSeriesStore(opts, func(store *series.Store) error {
				rec, err := store.CreateWithIdentifiers(cmd.Context(), org, args[0], ids...)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", strings.Join(rec.Identifiers, ","), rec.Title)
				return err
			})
		},
	}
	create.Flags().StringVar(&org, "org", security.DefaultOrganization, "owning organization")
	create.Flags().StringSliceVar(&ids, "id", nil, "identifier(s); a UUID is generated when omitted")

	var listOrg string
	list := &cobra.Command{
		Use:   "list",
		Short: "List series of an organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSeriesStore(opts, func(store *series.Store) error {
				records, err := store.List(orgContext(cmd.Context(), listOrg))
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "IDENTIFIERS\tTITLE\tORGANIZATION")
				for _, rec := range records {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", strings.Join(rec.Identifiers, ","), rec.Title, rec.Organization)
				}
				return tw.Flush()
			})
		},
	}
	list.Flags().StringVar(&listOrg, "org", security.DefaultOrganization, "organization to list")

	cmd.AddCommand(create, list)
	return cmd
}
