// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/lticast/internal/security"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue bearer tokens for the LTI endpoints",
	}

	var (
		user security.User
		ttl  time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Sign a token with the configured secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(user.Username) == "" {
				return errors.New("--user is required")
			}
			if ttl <= 0 {
				return fmt.Errorf("invalid ttl %s", ttl)
			}
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			if user.Organization == "" {
				user.Organization = cfg.LTI.Organization
			}
			auth, err := security.NewAuthenticator(cfg.API.JWTSecret, cfg.API.JWTIssuer)
			if err != nil {
				return err
			}
			token, err := auth.Issue(user, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	f := issue.Flags()
	f.StringVar(&user.Username, "user", "", "username (token subject)")
	f.StringVar(&user.Name, "name", "", "display name")
	f.StringVar(&user.Email, "email", "", "email address")
	f.StringVar(&user.Organization, "org", "", "organization (defaults to lti.organization)")
	f.StringArrayVar(&user.Roles, "role", nil, "role, repeatable")
	f.DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")

	cmd.AddCommand(issue)
	return cmd
}
