// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/lticast/internal/config"
	xglog "github.com/ManuGH/lticast/internal/log"
	"github.com/ManuGH/lticast/internal/version"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "lticast",
		Short:         "LTI upload and event management service",
		Version:       version.String(),
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			xglog.Configure(xglog.Config{
				Level:   "info",
				Output:  cmd.ErrOrStderr(),
				Service: "lticast",
				Version: version.Version,
			})
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"path to config file (YAML); defaults to $"+config.EnvDataDir+"/config.yaml when present")

	root.AddCommand(
		newServeCmd(opts),
		newConfigCmd(opts),
		newStorageCmd(opts),
		newWorkflowCmd(opts),
		newSeriesCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

// resolveConfigPath returns the explicit --config value or the data dir
// default when that file exists. Empty means ENV and defaults only.
func (o *rootOptions) resolveConfigPath() string {
	if p := strings.TrimSpace(o.configPath); p != "" {
		return p
	}
	dataDir := strings.TrimSpace(config.ParseString(config.EnvDataDir, config.DefaultDataDir))
	auto := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(auto); err == nil {
		return auto
	}
	return ""
}

// load resolves and loads the configuration.
func (o *rootOptions) load() (config.AppConfig, *config.Loader, error) {
	loader := config.NewLoader(o.resolveConfigPath())
	cfg, err := loader.Load()
	if err != nil {
		return config.AppConfig{}, nil, err
	}
	return cfg, loader, nil
}
