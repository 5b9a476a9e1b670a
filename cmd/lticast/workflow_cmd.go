// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/lticast/internal/index"
	"github.com/ManuGH/lticast/internal/workflow"
)

// openWorkflows opens the workflow store and keeps the event index in step
// with transitions made from the command line.
func openWorkflows(opts *rootOptions) (*workflow.Service, func(), error) {
	cfg, _, err := opts.load()
	if err != nil {
		return nil, nil, err
	}
	wfStore, err := workflow.OpenStore(filepath.Join(cfg.DataDir, workflowDBName))
	if err != nil {
		return nil, nil, err
	}
	events, err := index.OpenStore(filepath.Join(cfg.DataDir, indexDBName))
	if err != nil {
		_ = wfStore.Close()
		return nil, nil, err
	}

	svc := workflow.NewService(wfStore)
	svc.Subscribe(index.NewService(index.Options{Store: events}).OnWorkflowTransition)
	return svc, func() {
		_ = events.Close()
		_ = wfStore.Close()
	}, nil
}

func newWorkflowCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Inspect and drive workflow instances",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "pending",
		Short: "List workflow instances that have not finished",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := openWorkflows(opts)
			if err != nil {
				return err
			}
			defer closeFn()

			pending, err := svc.Pending(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDEFINITION\tMEDIAPACKAGE\tSTATE\tUPDATED")
			for _, inst := range pending {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					inst.ID, inst.DefinitionID, inst.MediaPackageID, inst.State, inst.Updated.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "transition <instance-id> <state>",
		Short: "Move a workflow instance to a new state",
		Long:  "Records a state change reported by the processing platform, e.g. RUNNING or SUCCEEDED.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := workflow.ParseState(args[1])
			if err != nil {
				return err
			}
			svc, closeFn, err := openWorkflows(opts)
			if err != nil {
				return err
			}
			defer closeFn()

			inst, err := svc.Transition(cmd.Context(), args[0], to)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s\n", inst.ID, inst.MediaPackageID, inst.State)
			return err
		},
	})
	return cmd
}
