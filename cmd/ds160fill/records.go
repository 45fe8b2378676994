package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/ds160fill/store"
)

func (a *app) recordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Manage stored client records",
	}

	var label, id string
	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Store a client record JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := loadRecord(args[0])
			if err != nil {
				return err
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			cr := &store.ClientRecord{ID: id, Label: label, Data: rec}
			if err := st.PutRecord(cmd.Context(), cr); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cr.ID)
			return nil
		},
	}
	importCmd.Flags().StringVar(&label, "label", "", "human readable label")
	importCmd.Flags().StringVar(&id, "id", "", "replace this record")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored client records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			recs, err := st.ListRecords(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLABEL\tSECTIONS\tUPDATED")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.ID, r.Label, r.Sections, r.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored client record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			return st.DeleteRecord(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(importCmd, listCmd, deleteCmd)
	return cmd
}

func (a *app) runsCmd() *cobra.Command {
	var limit int
	var recordID string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent fill runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			var runs []store.Run
			if recordID != "" {
				runs, err = st.RunsForRecord(cmd.Context(), recordID)
			} else {
				runs, err = st.ListRuns(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tSECTION\tOK\tFILLED\tERRORS\tMESSAGE")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%d\t%s\n",
					r.StartedAt.Format("2006-01-02 15:04:05"), r.Section, r.Success, r.FilledCount, len(r.Errors), r.Message)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "max runs")
	cmd.Flags().StringVar(&recordID, "record-id", "", "only runs of this record")
	return cmd
}
