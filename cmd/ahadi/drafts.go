package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yanun0323/errors"
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Inspect form drafts saved when a session expired",
}

var draftsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved drafts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := formStore()
		if err != nil {
			return err
		}
		ids, err := store.List()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No drafts.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
		return nil
	},
}

var draftsShowCmd = &cobra.Command{
	Use:   "show <draft-id>",
	Short: "Print a saved draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := formStore()
		if err != nil {
			return err
		}
		data, ok := store.Get(args[0])
		if !ok {
			return errors.Errorf("no draft %q", args[0])
		}
		return printJSON(cmd.OutOrStdout(), data)
	},
}

var draftsClearCmd = &cobra.Command{
	Use:   "clear <draft-id>",
	Short: "Delete a saved draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := formStore()
		if err != nil {
			return err
		}
		if err := store.Clear(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Draft %s cleared.\n", args[0])
		return nil
	},
}

func init() {
	draftsCmd.AddCommand(draftsListCmd)
	draftsCmd.AddCommand(draftsShowCmd)
	draftsCmd.AddCommand(draftsClearCmd)
	rootCmd.AddCommand(draftsCmd)
}
