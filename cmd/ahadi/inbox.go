package main

import (
	"fmt"

	ahadi "github.com/ahadi-events/ahadi-sdk-go"
	"github.com/spf13/cobra"
)

var (
	inboxListPage int
	inboxListJSON bool
)

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Read and manage your inbox",
}

var inboxListCmd = &cobra.Command{
	Use:   "list",
	Short: "List inbox messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := getClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		page, err := client.Inbox.List(ctx, &ahadi.ListOptions{Page: inboxListPage})
		if err != nil {
			return authHint(err)
		}
		out := cmd.OutOrStdout()
		if inboxListJSON {
			return printJSON(out, page)
		}
		if len(page.Results) == 0 {
			fmt.Fprintln(out, "Inbox is empty.")
			return nil
		}
		for _, m := range page.Results {
			mark := " "
			if !m.IsRead {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %d  %s  %s: %s\n", mark, m.ID, m.CreatedAt, valueOrDefault(m.SenderName, "system"), m.Title)
		}
		if page.HasNext() {
			fmt.Fprintf(out, "(%d total; more with --page %d)\n", page.Count, max(inboxListPage, 1)+1)
		}
		return nil
	},
}

var inboxUnreadCmd = &cobra.Command{
	Use:   "unread",
	Short: "Print the number of unread messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := getClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		n, err := client.Inbox.UnreadCount(ctx)
		if err != nil {
			return authHint(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}

var inboxReadCmd = &cobra.Command{
	Use:   "read <message-id>",
	Short: "Show a message and mark it read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "message id")
		if err != nil {
			return err
		}
		client, _, err := getClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		msg, err := client.Inbox.Get(ctx, id)
		if err != nil {
			return authHint(err)
		}
		if !msg.IsRead {
			if _, err := client.Inbox.MarkRead(ctx, id); err != nil {
				return authHint(err)
			}
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "From:  %s\n", valueOrDefault(msg.SenderName, "system"))
		fmt.Fprintf(out, "Title: %s\n", msg.Title)
		if msg.EventTitle != nil {
			fmt.Fprintf(out, "Event: %s\n", *msg.EventTitle)
		}
		fmt.Fprintf(out, "Date:  %s\n\n%s\n", msg.CreatedAt, msg.Content)
		return nil
	},
}

var inboxReadAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark every inbox message read",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := getClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		if err := client.Inbox.MarkAllRead(ctx); err != nil {
			return authHint(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All messages marked read.")
		return nil
	},
}

func init() {
	inboxListCmd.Flags().IntVar(&inboxListPage, "page", 0, "Page number")
	inboxListCmd.Flags().BoolVar(&inboxListJSON, "json", false, "Output raw JSON")

	inboxCmd.AddCommand(inboxListCmd)
	inboxCmd.AddCommand(inboxUnreadCmd)
	inboxCmd.AddCommand(inboxReadCmd)
	inboxCmd.AddCommand(inboxReadAllCmd)

	requiresAuth(inboxCmd)
	rootCmd.AddCommand(inboxCmd)
}
