package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	ahadi "github.com/ahadi-events/ahadi-sdk-go"
	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Stream live notifications until interrupted",
}

var notifyDMCmd = &cobra.Command{
	Use:   "dm",
	Short: "Stream new direct-message notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := getClient()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		toasts := ahadi.NewToastStore()
		defer toasts.Close()
		defer printToasts(cmd.ErrOrStderr(), toasts)()

		feed := client.Realtime().DMNotifications()
		defer feed.Close()
		feed.Socket().OnStateChange(toastStateChanges(toasts, "notifications"))
		feed.OnNotification(func(n ahadi.DMNotification) {
			fmt.Fprintf(out, "[%s] %s: %s\n", n.CreatedAt, valueOrDefault(n.SenderName, fmt.Sprint(n.SenderID)), n.Content)
		})
		return waitForInterrupt(cmd)
	},
}

var notifyGroupCmd = &cobra.Command{
	Use:   "group",
	Short: "Stream new event-chat notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := getClient()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		toasts := ahadi.NewToastStore()
		defer toasts.Close()
		defer printToasts(cmd.ErrOrStderr(), toasts)()

		feed := client.Realtime().GroupNotifications()
		defer feed.Close()
		feed.Socket().OnStateChange(toastStateChanges(toasts, "notifications"))
		feed.OnNotification(func(n ahadi.GroupNotification) {
			fmt.Fprintf(out, "[event %s] %s: %s\n", n.EventID, valueOrDefault(n.SenderName, fmt.Sprint(n.SenderID)), n.Content)
		})
		return waitForInterrupt(cmd)
	},
}

func waitForInterrupt(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}

func init() {
	notifyCmd.AddCommand(notifyDMCmd)
	notifyCmd.AddCommand(notifyGroupCmd)

	requiresAuth(notifyCmd)
	rootCmd.AddCommand(notifyCmd)
}
