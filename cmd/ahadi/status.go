package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current configuration and session status",
	Long:  "Display the current configuration and, when logged in, check the session against the backend.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "Configuration:")
		fmt.Fprintf(out, "  Base URL:    %s\n", valueOrDefault(cfg.Default.BaseURL, "(not set)"))
		fmt.Fprintf(out, "  WS Base URL: %s\n", valueOrDefault(cfg.Default.WSBaseURL, "(derived)"))

		fmt.Fprintln(out)
		fmt.Fprintln(out, "Auth:")
		fmt.Fprintf(out, "  Phone:       %s\n", valueOrDefault(cfg.Auth.Phone, "(not logged in)"))
		if cfg.Auth.AccessToken != "" {
			fmt.Fprintf(out, "  Token:       %s\n", maskToken(cfg.Auth.AccessToken))
		} else {
			fmt.Fprintln(out, "  Token:       none")
		}

		if cfg.Auth.AccessToken == "" || cfg.Default.BaseURL == "" {
			return nil
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, "Live status:")
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		unread, err := client.Inbox.UnreadCount(ctx)
		if err != nil {
			fmt.Fprintf(out, "  Error: %v\n", authHint(err))
			return nil
		}
		fmt.Fprintln(out, "  Session:     valid")
		fmt.Fprintf(out, "  Unread:      %d\n", unread)
		fmt.Fprintf(out, "  WebSocket:   %s\n", valueOrDefault(client.WebSocketBaseURL(), "(unavailable)"))
		return nil
	},
}
