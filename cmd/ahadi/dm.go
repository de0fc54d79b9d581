package main

import (
	"fmt"
	"strconv"
	"strings"

	ahadi "github.com/ahadi-events/ahadi-sdk-go"
	"github.com/spf13/cobra"
	"github.com/yanun0323/errors"
)

var (
	dmSendTitle   string
	dmSendEvent   int64
	dmHistoryJSON bool
)

var dmCmd = &cobra.Command{
	Use:   "dm",
	Short: "Direct messages over REST",
}

// dmDraftID names the draft kept for an unsent message to userID.
func dmDraftID(userID int64) string {
	return "dm_" + strconv.FormatInt(userID, 10)
}

var dmSendCmd = &cobra.Command{
	Use:   "send <user-id> <message>",
	Short: "Send a direct message",
	Long: "Send a direct message. If the session has expired the message is kept as a\n" +
		"draft and can be resent after logging in with 'ahadi drafts show'.",
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseID(args[0], "user id")
		if err != nil {
			return err
		}
		content := strings.Join(args[1:], " ")
		client, _, err := getClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		payload := &ahadi.SendDirectMessagePayload{
			RecipientID: userID,
			Title:       dmSendTitle,
			Content:     content,
			EventID:     dmSendEvent,
		}
		if _, err := client.DirectMessages.Send(ctx, payload); err != nil {
			if ahadi.IsUnauthorized(err) {
				if saveErr := saveDMDraft(payload); saveErr != nil {
					return errors.Wrap(saveErr, "session expired and the draft could not be saved")
				}
				return errors.Errorf("session expired; draft saved as %q. Log in and resend.", dmDraftID(userID))
			}
			return err
		}

		if store, err := formStore(); err == nil {
			_ = store.Clear(dmDraftID(userID))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Message sent to user %d.\n", userID)
		return nil
	},
}

func saveDMDraft(p *ahadi.SendDirectMessagePayload) error {
	store, err := formStore()
	if err != nil {
		return err
	}
	return store.Save(dmDraftID(p.RecipientID), ahadi.FormData{
		"recipient_id": p.RecipientID,
		"title":        p.Title,
		"content":      p.Content,
		"event_id":     p.EventID,
	})
}

var dmHistoryCmd = &cobra.Command{
	Use:   "history <user-id>",
	Short: "Show the conversation with a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseID(args[0], "user id")
		if err != nil {
			return err
		}
		client, _, err := getClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		msgs, err := client.DirectMessages.Conversation(ctx, userID)
		if err != nil {
			return authHint(err)
		}
		out := cmd.OutOrStdout()
		if dmHistoryJSON {
			return printJSON(out, msgs)
		}
		if len(msgs) == 0 {
			fmt.Fprintln(out, "No messages found.")
			return nil
		}
		for _, m := range msgs {
			sender := m.SenderName
			if sender == "" {
				sender = strconv.FormatInt(max(m.SenderID, m.Sender), 10)
			}
			fmt.Fprintf(out, "[%s] %s: %s\n", m.CreatedAt, sender, m.Content)
		}
		return nil
	},
}

var dmReadCmd = &cobra.Command{
	Use:   "read <user-id>",
	Short: "Mark the conversation with a user read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseID(args[0], "user id")
		if err != nil {
			return err
		}
		client, _, err := getClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		if err := client.DirectMessages.MarkConversationRead(ctx, userID); err != nil {
			return authHint(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Conversation with user %d marked read.\n", userID)
		return nil
	},
}

func init() {
	dmSendCmd.Flags().StringVar(&dmSendTitle, "title", "", "Message title (default \""+ahadi.DefaultDMTitle+"\")")
	dmSendCmd.Flags().Int64Var(&dmSendEvent, "event", 0, "Related event id")
	dmHistoryCmd.Flags().BoolVar(&dmHistoryJSON, "json", false, "Output raw JSON")

	dmCmd.AddCommand(dmSendCmd)
	dmCmd.AddCommand(dmHistoryCmd)
	dmCmd.AddCommand(dmReadCmd)

	requiresAuth(dmCmd)
	rootCmd.AddCommand(dmCmd)
}
