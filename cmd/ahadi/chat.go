package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	ahadi "github.com/ahadi-events/ahadi-sdk-go"
	"github.com/spf13/cobra"
)

var chatDMTitle string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Live chat over WebSocket",
	Long: "Join a live chat. Each line typed is sent as a message.\n" +
		"  /typing  toggle the typing indicator\n" +
		"  /quit    leave the chat",
}

// liveChat is what the interactive loop needs from a chat adapter.
type liveChat interface {
	SendTyping(isTyping bool)
	Socket() *ahadi.Socket
	Close()
}

var chatDMCmd = &cobra.Command{
	Use:   "dm <user-id>",
	Short: "Chat live with a user",
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
		out := cmd.OutOrStdout()
		toasts := ahadi.NewToastStore()
		defer toasts.Close()
		defer printToasts(cmd.ErrOrStderr(), toasts)()

		chat := client.Realtime().DMChat(0)
		chat.Socket().OnStateChange(toastStateChanges(toasts, "chat"))
		chat.Socket().Subscribe(printTyping(out))
		chat.OnMessage(func(m ahadi.DMChatMessage) {
			fmt.Fprintf(out, "%s: %s\n", valueOrDefault(m.SenderName, fmt.Sprint(m.SenderID)), m.Content)
		})
		chat.SetRecipient(userID)

		return runInteractive(cmd.Context(), cmd.InOrStdin(), chat, func(line string) {
			chat.SendMessage(line, chatDMTitle)
		})
	},
}

var chatEventCmd = &cobra.Command{
	Use:   "event <event-id>",
	Short: "Join an event's group chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eventID, err := parseID(args[0], "event id")
		if err != nil {
			return err
		}
		client, _, err := getClient()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		toasts := ahadi.NewToastStore()
		defer toasts.Close()
		defer printToasts(cmd.ErrOrStderr(), toasts)()

		chat := client.Realtime().EventChat(0)
		chat.Socket().OnStateChange(toastStateChanges(toasts, "event chat"))
		chat.Socket().Subscribe(printTyping(out))
		chat.Socket().Subscribe(func(env ahadi.Envelope) {
			var entry ahadi.RosterEntry
			switch env.Type {
			case "user_join":
				if env.Decode(&entry) == nil && entry.UserID != 0 {
					fmt.Fprintf(out, "* %s joined\n", valueOrDefault(entry.UserName, fmt.Sprint(entry.UserID)))
				}
			case "user_leave":
				if env.Decode(&entry) == nil && entry.UserID != 0 {
					fmt.Fprintf(out, "* %s left\n", valueOrDefault(entry.UserName, fmt.Sprint(entry.UserID)))
				}
			case "error":
				var frame struct {
					Message string `json:"message"`
				}
				_ = env.Decode(&frame)
				toasts.Error(valueOrDefault(frame.Message, "Chat error"))
			}
		})
		chat.OnMessage(func(m ahadi.EventChatMessage) {
			if m.IsDeleted {
				return
			}
			fmt.Fprintf(out, "%s: %s\n", valueOrDefault(m.SenderName, fmt.Sprint(m.SenderID)), m.Content)
		})
		chat.SetEvent(eventID)

		return runInteractive(cmd.Context(), cmd.InOrStdin(), chat, chat.SendMessage)
	},
}

func printTyping(out io.Writer) func(ahadi.Envelope) {
	return func(env ahadi.Envelope) {
		if env.Type != "typing" {
			return
		}
		var frame struct {
			UserID   int64  `json:"user_id"`
			UserName string `json:"user_name"`
			IsTyping bool   `json:"is_typing"`
		}
		if env.Decode(&frame) == nil && frame.UserID != 0 && frame.IsTyping {
			fmt.Fprintf(out, "(%s is typing...)\n", valueOrDefault(frame.UserName, fmt.Sprint(frame.UserID)))
		}
	}
}

// runInteractive sends each input line until /quit, end of input, or an
// interrupt.
func runInteractive(ctx context.Context, in io.Reader, chat liveChat, send func(string)) error {
	defer chat.Close()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	typing := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case "/quit":
				return nil
			case "/typing":
				typing = !typing
				chat.SendTyping(typing)
			default:
				if chat.Socket().State() != ahadi.StateOpen {
					fmt.Fprintln(os.Stderr, "not connected; message not sent")
					continue
				}
				send(line)
				if typing {
					typing = false
					chat.SendTyping(false)
				}
			}
		}
	}
}

func init() {
	chatDMCmd.Flags().StringVar(&chatDMTitle, "title", "", "Message title (default \""+ahadi.DefaultDMTitle+"\")")

	chatCmd.AddCommand(chatDMCmd)
	chatCmd.AddCommand(chatEventCmd)

	requiresAuth(chatCmd)
	rootCmd.AddCommand(chatCmd)
}
