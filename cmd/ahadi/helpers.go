package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	ahadi "github.com/ahadi-events/ahadi-sdk-go"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/yanun0323/errors"
)

const requestTimeout = 15 * time.Second

func logger() ahadi.Logger {
	if verbose {
		return ahadi.NewLogger()
	}
	return ahadi.NopLogger()
}

// newClient builds an SDK client from the stored configuration. The token
// source reads the config on every call so a login in another shell is seen.
func newClient(cfg *Config) (*ahadi.Client, error) {
	if cfg.Default.BaseURL == "" && cfg.Default.WSBaseURL == "" {
		return nil, errors.New("no base URL configured; run 'ahadi init <base-url>' first")
	}
	opts := []ahadi.ClientOption{
		ahadi.WithBaseURL(cfg.Default.BaseURL),
		ahadi.WithLogger(logger()),
		ahadi.WithTokenSource(ahadi.TokenFunc(func() string {
			if latest, err := loadConfig(); err == nil {
				return latest.Auth.AccessToken
			}
			return cfg.Auth.AccessToken
		})),
	}
	if cfg.Default.WSBaseURL != "" {
		opts = append(opts, ahadi.WithWebSocketBaseURL(cfg.Default.WSBaseURL))
	}
	return ahadi.NewClient("", opts...), nil
}

func getClient() (*ahadi.Client, *Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load config")
	}
	client, err := newClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

// formStore keeps drafts under ~/.ahadi/forms.
func formStore() (*ahadi.FormStore, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	return ahadi.NewFormStore(filepath.Join(dir, "forms"), logger()), nil
}

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), requestTimeout)
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid %s %q", what, s)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode output")
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// authHint turns a REST 401 into an actionable message.
func authHint(err error) error {
	if ahadi.IsUnauthorized(err) {
		return errors.New("session expired; log in again with 'ahadi login'")
	}
	return err
}

// printToasts writes every new toast to w as it appears.
func printToasts(w io.Writer, store *ahadi.ToastStore) (unsubscribe func()) {
	var (
		mu   sync.Mutex
		seen = map[uuid.UUID]bool{}
	)
	return store.OnChange(func(toasts []ahadi.Toast) {
		mu.Lock()
		defer mu.Unlock()
		for _, t := range toasts {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			fmt.Fprintf(w, "[%s] %s\n", t.Type, t.Message)
		}
	})
}

// toastStateChanges reports connection state transitions as toasts.
func toastStateChanges(store *ahadi.ToastStore, label string) func(ahadi.StateEvent) {
	return func(ev ahadi.StateEvent) {
		switch ev.NewState {
		case ahadi.StateOpen:
			store.Success(label + " connected")
		case ahadi.StateConnecting:
			if ev.OldState != ahadi.StateConnecting {
				store.Info(label + " connecting...")
			}
		case ahadi.StateError:
			if ev.Err != nil {
				store.Error(label + ": " + ev.Err.Error())
			}
		case ahadi.StateClosed:
			if ev.OldState != ahadi.StateClosed {
				store.Warning(label + " disconnected")
			}
		}
	}
}

func valueOrDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}

// maskToken shows the first and last four characters of a token.
func maskToken(token string) string {
	if len(token) <= 12 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
