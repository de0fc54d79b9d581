package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yanun0323/errors"
)

func init() {
	loginCmd.AddCommand(loginRequestOTPCmd)
	loginCmd.AddCommand(loginVerifyCmd)
	requiresAuth(logoutCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with a one-time code sent by SMS",
	Long:  "Request a one-time code for your phone number, then verify it to store an access token locally.",
}

var loginRequestOTPCmd = &cobra.Command{
	Use:   "request-otp <phone>",
	Short: "Text a one-time code to phone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := getClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		if err := client.Auth.RequestOTP(ctx, args[0]); err != nil {
			return errors.Wrap(err, "request OTP")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Code sent to %s. Run 'ahadi login verify %s <code>'.\n", args[0], args[0])
		return nil
	},
}

var loginVerifyCmd = &cobra.Command{
	Use:   "verify <phone> <code>",
	Short: "Verify the one-time code and store the session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		phone, code := args[0], args[1]
		client, cfg, err := getClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		result, err := client.Auth.VerifyOTP(ctx, phone, code)
		if err != nil {
			return errors.Wrap(err, "verify OTP")
		}
		tokens := result.Tokens()
		if tokens.Access == "" {
			if result.Message != "" {
				return errors.Errorf("verification failed: %s", result.Message)
			}
			return errors.New("verification failed: no access token returned")
		}

		cfg.Auth.AccessToken = tokens.Access
		cfg.Auth.RefreshToken = tokens.Refresh
		cfg.Auth.Phone = phone
		if err := saveConfig(cfg); err != nil {
			return errors.Wrap(err, "failed to save config")
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Login successful!")
		fmt.Fprintf(out, "  Phone: %s\n", phone)
		if result.Data.RequiresPhoneLink {
			fmt.Fprintln(out, "  (this account still needs a linked phone number)")
		}
		if n := restorableDrafts(); n > 0 {
			fmt.Fprintf(out, "  %d saved draft(s); see 'ahadi drafts list'.\n", n)
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Invalidate the session and forget the stored tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := getClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		if cfg.Auth.RefreshToken != "" {
			if err := client.Auth.Logout(ctx, cfg.Auth.RefreshToken); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: server logout failed: %v\n", err)
			}
		}
		cfg.Auth = ConfigAuth{}
		if err := saveConfig(cfg); err != nil {
			return errors.Wrap(err, "failed to save config")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

func restorableDrafts() int {
	store, err := formStore()
	if err != nil {
		return 0
	}
	ids, err := store.List()
	if err != nil {
		return 0
	}
	return len(ids)
}
