package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BarakahPay/bcwallet/pkg/wallet"
)

type registerOptions struct {
	Email    string
	Password string
	FullName string
	CNIC     string
	Code     string
}

func newRegisterCommand(cfg *runtimeConfig) *cobra.Command {
	opts := &registerOptions{}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Verify an email address and create an account",
		RunE: withApp(cfg, func(cmd *cobra.Command, args []string, application *app) error {
			if opts.Email == "" || opts.Password == "" || opts.FullName == "" || opts.CNIC == "" {
				return fmt.Errorf("--%s, --%s, --%s, and --%s are required", flagEmail, flagPassword, flagFullName, flagCNIC)
			}
			ctx := cmd.Context()

			challenge, err := application.handshake.Issue(ctx, opts.Email)
			if err != nil {
				return err
			}
			code := opts.Code
			if code == "" {
				if challenge.DevCode != "" {
					cmd.Printf("Verification code (dev mode): %s\n", challenge.DevCode)
				} else {
					cmd.Printf("A verification code was sent to %s\n", challenge.Email)
				}
				entered, err := readLine(cmd, "Enter verification code: ")
				if err != nil {
					return err
				}
				code = entered
			}

			verified, err := application.handshake.Verify(ctx, opts.Email, code)
			if err != nil {
				return err
			}
			account := wallet.NewAccount{
				Email:    opts.Email,
				Password: opts.Password,
				FullName: opts.FullName,
				CNIC:     opts.CNIC,
			}
			session, recoveryKey, err := application.sessions.Register(ctx, account, verified)
			if err != nil {
				return err
			}

			cmd.Printf("Registered %s\n", session.Profile.Email)
			cmd.Printf("Wallet ID: %s\n", session.Profile.WalletID)
			cmd.Println("Recovery key (shown once, store it safely):")
			cmd.Println(recoveryKey)
			return nil
		}),
	}
	cmd.Flags().StringVar(&opts.Email, flagEmail, "", "login email address")
	cmd.Flags().StringVar(&opts.Password, flagPassword, "", "account password")
	cmd.Flags().StringVar(&opts.FullName, flagFullName, "", "account holder's full name")
	cmd.Flags().StringVar(&opts.CNIC, flagCNIC, "", "national identity number (12345-1234567-1)")
	cmd.Flags().StringVar(&opts.Code, flagCode, "", "verification code, if already received")
	return cmd
}

func newLoginCommand(cfg *runtimeConfig) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and persist the session",
		RunE: withApp(cfg, func(cmd *cobra.Command, args []string, application *app) error {
			if email == "" || password == "" {
				return fmt.Errorf("--%s and --%s are required", flagEmail, flagPassword)
			}
			session, err := application.sessions.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			cmd.Printf("Logged in as %s\n", session.Profile.Email)
			cmd.Printf("Wallet ID: %s\n", session.Profile.WalletID)
			if _, held := application.sessions.RecoveryKey(); !held {
				cmd.Println("Note: no recovery key is stored on this device; transfers require the registering device.")
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, flagEmail, "", "login email address")
	cmd.Flags().StringVar(&password, flagPassword, "", "account password")
	return cmd
}

func newLogoutCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the persisted session and recovery key",
		RunE: withApp(cfg, func(cmd *cobra.Command, args []string, application *app) error {
			if err := application.sessions.Logout(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("Logged out.")
			return nil
		}),
	}
}

func newWhoamiCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated identity",
		RunE: withApp(cfg, func(cmd *cobra.Command, args []string, application *app) error {
			session, err := application.requireSession(cmd.Context())
			if err != nil {
				return err
			}
			printProfile(cmd, session.Profile)
			return nil
		}),
	}
}

func newProfileCommand(cfg *runtimeConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the account profile",
	}
	cmd.AddCommand(newProfileShowCommand(cfg), newProfileUpdateCommand(cfg))
	return cmd
}

func newProfileShowCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Fetch and show the current profile",
		RunE: withApp(cfg, func(cmd *cobra.Command, args []string, application *app) error {
			if _, err := application.requireSession(cmd.Context()); err != nil {
				return err
			}
			profile, err := application.sessions.RefreshProfile(cmd.Context())
			if err != nil {
				return err
			}
			printProfile(cmd, profile)
			return nil
		}),
	}
}

func newProfileUpdateCommand(cfg *runtimeConfig) *cobra.Command {
	var fullName, cnic string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Edit the profile; empty fields are left unchanged",
		RunE: withApp(cfg, func(cmd *cobra.Command, args []string, application *app) error {
			if _, err := application.requireSession(cmd.Context()); err != nil {
				return err
			}
			profile, err := application.sessions.UpdateProfile(cmd.Context(), wallet.ProfileUpdate{FullName: fullName, CNIC: cnic})
			if err != nil {
				return err
			}
			cmd.Println("Profile updated.")
			printProfile(cmd, profile)
			return nil
		}),
	}
	cmd.Flags().StringVar(&fullName, flagFullName, "", "new full name")
	cmd.Flags().StringVar(&cnic, flagCNIC, "", "new national identity number")
	return cmd
}

func printProfile(cmd *cobra.Command, profile wallet.Profile) {
	cmd.Printf("Wallet ID:     %s\n", profile.WalletID)
	cmd.Printf("Full name:     %s\n", profile.FullName)
	cmd.Printf("Email:         %s\n", profile.Email)
	cmd.Printf("CNIC:          %s\n", profile.CNIC)
	cmd.Printf("Beneficiaries: %d\n", len(profile.Beneficiaries))
}

func readLine(cmd *cobra.Command, prompt string) (string, error) {
	cmd.Print(prompt)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("no input")
	}
	return strings.TrimSpace(scanner.Text()), nil
}
