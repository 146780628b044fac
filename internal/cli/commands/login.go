package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vayu-prana/vayu/internal/cli/auth"
	"github.com/vayu-prana/vayu/internal/localstore"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the Vayu backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set VAYU_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set VAYU_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(email, password string) error {
	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("VAYU_EMAIL")
	}
	if password == "" {
		password = os.Getenv("VAYU_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or VAYU_EMAIL env var)")
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		// Check if stdin is a terminal (not piped)
		if term.IsTerminal(int(syscall.Stdin)) {
			fmt.Print("Password: ")
			bytePassword, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = string(bytePassword)
			fmt.Println() // New line after password input
		} else {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or VAYU_PASSWORD env var)")
		}
	}

	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	fmt.Printf("Logging in to %s...\n", e.cfg.Supabase.URL)

	sess, err := e.store.SignInWithPassword(context.Background(), email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if sess.User == nil {
		return fmt.Errorf("login returned no user")
	}

	// Cache the access token in the shared session file and keep the refresh
	// token in the OS keyring
	if err := e.local.Set(localstore.AccessTokenKey, sess.AccessToken); err != nil {
		return fmt.Errorf("failed to cache access token: %w", err)
	}
	if sess.RefreshToken != "" {
		if err := auth.SaveToken(e.cfg.Supabase.URL, sess.RefreshToken); err != nil {
			return fmt.Errorf("failed to save authentication token: %w", err)
		}
	}

	fmt.Println("✓ Login successful!")
	fmt.Printf("  User: %s\n", sess.User.Email)
	if sess.User.Email == e.cfg.Site.AdminEmail {
		fmt.Println("  Role: Admin")
	}

	return nil
}
