package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vayu-prana/vayu/internal/cli/auth"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout()
		},
	}
}

func runLogout() error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	ctx := context.Background()

	// Resolve whatever session exists so revocation has a token to work with;
	// a failure here just means there is nothing to revoke remotely.
	e.coordinator.Start(ctx, "")

	// Local artifacts are cleared first, backend revocation is best effort
	e.coordinator.SignOut(ctx)

	if err := auth.DeleteToken(e.cfg.Supabase.URL); err != nil {
		return fmt.Errorf("failed to remove stored credentials: %w", err)
	}

	fmt.Println("✓ Logged out")
	return nil
}
