package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the currently authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami()
		},
	}
}

func runWhoami() error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	user, err := e.resolveUser(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("User:  %s\n", user.Email)
	fmt.Printf("ID:    %s\n", user.ID)
	if user.Email == e.cfg.Site.AdminEmail {
		fmt.Println("Role:  Admin")
	}

	return nil
}
