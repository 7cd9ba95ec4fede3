package cli

import (
	"context"
	"fmt"
	"log"

	"ebcoins-quiz-service/internal/app"
	"ebcoins-quiz-service/internal/config"
	"github.com/spf13/cobra"
)

// NewCreateAdminCmd seeds an administrator account.
func NewCreateAdminCmd(configPath *string) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return createAdmin(cmd.Context(), *configPath, name, email, password)
		},
	}
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func createAdmin(ctx context.Context, configPath, name, email, password string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	admin := app.NewAdminService(st.users, st.questions, st.locker, nil, cfg.Leaderboard.TopN)
	profile, err := admin.Bootstrap(ctx, name, email, password)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Printf("admin %s created", profile.Email)
	return nil
}
