package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/wedsync/guestlist/config"
	"github.com/wedsync/guestlist/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("cannot load a config %v", err.Error())
		}
		if cfg.DB.DSN == "" {
			return fmt.Errorf("mysql dsn is not set")
		}
		db, err := sqlx.Open("mysql", cfg.DB.DSN)
		if err != nil {
			return fmt.Errorf("couldn't open database: %w", err)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()
		return store.MigrateWithContext(ctx, db.DB)
	},
}
