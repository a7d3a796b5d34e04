package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/AnshRaj112/moodlog-backend/internal/config"
	"github.com/AnshRaj112/moodlog-backend/internal/database"
	"github.com/AnshRaj112/moodlog-backend/internal/services"
)

var rootCmd = &cobra.Command{
	Use:   "moodlogctl",
	Short: "Admin tooling for the moodlog backend",
	Long: `moodlogctl works directly against the configured database. It seeds and purges
journal entries, inspects and clears user memory, prints the voice agent prompt for a
user and lists recent pipeline runs.

Connection settings come from the same environment (and .env file) as the server.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

var userFlag string

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore opens the configured SQL database. The caller closes the returned *sql.DB.
func openStore() (*services.Store, *sql.DB, error) {
	cfg := config.Load()
	db, dialect, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN())
	if err != nil {
		return nil, nil, err
	}
	st, err := services.NewStore(db, dialect)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return st, db, nil
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Minute)
}

func requireUser(cmd *cobra.Command) {
	cmd.Flags().StringVar(&userFlag, "user", "", "user id")
	_ = cmd.MarkFlagRequired("user")
}
