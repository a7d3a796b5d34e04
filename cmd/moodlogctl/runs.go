package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AnshRaj112/moodlog-backend/internal/config"
	"github.com/AnshRaj112/moodlog-backend/internal/database"
	"github.com/AnshRaj112/moodlog-backend/internal/services"
)

var runsLimit int64

func init() {
	runsCmd.Flags().StringVar(&userFlag, "user", "", "only runs for this user id")
	runsCmd.Flags().Int64Var(&runsLimit, "limit", 20, "number of runs to show")
	rootCmd.AddCommand(runsCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs from MongoDB",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if cfg.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is not set; the run log is disabled")
		}
		client, db, err := database.ConnectMongo(cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return err
		}
		defer database.DisconnectMongo(client)

		ctx, cancel := commandContext()
		defer cancel()

		runs, err := services.NewMongoRunLog(db).Recent(ctx, userFlag, runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded")
			return nil
		}

		fmt.Printf("%-20s %-36s %-10s %-14s %-7s %s\n", "CREATED", "USER", "STATUS", "STAGE", "MS", "DETAIL")
		fmt.Println(strings.Repeat("─", 110))
		for _, r := range runs {
			detail := fmt.Sprintf("entry=%d mood=%s memories=%d", r.EntryID, r.MoodScore, len(r.NewMemories))
			if r.Error != "" {
				detail = r.Error
			}
			if r.SafetyFlagged {
				detail += " [safety]"
			}
			fmt.Printf("%-20s %-36s %-10s %-14s %-7d %s\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				r.UserID,
				r.Status,
				r.FailedStage,
				r.TotalMillis,
				detail,
			)
		}
		return nil
	},
}
