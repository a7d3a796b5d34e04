package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
	"github.com/AnshRaj112/moodlog-backend/internal/services"
)

var (
	seedEmail string
	seedFile  string
)

// seedEntry is one pre-analysed entry in a seed file.
type seedEntry struct {
	RawEntry          string    `json:"rawEntry"`
	SummarizedEntry   string    `json:"summarizedEntry"`
	Title             string    `json:"title"`
	MoodScore         float64   `json:"moodScore"`
	SignificantEvents []string  `json:"significantEvents"`
	CreatedAt         time.Time `json:"createdAt"`
}

func init() {
	requireUser(seedCmd)
	seedCmd.Flags().StringVar(&seedEmail, "email", "", "email for the user row if it does not exist yet")
	seedCmd.Flags().StringVar(&seedFile, "file", "", "JSON array of entries")
	_ = seedCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(seedCmd)
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert pre-analysed journal entries for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(seedFile)
		if err != nil {
			return err
		}
		var entries []seedEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("parse %s: %w", seedFile, err)
		}
		for i, e := range entries {
			if err := validateSeedEntry(e); err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
		}

		st, db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := commandContext()
		defer cancel()

		if _, err := st.UpsertUser(ctx, userFlag, seedEmail); err != nil {
			return err
		}
		for _, e := range entries {
			entry, err := st.InsertEntry(ctx, services.NewEntry{
				UserID:            userFlag,
				RawEntry:          e.RawEntry,
				SummarizedEntry:   e.SummarizedEntry,
				Title:             e.Title,
				MoodScore:         e.MoodScore,
				SignificantEvents: e.SignificantEvents,
				CreatedAt:         e.CreatedAt,
			})
			if err != nil {
				return err
			}
			fmt.Printf("✅ #%d %s  %s  %s\n", entry.ID, entry.CreatedAt.Format("2006-01-02"), entry.MoodScore, entry.Title)
		}
		fmt.Printf("Seeded %d entries for %s\n", len(entries), userFlag)
		return nil
	},
}

func validateSeedEntry(e seedEntry) error {
	switch {
	case e.RawEntry == "":
		return fmt.Errorf("rawEntry is required")
	case e.Title == "" || e.SummarizedEntry == "":
		return fmt.Errorf("title and summarizedEntry are required")
	case math.IsNaN(e.MoodScore) || e.MoodScore < 0 || e.MoodScore > 100:
		return fmt.Errorf("moodScore %v outside [0,100]", e.MoodScore)
	case len(e.SignificantEvents) > models.MaxSignificantEvents:
		return fmt.Errorf("at most %d significant events", models.MaxSignificantEvents)
	}
	return nil
}
