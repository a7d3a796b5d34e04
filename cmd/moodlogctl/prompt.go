package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnshRaj112/moodlog-backend/internal/services"
)

var promptTone string

func init() {
	requireUser(promptCmd)
	promptCmd.Flags().StringVar(&promptTone, "tone", string(services.ToneChat), "vent, chat, unwind or reflect")
	rootCmd.AddCommand(promptCmd)
}

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the voice agent prompt a user would get",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := commandContext()
		defer cancel()

		// Prompt composition needs no completion client or cache.
		journal := services.NewJournalService(st, nil, nil, services.NopContextCache{}, services.NopRunLog{})
		_, prompt, err := journal.ComposePromptFor(ctx, userFlag, promptTone)
		if err != nil {
			return err
		}
		fmt.Println(prompt)
		return nil
	},
}
