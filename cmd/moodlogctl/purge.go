package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var purgeYes bool

func init() {
	requireUser(purgeCmd)
	purgeCmd.Flags().BoolVar(&purgeYes, "yes", false, "confirm deletion")
	rootCmd.AddCommand(purgeCmd)
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every journal entry of a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !purgeYes {
			return fmt.Errorf("refusing to purge entries for %s without --yes", userFlag)
		}

		st, db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := commandContext()
		defer cancel()

		n, err := st.DeleteEntriesByUser(ctx, userFlag)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d entries for %s\n", n, userFlag)
		return nil
	},
}
