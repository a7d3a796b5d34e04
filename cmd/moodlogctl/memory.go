package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	requireUser(memoryListCmd)
	requireUser(memoryClearCmd)
	memoryCmd.AddCommand(memoryListCmd, memoryClearCmd)
	rootCmd.AddCommand(memoryCmd)
}

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect or clear a user's long-term memory",
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print a user's memories, numbered",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := commandContext()
		defer cancel()

		u, err := st.GetUser(ctx, userFlag)
		if err != nil {
			return fmt.Errorf("user %q: %w", userFlag, err)
		}
		if len(u.Memory) == 0 {
			fmt.Println("No memories yet")
			return nil
		}
		for i, m := range u.Memory {
			fmt.Printf("%3d. %s\n", i+1, m)
		}
		return nil
	},
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all of a user's memories",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := commandContext()
		defer cancel()

		if err := st.SetMemory(ctx, userFlag, []string{}); err != nil {
			return fmt.Errorf("user %q: %w", userFlag, err)
		}
		fmt.Printf("Cleared memory for %s\n", userFlag)
		return nil
	},
}
