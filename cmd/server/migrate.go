package main

import (
	"github.com/spf13/cobra"
)

func migrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrates the configured store to the latest schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, closeStore, err := openStore(cmd.Context(), a.cfg, true)
			if err != nil {
				return err
			}
			closeStore()
			return nil
		},
	}
}
