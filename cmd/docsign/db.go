package main

import (
	"github.com/spf13/cobra"

	"docsign/internal/config"
)

func dbCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "db",
		Short: "db commands",
	}
	command.AddCommand(migrateCmd())
	return command
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the documents table and indexes if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log := newLogger(cfg)
			db, _, err := openRegistry(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			return db.Close()
		},
	}
}
