package cli

import (
	"github.com/spf13/cobra"

	"github.com/eleven-am/chrono/internal/schema"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long:  `Creates the users, tasks, clients and time_entries tables along with their constraints. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := schema.Apply(cmd.Context(), s.DB()); err != nil {
			return err
		}

		cmd.Println("Schema applied.")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the default admin user and initial reference data",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := schema.Seed(cmd.Context(), s.DB(), cfg.Admin.Username, cfg.Admin.Password); err != nil {
			return err
		}

		cmd.Println("Seed data applied.")
		return nil
	},
}
