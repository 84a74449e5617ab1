package cli

import (
	"github.com/spf13/cobra"

	"github.com/eleven-am/chrono/internal/config"
	"github.com/eleven-am/chrono/internal/store"
)

// Global configuration variables
var (
	configFile string
	cfg        *config.Config
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chrono",
		Short: "Chrono - time tracking backend",
		Long: `Chrono tracks working time against (client, task) pairs.

Users run one timer at a time; administrators manage reference data and
pull aggregate reports over daily, weekly, monthly or custom windows.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configFile)
			return err
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: chrono.yaml)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(reportCmd)

	return rootCmd
}

func openStore() (*store.Store, error) {
	return store.New(cfg.DSN(), cfg.Database.MaxConns)
}
