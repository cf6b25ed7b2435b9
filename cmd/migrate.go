package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/BuildFund/New-Main-sub000/config"
	"github.com/BuildFund/New-Main-sub000/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Apply the schema migrations and exit`,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return err
	}

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	database, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}

	if err := db.Migrate(database); err != nil {
		return err
	}

	log.Info().Msg("Migrations applied")
	return nil
}
