package migrate

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/racelink/log"
	"github.com/mpapenbr/racelink/pkg/config"
	dbmigrate "github.com/mpapenbr/racelink/pkg/db/migrate"
	"github.com/mpapenbr/racelink/pkg/utils"
)

var statusOnly bool

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration of the results schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startMigration()
		},
	}
	cmd.Flags().BoolVar(&statusOnly,
		"status",
		false,
		"only print the current schema version")
	return cmd
}

func startMigration() error {
	if config.DB == "" {
		return errors.New("no database configured (--db)")
	}
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	if postgresAddr := utils.ExtractFromDBURL(config.DB); postgresAddr != "" {
		if err = utils.WaitForTCP(postgresAddr, timeout); err != nil {
			log.Fatal("database not ready", log.ErrorField(err))
		}
	}

	if !statusOnly {
		if err := dbmigrate.MigrateDb(config.DB); err != nil {
			return err
		}
	}
	version, dirty, err := dbmigrate.Version(config.DB)
	if err != nil {
		return err
	}
	log.Info("Schema version", log.Uint("version", version), log.Bool("dirty", dirty))
	return nil
}
