package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dsctickets/dtmigrate/dtmigrate"
	"github.com/dsctickets/dtmigrate/dtmigrate/database"
	"github.com/dsctickets/dtmigrate/dtmigrate/logger"
	"github.com/dsctickets/dtmigrate/dtmigrate/migration"
)

var (
	flagConfig   string
	flagSQLite   string
	flagV3       string
	flagV4       string
	flagPrefix   string
	flagKey      string
	flagUseCopy  bool
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "dtmigrate",
	Short: "Migrate Discord Tickets v3 data to the v4 schema",
	Long: `dtmigrate walks a v3 ticket database in dependency order
(guilds, categories, tickets with their archived channels, roles,
users and messages) and writes the redesigned v4 schema.

Record-level failures are logged and skipped; the run always
continues to the next record and exits zero.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&flagSQLite, "sqlite", "s", "", "v3 sqlite database file")
	flags.StringVar(&flagV3, "v3", "", "v3 database connection string")
	flags.StringVar(&flagV4, "v4", "", "v4 database connection string")
	flags.StringVarP(&flagPrefix, "prefix", "p", "", "v3 database table prefix")
	flags.StringVarP(&flagKey, "key", "k", "", "v4 at-rest encryption key")
	flags.StringVarP(&flagConfig, "config", "c", "", "TOML config file")
	flags.BoolVar(&flagUseCopy, "use-copy", false, "use COPY for archived message inserts")
	flags.StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
}

func run(cmd *cobra.Command, _ []string) error {
	cfg := &dtmigrate.Config{}
	if flagConfig != "" {
		loaded, err := dtmigrate.LoadConfig(flagConfig)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// Flags win over the config file.
	if flagSQLite != "" {
		cfg.Source.SQLitePath = flagSQLite
	}
	if flagV3 != "" {
		cfg.Source.URL = flagV3
	}
	if flagV4 != "" {
		cfg.Target.URL = flagV4
	}
	if flagPrefix != "" {
		cfg.Source.TablePrefix = flagPrefix
	}
	if flagKey != "" {
		cfg.Target.EncryptionKey = flagKey
	}
	if flagUseCopy {
		cfg.UseCopy = true
	}
	if flagLogLevel != "" {
		if err := cfg.Log.Level.UnmarshalText([]byte(flagLogLevel)); err != nil {
			return err
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Setup(cfg.Log.Level)
	ctx := cmd.Context()

	source, err := database.OpenSource(ctx, cfg.Source)
	if err != nil {
		return err
	}
	defer source.Close()

	target, err := database.OpenTarget(ctx, cfg.Target)
	if err != nil {
		return err
	}
	defer target.Close()

	if err := target.InitSchema(ctx); err != nil {
		return err
	}

	migrator := migration.NewMigrator(source, target)
	migrator.SetUseCopy(cfg.UseCopy)
	migrator.SetReportDir(cfg.Report.Dir)

	// Record-level failures are contained inside MigrateAll; an error here
	// means the run itself could not proceed.
	return migrator.MigrateAll(ctx)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("Migration aborted", "error", err)
		os.Exit(1)
	}
}
