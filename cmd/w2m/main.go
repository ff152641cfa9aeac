package main

import (
	"strings"

	"github.com/alecthomas/kong"

	"github.com/dalmaki/when2meet/internal/cli"
	"github.com/dalmaki/when2meet/internal/cli/backups"
	"github.com/dalmaki/when2meet/internal/cli/participants"
	"github.com/dalmaki/when2meet/internal/cli/settings"
	"github.com/dalmaki/when2meet/internal/cli/sheets"
	"github.com/dalmaki/when2meet/internal/cli/system"
	"github.com/dalmaki/when2meet/internal/config"
	"github.com/dalmaki/when2meet/internal/constants"
	"github.com/dalmaki/when2meet/internal/errors"
	"github.com/dalmaki/when2meet/internal/logger"
	"github.com/dalmaki/when2meet/internal/storage"
)

var CLI struct {
	Version   kong.VersionFlag
	ConfigDir string `help:"Directory holding config.yaml, logs and the default database." default:"${config_dir}" name:"config-dir"`
	Database  string `help:"Database path or PostgreSQL connection string. For PostgreSQL, keep the password out of the string: use 'w2m keyring set', ${env_conn} or .pgpass." short:"d"`
	Debug     bool   `help:"Enable debug logging to stderr."`
	LogLevel  string `help:"Log level (debug, info, warn, error)." name:"log-level"`
	Emit      bool   `help:"Print the participant's full sheet after every change."`

	Init        system.InitCmd             `cmd:"" help:"Initialize w2m storage."`
	Participant participants.ParticipantCmd `cmd:"" help:"Manage participants." aliases:"p"`
	Mark        sheets.MarkCmd             `cmd:"" help:"Mark a range of a day as available."`
	Unmark      sheets.UnmarkCmd           `cmd:"" help:"Remove a range of a day from a sheet."`
	Clear       sheets.ClearCmd            `cmd:"" help:"Clear a day, or the whole sheet."`
	Show        sheets.ShowCmd             `cmd:"" help:"Show sheets." default:"1"`
	Overlap     sheets.OverlapCmd          `cmd:"" help:"Show when participants are available together."`
	Export      sheets.ExportCmd           `cmd:"" help:"Export sheets as JSON."`
	Import      sheets.ImportCmd           `cmd:"" help:"Replace a sheet from JSON."`
	Settings    settings.SettingsCmd       `cmd:"" help:"Manage the grid axis."`
	Validate    system.ValidateCmd         `cmd:"" help:"Validate stored sheets for conflicts."`
	Migrate     system.MigrateCmd          `cmd:"" help:"Run database migrations."`
	Doctor      system.DoctorCmd           `cmd:"" help:"Run health checks and diagnostics."`
	Backup      struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
	Keyring system.KeyringCmd `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Shared weekly availability grid"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":    constants.Version,
			"config_dir": constants.DefaultConfigDir,
			"env_conn":   constants.EnvDBConnection,
		},
	)

	configDir, err := cli.ExpandPath(CLI.ConfigDir)
	if err != nil {
		errors.Fatal(err)
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		errors.Fatal(err)
	}
	applyFlags(&cfg)

	if err := logger.Init(logger.Config{Debug: cfg.Debug, Level: cfg.LogLevel, ConfigDir: configDir}); err != nil {
		errors.Fatal(err)
	}

	command := strings.Fields(kctx.Command())[0]
	logger.Debug("Starting", "command", kctx.Command(), "database", cfg.Database)

	var store storage.Provider
	if command != "keyring" {
		store, err = cli.OpenStore(cfg.Database)
		if err != nil {
			errors.Fatal(err)
		}
	}

	appCtx := cli.NewContext(store, cfg, configDir)

	// init creates the store and doctor reports on loading it
	if store != nil && command != "init" && command != "doctor" {
		if err := store.Load(); err != nil {
			errors.Fatal(err)
		}
	}

	err = kctx.Run(appCtx)
	if store != nil {
		if cerr := store.Close(); cerr != nil {
			logger.Warn("Failed to close store", "error", cerr)
		}
	}
	errors.Fatal(err)
}

// applyFlags lets explicit flags win over config.yaml and the environment
func applyFlags(cfg *config.Config) {
	if CLI.Database != "" {
		cfg.Database = CLI.Database
	}
	if CLI.Debug {
		cfg.Debug = true
	}
	if CLI.LogLevel != "" {
		cfg.LogLevel = CLI.LogLevel
	}
	if CLI.Emit {
		cfg.Emit = true
	}
}
