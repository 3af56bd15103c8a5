package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/wizzomafizzo/setdeck/internal/catalog"
	"github.com/wizzomafizzo/setdeck/internal/config"
	"github.com/wizzomafizzo/setdeck/internal/controls"
	"github.com/wizzomafizzo/setdeck/internal/database"
	"github.com/wizzomafizzo/setdeck/internal/document"
	"github.com/wizzomafizzo/setdeck/internal/editor"
	"github.com/wizzomafizzo/setdeck/internal/logging"
	"github.com/wizzomafizzo/setdeck/internal/prompt"
	"github.com/wizzomafizzo/setdeck/internal/storage"
	"github.com/wizzomafizzo/setdeck/internal/vault"
)

// deps are the outside resources commands use. Tests swap them out.
type deps struct {
	fs          afero.Fs
	logWriter   io.Writer
	dbDSN       string
	newPrompter func(complete func(string) []string) prompt.Prompter
}

func defaultDeps() *deps {
	return &deps{
		fs: afero.NewOsFs(),
		newPrompter: func(complete func(string) []string) prompt.Prompter {
			return prompt.NewLinerPrompter(complete)
		},
	}
}

// createNewRootCommand creates the main root command that shows help by default.
func createNewRootCommand() *cobra.Command {
	return newRootCommand(defaultDeps())
}

func newRootCommand(d *deps) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "setdeck",
		Short:         "Edit published controls of .setting macros and manage preset bundles",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file")

	rootCmd.AddCommand(
		createInspectCommand(d),
		createControlsCommand(d),
		createGraphCommand(d),
		createExportCommand(d),
		createEditCommand(d),
		createPresetsCommand(d),
		createValidateCommand(d),
	)

	return rootCmd
}

// env is what a command run needs once config and logging are set up.
type env struct {
	ctx     context.Context
	deps    *deps
	cfg     *config.Config
	storage *storage.Manager
}

func (d *deps) setup(cmd *cobra.Command) (*env, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	sm := storage.New(d.fs)
	if configPath == "" {
		configPath = sm.GetConfigPath()
	}

	cfg, err := config.Load(d.fs, configPath)
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, err := logging.New(parent, d.fs, logging.Config{
		Writer:     d.logWriter,
		Command:    cmd.CommandPath(),
		Level:      level,
		MaxSizeMB:  cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAge,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logging.Get(ctx).Debug().Str("config", configPath).Msg("configuration loaded")

	return &env{ctx: ctx, deps: d, cfg: cfg, storage: sm}, nil
}

func (e *env) deriver() (*controls.Deriver, error) {
	cat := catalog.Builtin()
	if e.cfg.Catalog != "" {
		loaded, err := catalog.Load(e.deps.fs, e.cfg.Catalog)
		if err != nil {
			return nil, err
		}
		cat = loaded
	}
	return controls.New(cat, e.cfg.UtilityTypes), nil
}

func (e *env) openSession(path string) (*editor.Session, error) {
	deriver, err := e.deriver()
	if err != nil {
		return nil, err
	}
	return editor.Open(e.ctx, e.deps.fs, path, document.Options{
		Deriver:     deriver,
		DefaultPage: e.cfg.DefaultPage,
	})
}

// openVault returns the archive service and a closer for its database.
func (e *env) openVault() (*vault.Service, func() error, error) {
	dsn := e.deps.dbDSN
	if dsn == "" {
		path, err := e.storage.GetDatabasePath()
		if err != nil {
			return nil, nil, err
		}
		dsn = path
	}
	manager, err := database.NewManager(e.ctx, dsn)
	if err != nil {
		return nil, nil, err
	}

	dir, err := e.storage.GetVaultDir(e.cfg.Vault.Dir)
	if err != nil {
		_ = manager.Close()
		return nil, nil, err
	}
	backoff, err := e.cfg.Vault.BackoffDuration()
	if err != nil {
		_ = manager.Close()
		return nil, nil, err
	}

	v := vault.New(e.deps.fs, dir, vault.NewStore(manager.DB()), vault.Options{
		Attempts: e.cfg.Vault.Attempts,
		Backoff:  backoff,
	})
	return vault.NewService(v), manager.Close, nil
}
