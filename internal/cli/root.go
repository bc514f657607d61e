// Package cli holds the reelshelf cobra commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/treefix50/reelshelf/internal/app"
	"github.com/treefix50/reelshelf/internal/config"
	"github.com/treefix50/reelshelf/internal/logger"
)

// state is shared by every command of one invocation.
type state struct {
	cfgFile string
	output  string
	verbose bool

	loader *config.Loader
	cfg    *config.Config
	log    *logrus.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	st := &state{}

	root := &cobra.Command{
		Use:           "reelshelf",
		Short:         "reelshelf is a personal video catalog",
		Long:          `reelshelf keeps a catalog of your own video files, remembers where you stopped watching and serves a small HTTP API for a browser page.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&st.cfgFile, "config", "", "config file (default is $HOME/.config/reelshelf/config.yaml)")
	flags.StringVarP(&st.output, "output", "o", "table", "output format (table, json, yaml)")
	flags.BoolVarP(&st.verbose, "verbose", "v", false, "log at the configured level instead of warnings only")
	flags.String("storage-backend", "", "storage backend (sqlite, file, redis, postgres)")
	flags.String("storage-path", "", "sqlite database file")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCommand(st),
		newListCommand(st),
		newAddCommand(st),
		newDeleteCommand(st),
		newRelinkCommand(st),
		newGenresCommand(st),
		newConfigCommand(st),
		newDBCommand(st),
	)
	return root
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (st *state) load(cmd *cobra.Command) error {
	st.loader = config.NewLoader(st.cfgFile)
	if err := st.loader.BindFlags(cmd.Root().PersistentFlags(), "storage.backend", "storage.path", "log.level"); err != nil {
		return err
	}

	cfg, err := st.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	st.cfg = cfg

	if err := logger.Init(cfg.Log); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	st.log = logger.Get()
	if cmd.Name() != "serve" && !st.verbose && st.log.GetLevel() > logrus.WarnLevel {
		// one-shot commands talk to the user through stdout
		st.log.SetLevel(logrus.WarnLevel)
	}
	return nil
}

func (st *state) container(cmd *cobra.Command) (*app.Container, error) {
	return app.New(cmd.Context(), st.cfg, st.log)
}

func (st *state) writer(cmd *cobra.Command) *outputWriter {
	return &outputWriter{format: st.output, out: cmd.OutOrStdout()}
}
