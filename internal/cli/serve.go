package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/treefix50/reelshelf/internal/config"
	"github.com/treefix50/reelshelf/internal/logger"
)

func newServeCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog API and media",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := st.container(cmd)
			if err != nil {
				return err
			}
			defer c.Close(context.Background())

			srv, err := c.NewServer()
			if err != nil {
				return err
			}

			if st.loader.Watch(func(cfg *config.Config) {
				if err := logger.SetLevel(cfg.Log.Level); err != nil {
					st.log.WithError(err).Warn("Ignoring log level from config")
					return
				}
				st.log.WithField("level", cfg.Log.Level).Info("Log level changed")
			}, func(err error) {
				st.log.WithError(err).Warn("Ignoring invalid config change")
			}) {
				st.log.WithField("file", st.loader.FileUsed()).Info("Watching config file")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()
			st.log.WithField("addr", st.cfg.Server.Addr).Info("reelshelf listening")

			select {
			case <-ctx.Done():
				st.log.Info("Shutting down")
				return srv.Close()
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}
}
