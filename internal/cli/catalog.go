package cli

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/treefix50/reelshelf/internal/catalog"
	"github.com/treefix50/reelshelf/internal/controller"
)

func newListCommand(st *state) *cobra.Command {
	var query, view string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := st.container(cmd)
			if err != nil {
				return err
			}
			defer c.Close(cmd.Context())

			var entries []catalog.Entry
			if catalog.ParseView(view) == catalog.ViewHome {
				entries = c.Controller.Home(query)
			} else {
				entries = c.Controller.Library(query)
			}
			return st.writer(cmd).Entries(entries)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "only entries whose title, description or genre contains this")
	cmd.Flags().StringVar(&view, "view", "library", "home (first 12 entries) or library")
	return cmd
}

func newAddCommand(st *state) *cobra.Command {
	var u controller.Upload

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Add a video file to the catalog",
		Long: `Add a video file to the catalog.

The media reference of the new entry is only valid while this process runs.
Start "reelshelf serve" and relink the entry to play it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := st.container(cmd)
			if err != nil {
				return err
			}
			defer c.Close(cmd.Context())

			u.Path = args[0]
			task := c.Controller.StartUpload(cmd.Context(), u)

			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
		wait:
			for {
				select {
				case <-task.Done():
					break wait
				case <-ticker.C:
					fmt.Fprintln(cmd.ErrOrStderr(), "Reading video metadata...")
				}
			}

			entry, err := task.Result()
			if err != nil {
				return err
			}
			return st.writer(cmd).Entry(entry)
		},
	}
	cmd.Flags().StringVar(&u.Title, "title", "", "title (required)")
	cmd.Flags().StringVar(&u.Description, "description", "", "description")
	cmd.Flags().StringSliceVar(&u.Genres, "genre", nil, "genre, may be repeated (see reelshelf genres)")
	cmd.Flags().Float64Var(&u.Rating, "rating", catalog.DefaultRating, "rating from 1 to 10 in steps of 0.5")
	return cmd
}

func newDeleteCommand(st *state) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a catalog entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := st.container(cmd)
			if err != nil {
				return err
			}
			defer c.Close(cmd.Context())

			entry, err := c.Controller.Get(args[0])
			if err != nil {
				return fmt.Errorf("%w: %s", err, args[0])
			}

			if !yes {
				fmt.Fprintf(cmd.OutOrStdout(), "Delete %q? [y/N]: ", entry.Title)
				response, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && response == "" {
					return fmt.Errorf("failed to read response: %w", err)
				}
				response = strings.TrimSpace(strings.ToLower(response))
				if response != "y" && response != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}

			c.Controller.DeleteEntry(cmd.Context(), entry.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", entry.Title)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newRelinkCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "relink <id> <file>",
		Short: "Point an entry at its video file again",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := st.container(cmd)
			if err != nil {
				return err
			}
			defer c.Close(cmd.Context())

			entry, err := c.Controller.Relink(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return st.writer(cmd).Entry(entry)
		},
	}
}

func newGenresCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "genres",
		Short: "List the genres entries can be tagged with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if st.output != "table" {
				return st.writer(cmd).Write(catalog.Genres)
			}
			for _, g := range catalog.Genres {
				fmt.Fprintln(cmd.OutOrStdout(), g)
			}
			return nil
		},
	}
}
