package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/treefix50/reelshelf/internal/storage"
)

var errNotSQLite = errors.New("db commands need storage.backend sqlite")

func newDBCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Maintain the sqlite database",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Run an integrity check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if st.cfg.Storage.Backend != "sqlite" {
				return errNotSQLite
			}
			db, err := storage.Open(st.cfg.Storage.Path, storage.Options{ReadOnly: true})
			if err != nil {
				return err
			}
			defer db.Close()

			results, err := db.IntegrityCheck()
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			if len(results) != 1 || results[0] != "ok" {
				return fmt.Errorf("integrity check reported %d problems", len(results))
			}
			return nil
		},
	})

	var into string
	vacuum := &cobra.Command{
		Use:   "vacuum",
		Short: "Rebuild the database file, or copy it with --into",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if st.cfg.Storage.Backend != "sqlite" {
				return errNotSQLite
			}
			// copying leaves the source untouched
			db, err := storage.Open(st.cfg.Storage.Path, storage.Options{ReadOnly: into != ""})
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Vacuum(into); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Vacuum complete")
			return nil
		},
	}
	vacuum.Flags().StringVar(&into, "into", "", "write a compacted copy to this file instead")
	cmd.AddCommand(vacuum)
	return cmd
}
