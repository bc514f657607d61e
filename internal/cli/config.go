package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the configuration in effect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if used := st.loader.FileUsed(); used != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "# %s\n", used)
			}
			w := st.writer(cmd)
			if w.format == "table" {
				w.format = "yaml"
			}
			return w.Write(st.cfg)
		},
	})
	return cmd
}
