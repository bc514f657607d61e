package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/treefix50/reelshelf/internal/catalog"
)

type outputWriter struct {
	format string
	out    io.Writer
}

// Write prints data as json or yaml. The table format is handled by the
// callers that have a table to print; everything else falls back to yaml.
func (o *outputWriter) Write(data any) error {
	switch o.format {
	case "json":
		output, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(o.out, string(output))
		return nil
	default:
		output, err := yaml.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		fmt.Fprint(o.out, string(output))
		return nil
	}
}

func (o *outputWriter) Entries(entries []catalog.Entry) error {
	if o.format != "table" && o.format != "" {
		return o.Write(entries)
	}

	tw := tabwriter.NewWriter(o.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tGENRES\tRATING\tLENGTH\tWATCHED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%s\t%s (%.0f%%)\n",
			e.ID,
			e.Title,
			strings.Join(e.Genres, ", "),
			e.Rating,
			catalog.FormatDuration(e.DurationSeconds),
			catalog.FormatClock(e.WatchTimeSeconds),
			e.ProgressPercent(),
		)
	}
	return tw.Flush()
}

func (o *outputWriter) Entry(e catalog.Entry) error {
	return o.Entries([]catalog.Entry{e})
}
