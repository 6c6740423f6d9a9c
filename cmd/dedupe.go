package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/contact-extractor/internal/export"
	"github.com/sells-group/contact-extractor/internal/model"
	"github.com/sells-group/contact-extractor/internal/reconcile"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe <csv>...",
	Short: "Deduplicate contact CSV files by mobile number",
	Long:  "Reads one or more contact CSVs, keeps the most complete record per mobile number, and writes the result as CSV.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("dedupe"); err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")

		records, err := readRecordFiles(cmd.Context(), args)
		if err != nil {
			return err
		}
		deduped := reconcile.Dedupe(records)

		if output == "" {
			return export.WriteCSV(cmd.OutOrStdout(), deduped)
		}
		if err := writeFile(output, func(w io.Writer) error {
			return export.WriteCSV(w, deduped)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Read %d records, kept %d, removed %d duplicates -> %s\n", //nolint:errcheck
			len(records), len(deduped), len(records)-len(deduped), output)
		return nil
	},
}

func readRecordFiles(ctx context.Context, paths []string) ([]model.CleanRecord, error) {
	var all []model.CleanRecord
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "dedupe: open %s", path)
		}
		records, err := export.ReadCSV(ctx, f)
		f.Close() //nolint:errcheck
		if err != nil {
			return nil, eris.Wrapf(err, "dedupe: read %s", path)
		}
		all = append(all, records...)
	}
	return all, nil
}

func init() {
	dedupeCmd.Flags().String("output", "", "output CSV path (default: stdout)")
	rootCmd.AddCommand(dedupeCmd)
}
