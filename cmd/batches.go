package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/contact-extractor/internal/model"
	"github.com/sells-group/contact-extractor/internal/store"
)

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "Inspect persisted processing batches",
}

var batchesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		batches, err := st.ListBatches(ctx, store.BatchFilter{
			Status: model.BatchStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return fmt.Errorf("list batches: %w", err)
		}

		formatBatchesList(os.Stdout, batches)
		return nil
	},
}

// batchDetail is the JSON document printed by batches show.
type batchDetail struct {
	Batch  *model.Batch            `json:"batch"`
	Files  []model.File            `json:"files"`
	Events []model.ProcessingEvent `json:"events"`
}

var batchesShowCmd = &cobra.Command{
	Use:   "show <batch-id>",
	Short: "Show a batch with its files and processing log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		b, err := st.GetBatch(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get batch: %w", err)
		}
		files, err := st.ListFiles(ctx, b.ID)
		if err != nil {
			return fmt.Errorf("list files: %w", err)
		}
		events, err := st.ListEvents(ctx, b.ID)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(batchDetail{Batch: b, Files: files, Events: events})
	},
}

func formatBatchesList(out io.Writer, batches []model.Batch) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tFILES\tRECORDS\tFILTERED\tDUPES\tCREATED") //nolint:errcheck
	for _, b := range batches {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\t%d\t%d\t%s\n", //nolint:errcheck
			b.ID, b.Name, b.Status,
			b.ProcessedFiles, b.TotalFiles,
			b.TotalRecords, b.FilteredRecords, b.DuplicatesFound,
			b.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush() //nolint:errcheck
	fmt.Fprintf(out, "\n%d batches\n", len(batches)) //nolint:errcheck
}

func init() {
	batchesListCmd.Flags().String("status", "", "filter by status (processing, completed, failed)")
	batchesListCmd.Flags().Int("limit", 50, "maximum number of batches to list")
	batchesCmd.AddCommand(batchesListCmd)
	batchesCmd.AddCommand(batchesShowCmd)
	rootCmd.AddCommand(batchesCmd)
}
