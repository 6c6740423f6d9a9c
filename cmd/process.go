package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/contact-extractor/internal/config"
	"github.com/sells-group/contact-extractor/internal/export"
	"github.com/sells-group/contact-extractor/internal/extract"
	"github.com/sells-group/contact-extractor/internal/model"
	"github.com/sells-group/contact-extractor/internal/pipeline"
	"github.com/sells-group/contact-extractor/internal/source"
	"github.com/sells-group/contact-extractor/internal/store"
)

// processOptions holds the per-invocation settings of the process command.
type processOptions struct {
	Paths        []string
	FTP          bool
	Name         string
	GlobalDedupe bool
	Persist      bool
}

var processCmd = &cobra.Command{
	Use:   "process [paths...]",
	Short: "Extract, validate and dedupe contacts from documents",
	Long: "Processes PDF documents from local paths, directories, globs or the configured FTP drop, " +
		"and writes raw and filtered contact records to a ZIP bundle, workbook or CSV.",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyProcessFlags(cmd, cfg)
		if err := cfg.Validate("process"); err != nil {
			return err
		}

		useFTP, _ := cmd.Flags().GetBool("ftp")
		if len(args) == 0 && !useFTP {
			return eris.New("process: provide document paths or --ftp")
		}
		name, _ := cmd.Flags().GetString("name")
		globalDedupe, _ := cmd.Flags().GetBool("global-dedupe")
		persist, _ := cmd.Flags().GetBool("persist")

		res, err := runProcess(cmd.Context(), cfg, processOptions{
			Paths:        args,
			FTP:          useFTP,
			Name:         name,
			GlobalDedupe: globalDedupe,
			Persist:      persist,
		})
		if err != nil {
			return err
		}

		printBatchSummary(os.Stdout, res, cfg.Export.Output)
		return nil
	},
}

// applyProcessFlags copies explicitly set flags over the loaded config.
func applyProcessFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("workers") {
		c.Batch.MaxWorkers, _ = flags.GetInt("workers")
	}
	if flags.Changed("batch-size") {
		c.Batch.BatchSize, _ = flags.GetInt("batch-size")
	}
	if flags.Changed("group-size") {
		c.Batch.GroupSize, _ = flags.GetInt("group-size")
	}
	if flags.Changed("format") {
		c.Export.Format, _ = flags.GetString("format")
	}
	if flags.Changed("output") {
		c.Export.Output, _ = flags.GetString("output")
	}
	if offline, _ := flags.GetBool("offline"); offline {
		c.Extractor.Provider = "fixture"
	}
	if flags.Changed("fixtures") {
		c.Extractor.Fixture.Dir, _ = flags.GetString("fixtures")
	}
}

// runProcess gathers documents, runs the batch and writes the output file.
func runProcess(ctx context.Context, c *config.Config, opts processOptions) (*model.BatchResult, error) {
	docs, err := gatherDocuments(ctx, c, opts)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, eris.New("process: no documents found")
	}

	rs, err := loadRuleset(c)
	if err != nil {
		return nil, err
	}

	ex, err := extract.NewExtractor(c.Extractor)
	if err != nil {
		return nil, err
	}

	var st store.Store
	if opts.Persist || c.Store.DatabaseURL != "" {
		st, err = initStore(ctx, c)
		if err != nil {
			return nil, err
		}
		defer st.Close() //nolint:errcheck
	}

	p := pipeline.New(ex, rs, st)
	res := p.ProcessBatch(ctx, docs, pipeline.BatchOptions{
		Name:         opts.Name,
		MaxWorkers:   c.Batch.MaxWorkers,
		BatchSize:    c.Batch.BatchSize,
		GroupSize:    c.Batch.GroupSize,
		GlobalDedupe: opts.GlobalDedupe,
	})

	if err := writeResults(c.Export, c.Batch.GroupSize, res); err != nil {
		return res, err
	}
	return res, nil
}

func gatherDocuments(ctx context.Context, c *config.Config, opts processOptions) ([]model.Document, error) {
	var docs []model.Document
	if len(opts.Paths) > 0 {
		local, err := source.LocalSource{Paths: opts.Paths}.Documents(ctx)
		if err != nil {
			return nil, err
		}
		docs = append(docs, local...)
	}
	if opts.FTP {
		remote, err := source.FTPFromConfig(c.FTP).Documents(ctx)
		if err != nil {
			return nil, err
		}
		docs = append(docs, remote...)
	}
	return docs, nil
}

// writeResults picks the writer from the output extension: .zip writes a
// grouped bundle, .xlsx a full workbook, anything else the filtered CSV.
func writeResults(ec config.ExportConfig, groupSize int, res *model.BatchResult) error {
	if ec.Output == "" {
		return nil
	}

	switch strings.ToLower(filepath.Ext(ec.Output)) {
	case ".xlsx":
		return export.SaveXLSX(ec.Output, export.BatchWorkbook(res))
	case ".zip":
		return writeFile(ec.Output, func(w io.Writer) error {
			return export.WriteBundle(w, res.Outcomes, export.BundleOptions{Format: ec.Format, GroupSize: groupSize})
		})
	default:
		return writeFile(ec.Output, func(w io.Writer) error {
			return export.WriteCSV(w, res.FilteredRecords)
		})
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := write(f); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "close %s", path)
	}
	zap.L().Info("results written", zap.String("path", path))
	return nil
}

func printBatchSummary(w io.Writer, res *model.BatchResult, output string) {
	fmt.Fprintf(w, "Documents:        %d (%d succeeded, %d no data, %d failed)\n", //nolint:errcheck
		len(res.Outcomes), res.Succeeded, res.NoData, res.Failed)
	fmt.Fprintf(w, "Raw records:      %d\n", len(res.RawRecords))      //nolint:errcheck
	fmt.Fprintf(w, "Filtered records: %d\n", len(res.FilteredRecords)) //nolint:errcheck
	fmt.Fprintf(w, "Duplicates:       %d\n", res.DuplicatesRemoved())  //nolint:errcheck
	if res.BatchID != "" {
		fmt.Fprintf(w, "Batch:            %s\n", res.BatchID) //nolint:errcheck
	}
	if output != "" {
		fmt.Fprintf(w, "Output:           %s\n", output) //nolint:errcheck
	}
	for _, o := range res.Outcomes {
		if o.Status == model.DocumentError {
			fmt.Fprintf(w, "  FAILED %s: %s\n", o.File, o.Error) //nolint:errcheck
		}
	}
}

// addProcessFlags registers the process flags on f.
func addProcessFlags(f *pflag.FlagSet) {
	f.Bool("ftp", false, "also fetch PDFs from the configured FTP drop")
	f.String("name", "", "batch name (default: timestamp)")
	f.String("format", "csv", "group file format inside the ZIP bundle (csv or excel)")
	f.String("output", "results.zip", "output file (.zip bundle, .xlsx workbook or .csv)")
	f.Int("workers", 3, "concurrent documents per chunk")
	f.Int("batch-size", 40, "documents per chunk")
	f.Int("group-size", 25, "documents per group file in the bundle")
	f.Bool("offline", false, "read fragments from JSON fixtures instead of calling the extractor")
	f.String("fixtures", "", "fixture directory for --offline (default: next to each document)")
	f.Bool("global-dedupe", false, "dedupe across all documents instead of per document")
	f.Bool("persist", false, "record the batch in the configured store")
}

func init() {
	addProcessFlags(processCmd.Flags())
	rootCmd.AddCommand(processCmd)
}
