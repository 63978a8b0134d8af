package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pmtrack-backend/internal/report"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	Format string
	Out    string
}

// ValidExportFormats lists the formats export can write.
var ValidExportFormats = []string{report.FormatPDF, report.FormatXLSX}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the machine table as a PDF or XLSX report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", report.FormatPDF, "output format (pdf|xlsx)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output file (default data_pm_mesin.<format>)")

	return cmd
}

func runExport(cmd *cobra.Command, rootOpts *RootOptions, opts *ExportOptions) error {
	if !isValidExportFormat(opts.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidExportFormats)
	}
	out := opts.Out
	if out == "" {
		out = report.Filename(opts.Format)
	}

	cfg, err := rootOpts.loadConfig()
	if err != nil {
		return err
	}

	s, closeDB, err := rootOpts.openStore(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	records, err := s.ListAll(cmd.Context())
	if err != nil {
		return err
	}

	data, err := report.Render(opts.Format, cfg.Report.Title, records, time.Now())
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records to %s\n", len(records), out)
	return nil
}

func isValidExportFormat(format string) bool {
	for _, f := range ValidExportFormats {
		if f == format {
			return true
		}
	}
	return false
}
