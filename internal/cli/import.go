package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pmtrack-backend/internal/importer"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Reconcile a PM spreadsheet into the database",
		Long: `Reads the first sheet of an .xlsx workbook and applies every row in one
transaction: known machine ids are updated in place, new ones are appended
with the next display number. Any invalid row aborts the whole import.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, rootOpts, args[0])
		},
	}

	return cmd
}

func runImport(cmd *cobra.Command, opts *RootOptions, path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return fmt.Errorf("only .xlsx files are supported: %s", path)
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	s, closeDB, err := opts.openStore(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	n, err := importer.New(s).Import(cmd.Context(), f)
	if err != nil {
		return fmt.Errorf("import of %s failed: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Successfully imported %d records\n", n)
	return nil
}
