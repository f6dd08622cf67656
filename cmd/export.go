package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/tripburn/internal/state"
)

var (
	flagExportFormat string
	flagExportOutput string
	flagImportFormat string
	flagImportYes    bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all destinations and expenses",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace all local state with an exported document",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	exportCmd.Flags().StringVarP(&flagExportFormat, "format", "f", "json", "Output format: json or yaml")
	exportCmd.Flags().StringVarP(&flagExportOutput, "output", "o", "", "Write to file instead of stdout")
	importCmd.Flags().StringVarP(&flagImportFormat, "format", "f", "", "Input format (default from file extension)")
	importCmd.Flags().BoolVarP(&flagImportYes, "yes", "y", false, "Do not ask before replacing local state")
	rootCmd.AddCommand(exportCmd, importCmd)
}

func runExport(_ *cobra.Command, _ []string) error {
	format, err := state.ParseFormat(flagExportFormat)
	if err != nil {
		return err
	}
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	data, err := s.tr.Export(format)
	if err != nil {
		return err
	}
	if flagExportOutput == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(flagExportOutput, data, 0o600); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	progress("Exported %d destinations to %s", len(s.tr.Destinations()), flagExportOutput)
	return nil
}

// importFormat picks the format from --format or the file extension.
func importFormat(path string) (state.Format, error) {
	if flagImportFormat != "" {
		return state.ParseFormat(flagImportFormat)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return state.FormatYAML, nil
	default:
		return state.FormatJSON, nil
	}
}

func runImport(_ *cobra.Command, args []string) error {
	format, err := importFormat(args[0])
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0]) //nolint:gosec // path comes from the user
	if err != nil {
		return fmt.Errorf("reading import: %w", err)
	}

	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	if !flagImportYes && !confirm("Replace all local expenses with "+filepath.Base(args[0])+"?") {
		fmt.Println("  Cancelled.")
		return nil
	}
	if err := s.tr.Import(data, format); err != nil {
		if state.IsImportParse(err) {
			return fmt.Errorf("%s is not a valid export: %w", args[0], err)
		}
		return err
	}
	fmt.Printf("  Imported %s\n", args[0])
	return nil
}
