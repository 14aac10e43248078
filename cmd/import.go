package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-intel/internal/editor"
	"github.com/sells-group/market-intel/internal/export"
	"github.com/sells-group/market-intel/internal/filter"
)

var (
	exportDir    string
	exportFormat string
	exportState  filter.State
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a snapshot of the records to a file",
	Long:  "Writes the records matching the filter flags (all records by default) to an xlsx or csv file.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := newEnv(cmd.Context(), cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		path, err := exportSnapshot(cmd.Context(), env.Editor, exportState, exportFormat, exportDir)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, path)
		return nil
	},
}

func exportSnapshot(ctx context.Context, ed *editor.Service, st filter.State, format, dir string) (string, error) {
	var (
		data []byte
		name string
		err  error
	)
	switch format {
	case "xlsx":
		data, name, err = ed.Export(ctx, st)
	case "csv":
		data, name, err = ed.ExportCSV(ctx, st)
	default:
		return "", eris.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrap(err, "write snapshot")
	}
	return path, nil
}

var importCmd = &cobra.Command{
	Use:   "import <snapshot.xlsx>",
	Short: "Replace all records with the contents of a snapshot",
	Long:  "Restores a workbook written by export. The live set is overwritten and one create entry per record is written to the history.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := export.ReadXLSX(args[0])
		if err != nil {
			return err
		}

		env, err := newEnv(cmd.Context(), cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Editor.Import(cmd.Context(), records, actor())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Imported %d records from %s.\n", n, args[0])
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "dir", ".", "directory to write the snapshot into")
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "xlsx or csv")
	addFilterFlags(exportCmd.Flags(), &exportState)
	rootCmd.AddCommand(exportCmd, importCmd)
}
