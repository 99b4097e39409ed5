package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/records/internal/core"
	"github.com/JonMunkholm/records/internal/spreadsheet"
	"github.com/JonMunkholm/records/internal/store/memory"
)

// importCommand runs the bulk-upload pipeline on a local file.
func importCommand(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import records from an .xlsx, .xls or .csv file",
		Args:  cobra.ExactArgs(1),
		// A dry run never opens the store, so it needs no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				return nil
			}
			return a.loadConfig(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			up := core.Upload{Filename: filepath.Base(args[0]), Data: data}
			out := json.NewEncoder(cmd.OutOrStdout())
			out.SetIndent("", "  ")

			if dryRun {
				res, err := core.NewService(memory.New()).Preview(cmd.Context(), up)
				if err != nil {
					return err
				}
				return out.Encode(res)
			}

			gw, closeStore, err := openStore(cmd.Context(), a.cfg, a.cfg.Store.AutoMigrate)
			if err != nil {
				return err
			}
			defer closeStore()

			svc := core.NewService(gw, core.WithPersistTimeout(a.cfg.Upload.PersistTimeout))
			res, err := svc.Ingest(cmd.Context(), up)
			if res != nil {
				if encErr := out.Encode(res); encErr != nil {
					return encErr
				}
			}
			if err != nil {
				if errors.Is(err, core.ErrEmptyBatch) || errors.Is(err, core.ErrDecode) {
					return errors.New(core.FormatUserError(err))
				}
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file and print a preview without storing records")
	return cmd
}

// templateCommand writes the import template workbook.
func templateCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "template <file.xlsx>",
		Short:             "Write an import template",
		Args:              cobra.ExactArgs(1),
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := spreadsheet.Template()
			if err != nil {
				return err
			}
			return os.WriteFile(args[0], data, 0o644)
		},
	}
}
