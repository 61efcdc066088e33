package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/philipparndt/printquote/internal/export"
)

var (
	exportOutput    string
	exportShop      string
	exportNoPreview bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export quotes as PDF or spreadsheet",
}

var exportPDFCmd = &cobra.Command{
	Use:   "pdf [file]",
	Short: "Write a one-page quote sheet",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportPDF,
}

var exportXLSXCmd = &cobra.Command{
	Use:   "xlsx [files...]",
	Short: "Write a spreadsheet with one quote per row",
	Long:  "Quote the given files into an XLSX workbook. Without files, every entry of the pricing cache is exported.",
	RunE:  runExportXLSX,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportPDFCmd, exportXLSXCmd)

	exportCmd.PersistentFlags().StringVarP(&exportOutput, "output", "o", "", "Output file")
	addSettingsFlags(exportPDFCmd)
	addSettingsFlags(exportXLSXCmd)
	exportPDFCmd.Flags().StringVar(&exportShop, "shop", "printquote", "Shop name printed in the header")
	exportPDFCmd.Flags().BoolVar(&exportNoPreview, "no-preview", false, "Leave the model preview out")
}

func createOutput(fallback string) (*os.File, string, error) {
	path := exportOutput
	if path == "" {
		path = fallback
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, path, nil
}

func runExportPDF(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	q, err := newQuoter(false, nil)
	if err != nil {
		return err
	}
	fq, err := q.QuoteFile(ctx, args[0], settingsFromFlags(cmd))
	if err != nil {
		return err
	}

	sheet := export.QuoteSheet{
		Reference: uuid.NewString(),
		ShopName:  exportShop,
		FileName:  args[0],
		CreatedAt: time.Now(),
		Geometry:  fq.Geometry,
		Settings:  fq.Settings,
		Result:    fq.Result,
		Catalog:   cfg.Catalog,
	}
	if !exportNoPreview {
		png, err := newThumbnailer(q).GeneratePNG(ctx, args[0], cfg.Thumbnail.Options)
		if err != nil {
			logger.Warn("quote sheet without preview", zap.Error(err))
		} else {
			sheet.Thumbnail = png
		}
	}

	f, path, err := createOutput(replaceExt(args[0], ".pdf"))
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.QuotePDF(f, sheet); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (reference %s)\n", path, sheet.Reference)
	return f.Close()
}

func runExportXLSX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	var rows []export.QuoteRow

	if len(args) == 0 {
		cache, err := openCache(ctx)
		if err != nil {
			return err
		}
		defer cache.Close()
		entries, err := cache.List(ctx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			rows = append(rows, export.QuoteRow{File: e.Path, Geometry: e.Geometry, Result: e.Result})
		}
	} else {
		q, err := newQuoter(false, nil)
		if err != nil {
			return err
		}
		settings := settingsFromFlags(cmd)
		for _, path := range args {
			fq, err := q.QuoteFile(ctx, path, settings)
			rows = append(rows, export.QuoteRow{File: path, Geometry: fq.Geometry, Result: fq.Result, Err: err})
		}
	}

	f, path, err := createOutput("quotes.xlsx")
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.QuotesXLSX(f, rows); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d quotes to %s\n", len(rows), path)
	return f.Close()
}
