package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/philipparndt/printquote/internal/quote"
	"github.com/philipparndt/printquote/pkg/pricing"
)

var (
	quoteUseSlicer bool
	quoteJSON      bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote [files...]",
	Short: "Price one or more model files",
	Long: `Price STL or OpenSCAD files with the configured catalog.
Settings default to the config file; flags override them. With --slicer the
backend slicer replaces the calculated weight and print time when it can.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	addSettingsFlags(quoteCmd)
	quoteCmd.Flags().BoolVar(&quoteUseSlicer, "slicer", false, "Ask the backend slicer for weight and print time")
	quoteCmd.Flags().BoolVar(&quoteJSON, "json", false, "Print results as JSON")
}

func runQuote(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cache, err := openCache(ctx)
	if err != nil {
		return err
	}
	defer cache.Close()

	q, err := newQuoter(quoteUseSlicer, cache)
	if err != nil {
		return err
	}
	settings := settingsFromFlags(cmd)

	var quotes []quote.FileQuote
	for _, path := range args {
		fq, err := q.QuoteFile(ctx, path, settings)
		if err != nil {
			return err
		}
		logger.Debug("quoted", zap.String("path", path), zap.Float64("grand_total", fq.Result.GrandTotal))
		quotes = append(quotes, fq)
	}

	out := cmd.OutOrStdout()
	if quoteJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(quotes)
	}
	for i, fq := range quotes {
		if i > 0 {
			fmt.Fprintln(out)
		}
		printQuote(out, fq)
	}
	return nil
}

func printQuote(out io.Writer, fq quote.FileQuote) {
	d := fq.Result.Display()
	s := fq.Settings
	fmt.Fprintf(out, "Quote: %s\n", fq.Path)
	fmt.Fprintln(out, "====================")
	fmt.Fprintf(out, "Model: %s\n", fq.Geometry)
	fmt.Fprintf(out, "Settings: %s, %s, %d%% %s infill, %d walls\n\n", s.Material, s.Quality, s.InfillPercent, s.Pattern, s.Walls)

	rows := [][2]string{
		{"Weight", d.WeightG + " g"},
		{"Print time", d.PrintTime},
		{"Unit price", d.UnitPrice},
		{"Quantity", fmt.Sprint(d.Quantity)},
		{"Line total", d.LineTotal},
		{"Discount", d.DiscountPercent + "% (-" + d.DiscountAmount + ")"},
		{"Rush", "x" + d.RushMultiplier},
		{"Delivery", d.DeliveryFee},
		{"Subtotal", d.Subtotal},
		{"VAT", d.VAT},
		{"Grand total", d.GrandTotal},
		{"Estimate", string(d.Source)},
		{"Ready by", d.EstimatedDate},
	}
	for _, row := range rows {
		fmt.Fprintf(out, "  %-12s %s\n", row[0]+":", row[1])
	}
	if fq.Result.Source == pricing.SourceCalculated {
		fmt.Fprintln(out, "\n  Weight and time are calculated from the model volume.")
	}
}
