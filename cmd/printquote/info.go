package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/philipparndt/printquote/pkg/analysis"
	"github.com/philipparndt/printquote/pkg/stl"
)

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Display geometry information about a model",
	Long:  "Show dimensions, volume, triangle count, surface area and edge statistics of an STL or OpenSCAD file.",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	filename := args[0]
	q, err := newQuoter(false, nil)
	if err != nil {
		return err
	}
	data, err := q.ReadModel(cmd.Context(), filename)
	if err != nil {
		return err
	}

	g := analysis.ParseGeometry(data)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Model Information")
	fmt.Fprintln(out, "=================")
	fmt.Fprintf(out, "File: %s\n", filename)
	fmt.Fprintf(out, "Format: %s\n\n", g.Format)

	fmt.Fprintln(out, "Dimensions:")
	fmt.Fprintf(out, "  Width (X): %.2f mm\n", g.Dimensions.Width)
	fmt.Fprintf(out, "  Depth (Y): %.2f mm\n", g.Dimensions.Depth)
	fmt.Fprintf(out, "  Height (Z): %.2f mm\n", g.Dimensions.Height)
	fmt.Fprintf(out, "  Volume: %s cm³\n", g.VolumeString())
	fmt.Fprintf(out, "  Triangles: %d\n", g.Triangles)

	if g.Format == analysis.FormatPlaceholder {
		fmt.Fprintln(out, "\nThe file could not be analysed; quotes use placeholder geometry.")
		return nil
	}

	model, err := stl.ParseBytes(data)
	if err != nil {
		fmt.Fprintf(out, "\nMesh details unavailable: %v\n", err)
		return nil
	}
	result := analysis.AnalyzeModel(model)
	fmt.Fprintln(out, "\nMesh:")
	fmt.Fprintf(out, "  Surface Area: %.2f mm²\n", result.SurfaceArea)
	fmt.Fprintf(out, "  Bounding Box: %s - %s\n", analysis.FormatVector(result.BoundingBox.Min), analysis.FormatVector(result.BoundingBox.Max))
	fmt.Fprintf(out, "  Edges: %d\n", result.EdgeCount)
	fmt.Fprintf(out, "  Min edge length: %s\n", analysis.FormatMeasurement(result.MinEdgeLength, ""))
	fmt.Fprintf(out, "  Max edge length: %s\n", analysis.FormatMeasurement(result.MaxEdgeLength, ""))
	fmt.Fprintf(out, "  Avg edge length: %s\n", analysis.FormatMeasurement(result.AvgEdgeLength, ""))
	return nil
}
