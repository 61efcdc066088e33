package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/philipparndt/printquote/internal/api"
)

var (
	entitiesFilter api.Filter
	entitiesJSON   bool
)

var entitiesCmd = &cobra.Command{
	Use:   "entities [kind]",
	Short: "List backend entities",
	Long:  "List clients, orders, invoices, payments, printers or spools from the backend.",
	Args:  cobra.ExactArgs(1),
	ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		kinds := api.EntityKinds()
		out := make([]string, len(kinds))
		for i, k := range kinds {
			out[i] = string(k)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: runEntities,
}

func init() {
	rootCmd.AddCommand(entitiesCmd)
	f := entitiesCmd.Flags()
	f.StringVar(&entitiesFilter.Status, "status", "", "Filter by status")
	f.StringVar(&entitiesFilter.Search, "search", "", "Free text search")
	f.IntVar(&entitiesFilter.Limit, "limit", 0, "Maximum number of entities")
	f.IntVar(&entitiesFilter.Offset, "offset", 0, "Number of entities to skip")
	f.BoolVar(&entitiesJSON, "json", false, "Print entities as JSON")
}

func runEntities(cmd *cobra.Command, args []string) error {
	kind, err := api.ParseEntityKind(args[0])
	if err != nil {
		return err
	}
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	entities, err := client.FetchEntities(cmd.Context(), kind, entitiesFilter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if entitiesJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entities)
	}
	if len(entities) == 0 {
		fmt.Fprintf(out, "No %s found.\n", kind)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS")
	for _, e := range entities {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ID, e.Name, strings.ToLower(e.Status))
	}
	return tw.Flush()
}
