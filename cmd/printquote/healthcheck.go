package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/philipparndt/printquote/internal/api"
)

var healthJSON bool

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Probe the backend endpoints",
	Long:  "Probe every backend endpoint the tool depends on. Endpoints that answer 401/403 count as protected, not failed.",
	Args:  cobra.NoArgs,
	RunE:  runHealthcheck,
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVar(&healthJSON, "json", false, "Print results as JSON")
}

func runHealthcheck(cmd *cobra.Command, _ []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	statuses := client.CheckHealth(cmd.Context())
	summary := api.Summarize(statuses)

	out := cmd.OutOrStdout()
	if healthJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			Endpoints []api.EndpointStatus `json:"endpoints"`
			Summary   api.HealthSummary    `json:"summary"`
		}{statuses, summary}); err != nil {
			return err
		}
	} else {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STATE\tMETHOD\tPATH\tDETAIL")
		for _, st := range statuses {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", st.State, st.Method, st.Path, st.Detail)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%d passed, %d protected, %d failed\n", summary.Passed, summary.Protected, summary.Failed)
	}

	if !summary.Ready() {
		return errors.New("backend is not ready")
	}
	return nil
}
