package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/philipparndt/printquote/internal/api"
)

var printerParams []string

var printerCmd = &cobra.Command{
	Use:   "printer [name] [command]",
	Short: "Send a control command to a printer",
	Long: `Send pause, resume, cancel, home, preheat or cooldown to a printer.
Extra parameters are passed as --param key=value, numbers are sent as numbers.`,
	Args: cobra.ExactArgs(2),
	RunE: runPrinter,
}

func init() {
	rootCmd.AddCommand(printerCmd)
	printerCmd.Flags().StringArrayVarP(&printerParams, "param", "p", nil, "Command parameter as key=value (repeatable)")
}

func runPrinter(cmd *cobra.Command, args []string) error {
	command, err := api.ParsePrinterCommand(args[1])
	if err != nil {
		return err
	}
	params, err := parseParams(printerParams)
	if err != nil {
		return err
	}
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	if err := client.ControlPrinter(cmd.Context(), args[0], command, params); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Sent %s to %s\n", command, args[0])
	return nil
}

func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			params[key] = n
			continue
		}
		if b, err := strconv.ParseBool(value); err == nil {
			params[key] = b
			continue
		}
		params[key] = value
	}
	return params, nil
}
