package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/philipparndt/printquote/internal/quote"
)

var (
	orderClientID    string
	orderNotes       string
	orderWaitSlicer  time.Duration
	orderSkipSlicing bool
)

var orderCmd = &cobra.Command{
	Use:   "order [file]",
	Short: "Quote a model and submit it as an order",
	Long: `Quote a model and create an order in the backend.
The slicer estimate is awaited up to --wait before submitting; when it does
not arrive in time the calculated estimate is ordered.`,
	Args: cobra.ExactArgs(1),
	RunE: runOrder,
}

func init() {
	rootCmd.AddCommand(orderCmd)
	addSettingsFlags(orderCmd)
	orderCmd.Flags().StringVar(&orderClientID, "client", "", "Backend client ID")
	orderCmd.Flags().StringVar(&orderNotes, "notes", "", "Notes attached to the order")
	orderCmd.Flags().DurationVar(&orderWaitSlicer, "wait", 2*time.Minute, "How long to wait for the slicer estimate")
	orderCmd.Flags().BoolVar(&orderSkipSlicing, "no-slicer", false, "Order the calculated estimate without slicing")
}

func runOrder(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	cache, err := openCache(ctx)
	if err != nil {
		return err
	}
	defer cache.Close()

	q, err := newQuoter(false, nil)
	if err != nil {
		return err
	}
	data, err := q.ReadModel(ctx, args[0])
	if err != nil {
		return err
	}

	opts := []quote.Option{quote.WithCache(cache), quote.WithLogger(logger.Named("session")), quote.WithSlicerTimeout(orderWaitSlicer)}
	if !orderSkipSlicing {
		opts = append(opts, quote.WithSlicer(client))
	}
	session := quote.NewSession(cfg.Catalog, settingsFromFlags(cmd), opts...)
	defer session.Close()

	if _, err := session.Load(ctx, args[0], data); err != nil {
		return err
	}
	if err := session.Wait(ctx); err != nil {
		return err
	}

	result, err := session.Result()
	if err != nil {
		return err
	}
	id, err := session.Order(ctx, client, quote.OrderRequest{ClientID: orderClientID, Notes: orderNotes})
	if err != nil {
		return fmt.Errorf("failed to submit order: %w", err)
	}
	logger.Debug("order submitted", zap.String("order_id", string(id)))

	d := result.Display()
	fmt.Fprintf(cmd.OutOrStdout(), "Order %s created: %s x%d, total %s (%s estimate)\n",
		id, args[0], d.Quantity, d.GrandTotal, d.Source)
	return nil
}
