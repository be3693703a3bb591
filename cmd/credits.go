package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	creditsrender "github.com/bnema/beright/internal/adapters/render/credits"
	"github.com/bnema/beright/internal/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newCreditsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Inspect and grant device credits",
	}

	cmd.AddCommand(
		newCreditsShowCmd(app),
		newCreditsGrantCmd(app),
		newCreditsHistoryCmd(app),
	)

	return cmd
}

func newCreditsShowCmd(app *app) *cobra.Command {
	var deviceIDs []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the credit snapshot of one or more devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snapshots := make([]domain.CreditSnapshot, 0, len(deviceIDs))
			for _, raw := range deviceIDs {
				snapshot, err := app.ledger.Snapshot(cmd.Context(), domain.DeviceID(strings.TrimSpace(raw)))
				if err != nil {
					return err
				}
				snapshots = append(snapshots, snapshot)
			}

			return writeSnapshotsOutput(cmd, app, snapshots, asJSON)
		},
	}

	cmd.Flags().StringSliceVar(&deviceIDs, "device", nil, "Device ID (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	_ = cmd.MarkFlagRequired("device")

	return cmd
}

func newCreditsGrantCmd(app *app) *cobra.Command {
	var deviceID string
	var quantity int64
	var reference string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant paid credits to a device without a processor payment",
		Long:  "Grant records a manual payment of zero amount. Re-running with the same --ref leaves the balance unchanged.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if reference == "" {
				reference = "grant_" + uuid.NewString()
			}

			result, err := app.ledger.CreditPurchase(cmd.Context(), domain.Purchase{
				DeviceID:      domain.DeviceID(strings.TrimSpace(deviceID)),
				Quantity:      quantity,
				TransactionID: domain.TransactionID(reference),
				Currency:      app.cfg.Ledger.Currency,
				Source:        domain.SourceManual,
			})
			if err != nil {
				return err
			}

			if !result.Applied {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Grant %s was already applied\n", reference)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Granted %d credits to %s (ref %s)\n", quantity, deviceID, reference)
			}

			return writeSnapshotsOutput(cmd, app, []domain.CreditSnapshot{result.Snapshot}, asJSON)
		},
	}

	cmd.Flags().StringVar(&deviceID, "device", "", "Device ID")
	cmd.Flags().Int64Var(&quantity, "quantity", 0, "Number of credits to grant")
	cmd.Flags().StringVar(&reference, "ref", "", "Idempotency reference (default: generated)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	_ = cmd.MarkFlagRequired("device")
	_ = cmd.MarkFlagRequired("quantity")

	return cmd
}

func newCreditsHistoryCmd(app *app) *cobra.Command {
	var deviceID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the payment records applied to a device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := app.ledger.Payments(cmd.Context(), domain.DeviceID(strings.TrimSpace(deviceID)))
			if err != nil {
				return err
			}

			if asJSON {
				return encodeJSON(cmd, records)
			}

			if len(records) == 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No payments for %s\n", deviceID)
				return nil
			}
			for _, record := range records {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s  %-14s  +%d  %d %s  %s\n",
					record.CreatedAt.Format("2006-01-02 15:04"), record.Source, record.Quantity,
					record.AmountReceived, strings.ToUpper(record.Currency), record.TransactionID)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&deviceID, "device", "", "Device ID")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	_ = cmd.MarkFlagRequired("device")

	return cmd
}

func writeSnapshotsOutput(cmd *cobra.Command, app *app, snapshots []domain.CreditSnapshot, asJSON bool) error {
	if asJSON {
		return encodeJSON(cmd, snapshots)
	}

	rendered, err := app.creditsRenderer(snapshots, creditsrender.RenderOptions{PoolLimit: app.cfg.Ledger.PoolLimit})
	if err != nil {
		return fmt.Errorf("render credits: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func encodeJSON(cmd *cobra.Command, value any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
