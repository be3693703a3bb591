package cmd

import (
	"fmt"
	"strings"

	"github.com/bnema/beright/internal/domain"
	"github.com/spf13/cobra"
)

func newPaymentsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Create and reconcile processor payments",
	}

	cmd.AddCommand(
		newPaymentsIntentCmd(app),
		newPaymentsReconcileCmd(app),
	)

	return cmd
}

func newPaymentsIntentCmd(app *app) *cobra.Command {
	var deviceID string
	var quantity int64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "intent",
		Short: "Create a payment intent for a number of credits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reconciler, err := app.reconciler(cmd.Context())
			if err != nil {
				return err
			}

			intent, err := reconciler.CreateIntent(cmd.Context(), domain.DeviceID(strings.TrimSpace(deviceID)), quantity)
			if err != nil {
				return err
			}

			if asJSON {
				return encodeJSON(cmd, intent)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "intent: %s\n", intent.ID)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "status: %s\n", intent.Status)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "amount: %s for %d credits\n", formatAmount(intent.Amount, intent.Currency), intent.Quantity)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "client secret: %s\n", intent.ClientSecret)
			return nil
		},
	}

	cmd.Flags().StringVar(&deviceID, "device", "", "Device ID")
	cmd.Flags().Int64Var(&quantity, "quantity", 0, "Number of credits to buy")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	_ = cmd.MarkFlagRequired("device")
	_ = cmd.MarkFlagRequired("quantity")

	return cmd
}

func newPaymentsReconcileCmd(app *app) *cobra.Command {
	var deviceID string
	var intentID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Verify a payment with the processor and credit the device once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reconciler, err := app.reconciler(cmd.Context())
			if err != nil {
				return err
			}

			result, err := reconciler.Reconcile(cmd.Context(),
				domain.DeviceID(strings.TrimSpace(deviceID)),
				domain.TransactionID(strings.TrimSpace(intentID)),
				domain.SourceManual,
			)
			if err != nil {
				return err
			}

			if result.Applied {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Payment %s applied\n", intentID)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Payment %s was already applied\n", intentID)
			}

			return writeSnapshotsOutput(cmd, app, []domain.CreditSnapshot{result.Snapshot}, asJSON)
		},
	}

	cmd.Flags().StringVar(&deviceID, "device", "", "Device ID")
	cmd.Flags().StringVar(&intentID, "intent", "", "Payment intent ID")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	_ = cmd.MarkFlagRequired("device")
	_ = cmd.MarkFlagRequired("intent")

	return cmd
}

func formatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", minor/100, minor%100, strings.ToUpper(currency))
}
