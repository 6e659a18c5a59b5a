// Package payment provides the prompt_payment command.
package payment

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/fiscal/cmd/application"
	"github.com/agentstation/fiscal/internal/workflows/payment"
)

// NewCommand creates the prompt_payment command.
func NewCommand(app application.Application) *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:     payment.Name,
		GroupID: "workflows",
		Short:   "Sync the Prompt Payment report into the Invoices list",
		Long: `Reconcile the Prompt Payment report exported from CoreIntegrator into the
Invoices list.

Only invoices in a DGS queue awaiting agency contact are kept. Invoices that
leave the report stay in the list with Prompt Payment cleared.`,
		Example: `  fiscal prompt_payment --report ./PromptPayment.csv`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := app.Report(reportPath)
			if err != nil {
				return err
			}
			return app.RunWorkflow(cmd.Context(), payment.New(report, app.Payment()), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "path to the exported report (default prompt_payment.report_path)")

	return cmd
}
