// Package aging provides the aging_report command.
package aging

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/fiscal/cmd/application"
	"github.com/agentstation/fiscal/internal/workflows/aging"
)

// NewCommand creates the aging_report command.
func NewCommand(app application.Application) *cobra.Command {
	var invoiceWindow, receiptWindow int

	cmd := &cobra.Command{
		Use:     aging.Name,
		GroupID: "workflows",
		Short:   "Export DGS invoices and receipts for the aging report",
		Long: `Reconcile invoices and receipts on DGS purchase orders into the
InvoiceExport and ReceiptExport lists backing the aging report.

Open invoices are always exported; paid or cancelled invoices stay while they
were modified within the invoice window. Exported items that fall out of the
windows are marked Removed.`,
		Example: `  fiscal aging_report
  fiscal aging_report --invoice-window 60`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := app.CitiBuy(cmd.Context())
			if err != nil {
				return err
			}
			cfg := app.Aging()
			if invoiceWindow > 0 {
				cfg.InvoiceWindow = invoiceWindow
			}
			if receiptWindow > 0 {
				cfg.ReceiptWindow = receiptWindow
			}
			return app.RunWorkflow(cmd.Context(), aging.New(src, cfg), cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&invoiceWindow, "invoice-window", 0, "days since modification for paid or cancelled invoices")
	cmd.Flags().IntVar(&receiptWindow, "receipt-window", 0, "days since creation for receipts")

	return cmd
}
