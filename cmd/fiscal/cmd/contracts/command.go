// Package contracts provides the contract_management command.
package contracts

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/fiscal/cmd/application"
	"github.com/agentstation/fiscal/internal/workflows/contracts"
)

// NewCommand creates the contract_management command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     contracts.Name,
		GroupID: "workflows",
		Short:   "Sync vendors, master blanket contracts and purchase orders",
		Long: `Reconcile CitiBuy vendors, master blanket POs and purchase orders into
the Vendors, Master Blanket POs and Purchase Orders lists.

Entity types are written in dependency order so contract and PO items can
reference the vendor and contract items they belong to. Vendors, contracts
and POs that leave CitiBuy are marked Inactive, Expired and Closed.`,
		Example: `  fiscal contract_management
  fiscal contract_management --dry-run -o wide`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := app.CitiBuy(cmd.Context())
			if err != nil {
				return err
			}
			return app.RunWorkflow(cmd.Context(), contracts.New(src, app.Contracts()), cmd.OutOrStdout())
		},
	}
}
