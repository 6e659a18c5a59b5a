// Package application provides the application interface for fiscal commands.
//
// The Application interface defines the contract between the application layer and
// command implementations, enabling dependency injection and testability.
//
// Usage in Commands:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            src, err := app.CitiBuy(cmd.Context())
//	            if err != nil {
//	                return err
//	            }
//	            return app.RunWorkflow(cmd.Context(), contracts.New(src, app.Contracts()), cmd.OutOrStdout())
//	        },
//	    }
//	}
package application

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/agentstation/fiscal/internal/citibuy"
	"github.com/agentstation/fiscal/internal/workflows"
	"github.com/agentstation/fiscal/internal/workflows/aging"
	"github.com/agentstation/fiscal/internal/workflows/contracts"
	"github.com/agentstation/fiscal/internal/workflows/payment"
)

// Application provides what the workflow commands need. The App struct from
// cmd/fiscal/app implements it.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// CitiBuy returns the source database client, connecting on first use.
	CitiBuy(ctx context.Context) (*citibuy.Client, error)

	// Contracts, Aging and Payment return the configured workflow settings.
	Contracts() contracts.Config
	Aging() aging.Config
	Payment() payment.Config

	// Report returns the Prompt Payment report source. path overrides the
	// configured report path when set.
	Report(path string) (payment.Report, error)

	// RunWorkflow reconciles w into the remote list store, records metrics and
	// writes the run summary to out.
	RunWorkflow(ctx context.Context, w workflows.Workflow, out io.Writer) error

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, wide).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
