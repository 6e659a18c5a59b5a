// Package application provides a mock Application for command tests.
package application

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/agentstation/fiscal/cmd/application"
	"github.com/agentstation/fiscal/internal/citibuy"
	"github.com/agentstation/fiscal/internal/workflows"
	"github.com/agentstation/fiscal/internal/workflows/aging"
	"github.com/agentstation/fiscal/internal/workflows/contracts"
	"github.com/agentstation/fiscal/internal/workflows/payment"
)

// Mock provides a mock implementation of Application for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
type Mock struct {
	CitiBuyFunc      func(ctx context.Context) (*citibuy.Client, error)
	ReportFunc       func(path string) (payment.Report, error)
	RunWorkflowFunc  func(ctx context.Context, w workflows.Workflow, out io.Writer) error
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string

	ContractsConfig contracts.Config
	AgingConfig     aging.Config
	PaymentConfig   payment.Config
	VersionString   string
}

var _ application.Application = (*Mock)(nil)

// CitiBuy returns a client using the mock function or nil.
func (m *Mock) CitiBuy(ctx context.Context) (*citibuy.Client, error) {
	if m.CitiBuyFunc != nil {
		return m.CitiBuyFunc(ctx)
	}
	return nil, nil
}

// Contracts returns ContractsConfig.
func (m *Mock) Contracts() contracts.Config {
	return m.ContractsConfig
}

// Aging returns AgingConfig.
func (m *Mock) Aging() aging.Config {
	return m.AgingConfig
}

// Payment returns PaymentConfig.
func (m *Mock) Payment() payment.Config {
	return m.PaymentConfig
}

// Report returns a report using the mock function or a file report at path.
func (m *Mock) Report(path string) (payment.Report, error) {
	if m.ReportFunc != nil {
		return m.ReportFunc(path)
	}
	return payment.FileReport{Path: path}, nil
}

// RunWorkflow runs the mock function or does nothing.
func (m *Mock) RunWorkflow(ctx context.Context, w workflows.Workflow, out io.Writer) error {
	if m.RunWorkflowFunc != nil {
		return m.RunWorkflowFunc(ctx, w, out)
	}
	return nil
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns the format using the mock function or "table".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "table"
}

// Version returns VersionString or "dev".
func (m *Mock) Version() string {
	if m.VersionString != "" {
		return m.VersionString
	}
	return "dev"
}

// Commit returns a fixed commit.
func (m *Mock) Commit() string {
	return "unknown"
}

// Date returns a fixed build date.
func (m *Mock) Date() string {
	return "unknown"
}

// BuiltBy returns a fixed builder.
func (m *Mock) BuiltBy() string {
	return "test"
}
