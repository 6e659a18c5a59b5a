package contracts

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"testing"

	"github.com/agentstation/fiscal/internal/citibuy"
	"github.com/agentstation/fiscal/internal/cmd/application"
	"github.com/agentstation/fiscal/internal/workflows"
	"github.com/agentstation/fiscal/internal/workflows/contracts"
)

func TestCommand(t *testing.T) {
	var gotWorkflow string
	var gotSpecs int
	mock := &application.Mock{
		RunWorkflowFunc: func(_ context.Context, w workflows.Workflow, out io.Writer) error {
			gotWorkflow = w.Name()
			gotSpecs = len(w.Specs())
			_, err := io.WriteString(out, "ok")
			return err
		},
	}

	var out bytes.Buffer
	cmd := NewCommand(mock)
	cmd.SetArgs([]string{})
	cmd.SetOut(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if gotWorkflow != contracts.Name {
		t.Errorf("workflow = %q, want %q", gotWorkflow, contracts.Name)
	}
	if gotSpecs != 3 {
		t.Errorf("len(Specs()) = %d, want vendors, contracts and POs", gotSpecs)
	}
	if out.String() != "ok" {
		t.Errorf("output = %q, want command output", out.String())
	}
}

func TestCommand_ConnectError(t *testing.T) {
	want := stderrors.New("connection refused")
	mock := &application.Mock{
		CitiBuyFunc: func(context.Context) (*citibuy.Client, error) { return nil, want },
		RunWorkflowFunc: func(context.Context, workflows.Workflow, io.Writer) error {
			t.Error("workflow ran without a CitiBuy connection")
			return nil
		},
	}

	cmd := NewCommand(mock)
	cmd.SetArgs([]string{})
	cmd.SetOut(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); !stderrors.Is(err, want) {
		t.Errorf("Execute() error = %v, want %v", err, want)
	}
}

func TestCommand_RejectsArgs(t *testing.T) {
	cmd := NewCommand(&application.Mock{})
	cmd.SetArgs([]string{"extra"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err == nil {
		t.Error("Execute() with a positional argument should fail")
	}
}
