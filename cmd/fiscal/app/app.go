// Package app provides the application context and dependency management
// for the fiscal CLI. It centralizes configuration, logging, and the lifecycle
// of the CitiBuy and SharePoint connections shared by the workflow commands.
package app

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/fiscal/cmd/application"
	"github.com/agentstation/fiscal/internal/citibuy"
	"github.com/agentstation/fiscal/internal/sharepoint"
	"github.com/agentstation/fiscal/internal/transport"
	"github.com/agentstation/fiscal/internal/workflows"
	"github.com/agentstation/fiscal/internal/workflows/aging"
	"github.com/agentstation/fiscal/internal/workflows/contracts"
	"github.com/agentstation/fiscal/internal/workflows/payment"
	"github.com/agentstation/fiscal/pkg/constants"
	"github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/logging"
	"github.com/agentstation/fiscal/pkg/reconcile"
)

// App represents the fiscal application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// Connections (lazy-initialized, singletons)
	mu      sync.Mutex
	citibuy    *citibuy.Client
	store      reconcile.Store
	sharepoint *sharepoint.Client
	archive    *sharepoint.ArchiveFolder

	// now is the clock of the workflows
	now func() time.Time

	// out replaces stdout for command output when set
	out io.Writer
}

var _ application.Application = (*App)(nil)

// New creates a new App instance with the given version information.
// The app is initialized with configuration from the default locations that can be
// customized using functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		now:     time.Now,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger
	logging.SetDefault(logger)

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// CitiBuy returns the CitiBuy client, connecting on first use.
func (a *App) CitiBuy(ctx context.Context) (*citibuy.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.citibuy != nil {
		return a.citibuy, nil
	}
	client, err := citibuy.Open(ctx, a.config.CitiBuy)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Str("driver", a.config.CitiBuy.Driver).Msg("Connected to CitiBuy")
	a.citibuy = client
	return client, nil
}

// Store returns the SharePoint list store, authenticating on first use.
func (a *App) Store(ctx context.Context) (reconcile.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.store != nil {
		return a.store, nil
	}
	client, err := a.sharePoint(ctx)
	if err != nil {
		return nil, err
	}
	a.store = client
	return client, nil
}

// sharePoint returns the Graph client. The caller holds a.mu.
func (a *App) sharePoint(ctx context.Context) (*sharepoint.Client, error) {
	if a.sharepoint != nil {
		return a.sharepoint, nil
	}

	sp := a.config.SharePoint
	auth, err := transport.NewClientCredentialsAuth(ctx, transport.ClientCredentials{
		TenantID:     sp.TenantID,
		ClientID:     sp.ClientID,
		ClientSecret: sp.ClientSecret,
		TokenURL:     sp.TokenURL,
	})
	if err != nil {
		return nil, err
	}
	tc := transport.New(sharepoint.System, auth,
		transport.WithRateLimit(a.config.Remote.RateLimit, a.config.Remote.Burst))

	client, err := sharepoint.New(tc, sharepoint.Config{BaseURL: sp.BaseURL, SiteID: sp.SiteID})
	if err != nil {
		return nil, err
	}
	a.sharepoint = client
	return client, nil
}

// archiveFunc adapts a function to workflows.Archiver.
type archiveFunc func(ctx context.Context, folder, name string, content []byte) error

// Archive implements workflows.Archiver.
func (f archiveFunc) Archive(ctx context.Context, folder, name string, content []byte) error {
	return f(ctx, folder, name, content)
}

// Archive returns the archive of a workflow input folder. It is disabled on dry runs
// and when no archive folder is configured; the drive is opened on first upload.
func (a *App) Archive(folder string) workflows.Archive {
	if a.config.DryRun || a.config.SharePoint.ArchiveFolderID == "" || folder == "" {
		return workflows.Archive{}
	}
	return workflows.Archive{
		Folder: folder,
		Archiver: archiveFunc(func(ctx context.Context, folder, name string, content []byte) error {
			archive, err := a.archiveFolder(ctx)
			if err != nil {
				return err
			}
			return archive.Archive(ctx, folder, name, content)
		}),
	}
}

func (a *App) archiveFolder(ctx context.Context) (*sharepoint.ArchiveFolder, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.archive != nil {
		return a.archive, nil
	}
	client, err := a.sharePoint(ctx)
	if err != nil {
		return nil, err
	}
	sp := a.config.SharePoint
	archive, err := client.ArchiveFolder(sp.DriveID, sp.ArchiveFolderID)
	if err != nil {
		return nil, err
	}
	a.archive = archive
	return archive, nil
}

// Contracts returns the contract_management settings.
func (a *App) Contracts() contracts.Config {
	return contracts.Config{
		Lists:        a.config.Lists.Contracts,
		ClosedWindow: constants.ContractClosedWindow,
		Now:          a.now,
	}
}

// Aging returns the aging_report settings.
func (a *App) Aging() aging.Config {
	return aging.Config{
		Lists:         a.config.Lists.Aging,
		InvoiceWindow: a.config.Aging.InvoiceWindowDays,
		ReceiptWindow: a.config.Aging.ReceiptWindowDays,
		Now:           a.now,
		Archive:       a.Archive(a.config.Archive.AgingFolder),
	}
}

// Payment returns the prompt_payment settings.
func (a *App) Payment() payment.Config {
	return payment.Config{
		List:    a.config.Lists.Invoice,
		Now:     a.now,
		Archive: a.Archive(a.config.Archive.PromptPaymentFolder),
	}
}

// Report returns the Prompt Payment report exported to path, or to the configured
// report path.
func (a *App) Report(path string) (payment.Report, error) {
	if path == "" {
		path = a.config.PromptPayment.ReportPath
	}
	if path == "" {
		return nil, errors.NewConfigError("prompt_payment", "report_path is required", nil)
	}
	return payment.FileReport{Path: path}, nil
}

// Shutdown closes the connections opened by the commands.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.citibuy == nil {
		return nil
	}
	err := a.citibuy.Close()
	a.citibuy = nil
	if err != nil {
		return errors.WrapResource("close", "database", "citibuy", err)
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithCitiBuy sets the CitiBuy client (useful for testing).
func WithCitiBuy(client *citibuy.Client) Option {
	return func(a *App) error {
		a.citibuy = client
		return nil
	}
}

// WithStore sets the remote list store (useful for testing).
func WithStore(store reconcile.Store) Option {
	return func(a *App) error {
		a.store = store
		return nil
	}
}

// WithClock sets the clock of the workflows.
func WithClock(now func() time.Time) Option {
	return func(a *App) error {
		if now != nil {
			a.now = now
		}
		return nil
	}
}

// WithOutput sets the writer of command output.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}
