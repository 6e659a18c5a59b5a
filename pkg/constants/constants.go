// Package constants provides shared constants used throughout the fiscal codebase.
// This includes timeouts, remote store limits, wire formats, and the default names
// of the SharePoint lists the workflows reconcile into.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to the remote list store
	DefaultHTTPTimeout = 60 * time.Second

	// DefaultQueryTimeout bounds a single projection query against the source system
	DefaultQueryTimeout = 5 * time.Minute

	// RunTimeout is the default timeout for a whole reconciliation run
	RunTimeout = 30 * time.Minute

	// ShutdownTimeout is how long shutdown hooks get after a failed run
	ShutdownTimeout = 5 * time.Second

	// BreakerOpenTimeout is how long the remote circuit breaker stays open
	BreakerOpenTimeout = 30 * time.Second
)

// FilePermissions is the permission of files written by the jobs (rw-r--r--).
const FilePermissions = 0644

// Remote list store limits
const (
	// MaxBatchRequests is the Graph $batch ceiling of sub-requests per request
	MaxBatchRequests = 20

	// DefaultBatchConcurrency is the number of physical batches submitted in parallel
	DefaultBatchConcurrency = 4

	// DefaultRateLimit is the sustained request rate against the remote store (req/s)
	DefaultRateLimit = 10

	// DefaultRateBurst is the request burst allowed against the remote store
	DefaultRateBurst = 5

	// BreakerFailureThreshold is the number of consecutive transient failures that opens the breaker
	BreakerFailureThreshold = 5

	// PageSize is the $top used when paging list items
	PageSize = 999
)

// Wire formats
const (
	// DateWireFormat is the single date representation used on both sides of a diff
	DateWireFormat = "2006-01-02T15:04:05Z"

	// DateOnlyFormat is the plain calendar date layout
	DateOnlyFormat = "2006-01-02"
)

// Default SharePoint list names
const (
	VendorList        = "Vendors"
	ContractList      = "Master Blanket POs"
	PurchaseOrderList = "Purchase Orders"
	InvoiceList       = "Invoices"
	InvoiceExportList = "InvoiceExport"
	ReceiptExportList = "ReceiptExport"
)

// Default archive subfolder names
const (
	PromptPaymentArchiveFolder = "Prompt Payment"
	AgingArchiveFolder         = "Aging Report"
)

// Default Graph endpoints
const (
	GraphBaseURL = "https://graph.microsoft.com/v1.0"
	GraphScope   = "https://graph.microsoft.com/.default"
	LoginBaseURL = "https://login.microsoftonline.com"
)

// Workflow windows
const (
	// ContractClosedWindow keeps blanket contracts that ended within this many days
	ContractClosedWindow = 90

	// InvoiceModifiedWindowDays keeps paid or cancelled invoices touched this recently
	InvoiceModifiedWindowDays = 45

	// ReceiptWindowDays is the look-back for receipts in the aging export
	ReceiptWindowDays = 1200
)
