package contracts

import (
	"github.com/agentstation/fiscal/internal/citibuy"
	"github.com/agentstation/fiscal/internal/workflows"
	"github.com/agentstation/fiscal/pkg/reconcile"
	"github.com/agentstation/fiscal/pkg/records"
)

// Remote field names.
const (
	FieldTitle          = "Title"
	FieldStatus         = "Status"
	FieldVendorID       = "Vendor ID"
	FieldContact        = "Contact"
	FieldEmail          = "Email"
	FieldPhone          = "Phone"
	FieldAddress        = "Address"
	FieldCity           = "City"
	FieldState          = "State"
	FieldZip            = "Zip"
	FieldContractAgency = "Contract Agency"
	FieldDollarLimit    = "Dollar Limit"
	FieldAmountSpent    = "Amount Spent"
	FieldStartDate      = "Start Date"
	FieldEndDate        = "End Date"
	FieldPONumber       = "PO Number"
	FieldReleaseNumber  = "Release Number"
	FieldPOType         = "PO Type"
	FieldAgency         = "PO Agency"
	FieldPODate         = "PO Date"
	FieldActualCost     = "Actual Cost"
	FieldDescription    = "Description"
	FieldBuyer          = "Buyer"
	FieldLocation       = "Location"
	FieldVendorLookup   = "VendorLookupId"
	FieldContractLookup = "ContractLookupId"
)

// Status values.
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
	StatusExpired  = "Expired"
	StatusPOClosed = "3PCO - Closed"
)

var (
	vendorSchema = records.NewSchema(
		records.Field{Name: FieldVendorID, Kind: records.String},
		records.Field{Name: FieldTitle, Kind: records.String},
		records.Field{Name: FieldContact, Kind: records.String},
		records.Field{Name: FieldEmail, Kind: records.String},
		records.Field{Name: FieldPhone, Kind: records.String},
		records.Field{Name: FieldAddress, Kind: records.String},
		records.Field{Name: FieldCity, Kind: records.String},
		records.Field{Name: FieldState, Kind: records.String},
		records.Field{Name: FieldZip, Kind: records.String},
		records.Field{Name: FieldStatus, Kind: records.String},
	)

	contractSchema = records.NewSchema(
		records.Field{Name: FieldTitle, Kind: records.String},
		records.Field{Name: FieldPONumber, Kind: records.String},
		records.Field{Name: FieldContractAgency, Kind: records.String},
		records.Field{Name: FieldDollarLimit, Kind: records.Number},
		records.Field{Name: FieldAmountSpent, Kind: records.Number},
		records.Field{Name: FieldStartDate, Kind: records.Date},
		records.Field{Name: FieldEndDate, Kind: records.Date},
		records.Field{Name: FieldVendorLookup, Kind: records.Lookup},
		records.Field{Name: FieldStatus, Kind: records.String},
	)

	poSchema = records.NewSchema(
		records.Field{Name: FieldTitle, Kind: records.String},
		records.Field{Name: FieldPONumber, Kind: records.String},
		records.Field{Name: FieldReleaseNumber, Kind: records.Integer},
		records.Field{Name: FieldPOType, Kind: records.String},
		records.Field{Name: FieldAgency, Kind: records.String},
		records.Field{Name: FieldStatus, Kind: records.String},
		records.Field{Name: FieldPODate, Kind: records.Date},
		records.Field{Name: FieldActualCost, Kind: records.Number},
		records.Field{Name: FieldDescription, Kind: records.String},
		records.Field{Name: FieldBuyer, Kind: records.String},
		records.Field{Name: FieldLocation, Kind: records.String},
		records.Field{Name: FieldVendorLookup, Kind: records.Lookup},
		records.Field{Name: FieldContractLookup, Kind: records.Lookup},
	)
)

// Specs returns the workflow's entity types in dependency order.
func Specs(lists Lists) []reconcile.EntitySpec {
	return []reconcile.EntitySpec{
		{
			Name:    Vendor,
			List:    lists.Vendor,
			Key:     records.Key(FieldVendorID),
			Schema:  vendorSchema,
			Closure: &reconcile.ClosureSpec{Field: FieldStatus, Value: StatusInactive},
		},
		{
			Name:   Contract,
			List:   lists.Contract,
			Key:    records.Key(FieldTitle),
			Schema: contractSchema,
			Lookups: []reconcile.LookupSpec{
				{Field: FieldVendorLookup, Parent: Vendor, Required: true},
			},
			Closure: &reconcile.ClosureSpec{Field: FieldStatus, Value: StatusExpired},
		},
		{
			Name:   PurchaseOrder,
			List:   lists.PurchaseOrder,
			Key:    records.Key(FieldTitle),
			Schema: poSchema,
			Lookups: []reconcile.LookupSpec{
				{Field: FieldVendorLookup, Parent: Vendor, Required: true},
				{Field: FieldContractLookup, Parent: Contract},
			},
			Closure: &reconcile.ClosureSpec{Field: FieldStatus, Value: StatusPOClosed},
		},
	}
}

// Projection holds the source records of the three entity types.
type Projection struct {
	Vendors        records.SourceSet
	Contracts      records.SourceSet
	PurchaseOrders records.SourceSet
}

// Project splits PO rows into vendors, contracts and POs. Each natural key is kept
// once, first row wins; rows arrive with DGS contracts ahead of AGY ones.
func Project(rows []citibuy.PurchaseOrder) *Projection {
	p := &Projection{
		Vendors:        records.SourceSet{},
		Contracts:      records.SourceSet{},
		PurchaseOrders: records.SourceSet{},
	}
	seen := map[string]map[string]bool{Vendor: {}, Contract: {}, PurchaseOrder: {}}
	add := func(entity, key string, set *records.SourceSet, r records.Record) {
		if seen[entity][key] {
			return
		}
		seen[entity][key] = true
		*set = append(*set, r)
	}

	for _, row := range rows {
		add(Vendor, row.VendorID, &p.Vendors, VendorRecord(row))
		if row.IsBlanket() {
			add(Contract, workflows.POTitle(row.PONumber, 0), &p.Contracts, ContractRecord(row))
		}
		add(PurchaseOrder, workflows.POTitle(row.PONumber, row.ReleaseNumber), &p.PurchaseOrders, PORecord(row))
	}
	return p
}

// VendorRecord projects the vendor of a PO row.
func VendorRecord(row citibuy.PurchaseOrder) records.Record {
	return records.Record{
		FieldVendorID: row.VendorID,
		FieldTitle:    workflows.String(row.VendorName),
		FieldContact:  workflows.String(row.Contact),
		FieldEmail:    workflows.String(row.Email),
		FieldPhone:    workflows.String(row.Phone),
		FieldAddress:  workflows.String(row.Street),
		FieldCity:     workflows.String(row.City),
		FieldState:    workflows.String(row.State),
		FieldZip:      workflows.String(row.Zip),
		FieldStatus:   StatusActive,
	}
}

// ContractRecord projects the blanket contract of a master blanket PO row.
func ContractRecord(row citibuy.PurchaseOrder) records.Record {
	return records.Record{
		FieldTitle:          workflows.POTitle(row.PONumber, 0),
		FieldPONumber:       row.PONumber,
		FieldContractAgency: workflows.String(row.ContractAgency),
		FieldDollarLimit:    workflows.Float(row.DollarLimit),
		FieldAmountSpent:    workflows.Float(row.DollarSpent),
		FieldStartDate:      workflows.Time(row.StartDate),
		FieldEndDate:        workflows.Time(row.EndDate),
		FieldVendorLookup:   row.VendorID,
		FieldStatus:         StatusActive,
	}
}

// PORecord projects a PO or release row.
func PORecord(row citibuy.PurchaseOrder) records.Record {
	var contract any
	if row.HasContract() {
		contract = workflows.POTitle(row.PONumber, 0)
	}
	return records.Record{
		FieldTitle:          workflows.POTitle(row.PONumber, row.ReleaseNumber),
		FieldPONumber:       row.PONumber,
		FieldReleaseNumber:  row.ReleaseNumber,
		FieldPOType:         POType(row),
		FieldAgency:         workflows.String(row.Agency),
		FieldStatus:         citibuy.Recode(citibuy.POStatus, row.Status.String),
		FieldPODate:         workflows.Time(row.Date),
		FieldActualCost:     workflows.Float(row.Cost),
		FieldDescription:    workflows.String(row.Description),
		FieldBuyer:          workflows.String(row.Buyer),
		FieldLocation:       workflows.String(row.LocationID),
		FieldVendorLookup:   row.VendorID,
		FieldContractLookup: contract,
	}
}

// POType classifies a PO row.
func POType(row citibuy.PurchaseOrder) string {
	return workflows.POType(row.ReleaseNumber, row.HasContract())
}
