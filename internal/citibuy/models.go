package citibuy

import "database/sql"

// PurchaseOrder is a PO or release row joined with its vendor, the vendor's default
// mailing address, and the blanket contract the PO belongs to (if any).
type PurchaseOrder struct {
	PONumber      string          `db:"po_nbr"`
	ReleaseNumber int64           `db:"release_nbr"`
	Agency        sql.NullString  `db:"agency"`
	Status        sql.NullString  `db:"status"`
	Date          sql.NullTime    `db:"po_date"`
	Cost          sql.NullFloat64 `db:"cost"`
	Description   sql.NullString  `db:"description"`
	Buyer         sql.NullString  `db:"buyer"`
	LocationID    sql.NullString  `db:"loc_id"`

	VendorID   string         `db:"vendor_id"`
	VendorName sql.NullString `db:"vendor_name"`
	Contact    sql.NullString `db:"contact"`
	Email      sql.NullString `db:"email"`
	Phone      sql.NullString `db:"phone"`
	Street     sql.NullString `db:"street"`
	City       sql.NullString `db:"city"`
	State      sql.NullString `db:"state"`
	Zip        sql.NullString `db:"zip"`

	ContractAgency sql.NullString  `db:"contract_agency"`
	StartDate      sql.NullTime    `db:"start_date"`
	EndDate        sql.NullTime    `db:"end_date"`
	DollarLimit    sql.NullFloat64 `db:"dollar_limit"`
	DollarSpent    sql.NullFloat64 `db:"dollar_spent"`
}

// HasContract reports whether the PO is on a blanket contract.
func (p PurchaseOrder) HasContract() bool {
	return p.ContractAgency.Valid
}

// IsBlanket reports whether the row is the master blanket PO of its contract.
func (p PurchaseOrder) IsBlanket() bool {
	return p.ReleaseNumber == 0 && p.HasContract()
}

// Invoice is an invoice on a DGS PO, with the PO and contract context used by the
// aging report.
type Invoice struct {
	ID            string          `db:"id"`
	PONumber      string          `db:"po_nbr"`
	ReleaseNumber int64           `db:"release_nbr"`
	VendorID      string          `db:"vendor_id"`
	VendorName    sql.NullString  `db:"vendor_name"`
	InvoiceNumber sql.NullString  `db:"invoice_nbr"`
	InvoiceDate   sql.NullTime    `db:"invoice_date"`
	Amount        sql.NullFloat64 `db:"amount"`
	Status        sql.NullString  `db:"status"`
	Modified      sql.NullTime    `db:"modified"`

	POStatus            sql.NullString  `db:"po_status"`
	PODate              sql.NullTime    `db:"po_date"`
	POCost              sql.NullFloat64 `db:"po_cost"`
	ContractAgency      sql.NullString  `db:"contract_agency"`
	ContractEndDate     sql.NullTime    `db:"contract_end_date"`
	ContractDollarLimit sql.NullFloat64 `db:"contract_dollar_limit"`
	ContractAmountSpent sql.NullFloat64 `db:"contract_amount_spent"`
}

// Receipt is a DGS receipt header.
type Receipt struct {
	ID            string         `db:"receipt_id"`
	PONumber      sql.NullString `db:"po_nbr"`
	ReleaseNumber sql.NullInt64  `db:"release_nbr"`
	Status        sql.NullString `db:"status"`
	Owner         sql.NullString `db:"owner"`
	LocationID    sql.NullString `db:"loc_id"`
	Description   sql.NullString `db:"description"`
	Agency        sql.NullString `db:"agency"`
	ReceiptDate   sql.NullTime   `db:"receipt_date"`
	Created       sql.NullTime   `db:"created_date"`
	Modified      sql.NullTime   `db:"modified_date"`
}

// Status codes with their descriptive labels.
var (
	POStatus = map[string]string{
		"3PRS": "3PRS - Ready to Send",
		"3PS":  "3PS - Sent",
		"3PRT": "3PRT - Returned",
		"3PRA": "3PRA - Ready for Approval",
		"3PPR": "3PPR - Partial Receipt",
		"3PI":  "3PI - In Progress",
		"3PCR": "3PCR - Completed Receipt",
		"3PCO": "3PCO - Closed",
	}

	InvoiceStatus = map[string]string{
		"4II":  "4II - In Progress",
		"4IR":  "4IR - Ready for Approval",
		"4IA":  "4IA - Approved for Payment",
		"4IP":  "4IP - Paid",
		"4IC":  "4IC - Cancelled",
		"4IRT": "4IRT - Returned",
	}
)

// Recode returns the label of a status code. Unknown codes are returned unchanged.
func Recode(labels map[string]string, code string) string {
	if label, ok := labels[code]; ok {
		return label
	}
	return code
}
