package citibuy

import (
	"context"
	"time"

	"github.com/agentstation/fiscal/pkg/logging"
)

const purchaseOrdersQuery = `
SELECT
    po.PO_NBR                AS po_nbr,
    po.RELEASE_NBR           AS release_nbr,
    po.DEPT_NBR_PREFIX_REF   AS agency,
    po.CURRENT_HDR_STATUS    AS status,
    po.PO_DATE               AS po_date,
    po.ACTUAL_COST           AS cost,
    po.SHORT_DESC            AS description,
    po.PURCHASER             AS buyer,
    po.LOC_ID                AS loc_id,
    v.VENDOR_NBR             AS vendor_id,
    v.NAME                   AS vendor_name,
    v.EMA_CONTACT_NAME       AS contact,
    v.EMA_EMAIL              AS email,
    v.EMA_PHONE              AS phone,
    a.ADDRESS_LINE1          AS street,
    a.CITY                   AS city,
    a.STATE                  AS state,
    a.ZIP_CODE               AS zip,
    c.DEPT_NBR_PRFX          AS contract_agency,
    c.BLANKET_BEG_DATE       AS start_date,
    c.BLANKET_END_DATE       AS end_date,
    c.BLANKET_DOLLAR_LIMIT   AS dollar_limit,
    c.BLANKET_DOLLAR_TODATE  AS dollar_spent
FROM PO_HEADER po
JOIN VENDOR v
    ON v.VENDOR_NBR = po.VEND_ID
LEFT JOIN BLANKET_CONTROL c
    ON c.PO_NBR = po.PO_NBR
    AND c.RELEASE_NBR = 0
    AND c.DEPT_NBR_PRFX IN ('AGY', 'DGS')
LEFT JOIN VENDOR_ADDRESS va
    ON va.VENDOR_NBR = v.VENDOR_NBR
    AND va.ADDRESS_TYPE = 'M'
    AND va.DEFAULT_FLAG = 'Y'
LEFT JOIN ADDRESS a
    ON a.ADDRESS_ID = va.ADDRESS_ID
WHERE (c.DEPT_NBR_PRFX IS NULL OR c.BLANKET_END_DATE > ?)
    AND (po.DEPT_NBR_PREFIX_REF = 'DGS' OR (po.RELEASE_NBR = 0 AND c.DEPT_NBR_PRFX IN ('AGY', 'DGS')))
    AND po.CURRENT_HDR_STATUS NOT IN ('3PCO', '3PCA')
ORDER BY po.PO_NBR, po.RELEASE_NBR, c.DEPT_NBR_PRFX DESC
LIMIT ?`

const invoicesQuery = `
SELECT
    i.ID                     AS id,
    i.PO_NBR                 AS po_nbr,
    i.RELEASE_NBR            AS release_nbr,
    i.VENDOR_NBR             AS vendor_id,
    v.NAME                   AS vendor_name,
    i.INVOICE_NBR            AS invoice_nbr,
    i.INVOICE_DATE           AS invoice_date,
    i.INVOICE_AMT            AS amount,
    i.INVOICE_STATUS         AS status,
    i.DATE_LAST_UPDATED      AS modified,
    po.CURRENT_HDR_STATUS    AS po_status,
    po.PO_DATE               AS po_date,
    po.ACTUAL_COST           AS po_cost,
    c.DEPT_NBR_PRFX          AS contract_agency,
    c.BLANKET_END_DATE       AS contract_end_date,
    c.BLANKET_DOLLAR_LIMIT   AS contract_dollar_limit,
    c.BLANKET_DOLLAR_TODATE  AS contract_amount_spent
FROM INVOICE_HDR i
JOIN VENDOR v
    ON v.VENDOR_NBR = i.VENDOR_NBR
JOIN PO_HEADER po
    ON po.PO_NBR = i.PO_NBR
    AND po.RELEASE_NBR = i.RELEASE_NBR
LEFT JOIN BLANKET_CONTROL c
    ON c.PO_NBR = i.PO_NBR
    AND c.RELEASE_NBR = 0
    AND c.DEPT_NBR_PRFX = 'DGS'
WHERE po.DEPT_NBR_PREFIX_REF = 'DGS'
    AND (i.INVOICE_STATUS NOT IN ('4IP', '4IC') OR i.DATE_LAST_UPDATED > ?)
ORDER BY i.ID
LIMIT ?`

const receiptsQuery = `
SELECT
    r.RECEIPT_ID          AS receipt_id,
    r.PO_NBR              AS po_nbr,
    r.RELEASE_NBR         AS release_nbr,
    r.CURRENT_HDR_STATUS  AS status,
    r.RECEIPT_OWNER_ID    AS owner,
    r.LOCATION_NBR        AS loc_id,
    r.SHORT_DESC          AS description,
    r.DEPT_NBR_PREFIX     AS agency,
    r.RECEIPT_DATE        AS receipt_date,
    r.DATE_CREATED        AS created_date,
    r.DATE_LAST_UPDATED   AS modified_date
FROM RECEIPT_HEADER r
WHERE r.DEPT_NBR_PREFIX = 'DGS'
    AND r.DATE_CREATED > ?
ORDER BY r.RECEIPT_ID
LIMIT ?`

// cutoff returns the start of the day `days` days before asOf, in UTC.
func cutoff(asOf time.Time, days int) time.Time {
	y, m, d := asOf.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)
}

// PurchaseOrders returns the open market POs, DGS releases, and blanket POs on DGS or
// AGY contracts that are not closed, excluding contracts that ended more than
// closedWindow days before asOf.
func (c *Client) PurchaseOrders(ctx context.Context, asOf time.Time, closedWindow int) ([]PurchaseOrder, error) {
	var rows []PurchaseOrder
	if err := c.selectAll(ctx, &rows, "purchase orders", purchaseOrdersQuery, cutoff(asOf, closedWindow), c.limit); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug().
		Int("rows", len(rows)).
		Msg("Queried purchase orders")
	return rows, nil
}

// Invoices returns the invoices on DGS POs that are still open, or that were paid or
// cancelled within modifiedWindow days before asOf.
func (c *Client) Invoices(ctx context.Context, asOf time.Time, modifiedWindow int) ([]Invoice, error) {
	var rows []Invoice
	if err := c.selectAll(ctx, &rows, "invoices", invoicesQuery, cutoff(asOf, modifiedWindow), c.limit); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug().
		Int("rows", len(rows)).
		Msg("Queried invoices")
	return rows, nil
}

// Receipts returns the DGS receipts created within window days before asOf.
func (c *Client) Receipts(ctx context.Context, asOf time.Time, window int) ([]Receipt, error) {
	var rows []Receipt
	if err := c.selectAll(ctx, &rows, "receipts", receiptsQuery, cutoff(asOf, window), c.limit); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug().
		Int("rows", len(rows)).
		Msg("Queried receipts")
	return rows, nil
}
