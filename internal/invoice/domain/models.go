// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusIssued InvoiceStatus = "ISSUED"
	InvoiceStatusVoid   InvoiceStatus = "VOID"
)

// NumberingMode records how the invoice number was chosen.
type NumberingMode string

const (
	NumberingModeAuto   NumberingMode = "auto"
	NumberingModeManual NumberingMode = "manual"
)

// Invoice is a committed GST invoice. Monetary columns keep full precision;
// rounding happens when the invoice is displayed.
type Invoice struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID           snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_invoices_org_number,priority:1" json:"organization_id"`
	InvoiceNumber   string            `gorm:"type:varchar(64);not null;uniqueIndex:ux_invoices_org_number,priority:2" json:"invoice_number"`
	NumberingMode   NumberingMode     `gorm:"type:varchar(16);not null" json:"numbering_mode"`
	Status          InvoiceStatus     `gorm:"type:varchar(16);not null;default:'ISSUED'" json:"status"`
	SupplyType      string            `gorm:"type:varchar(16);not null" json:"supply_type"`
	SupplierName    string            `gorm:"type:text" json:"supplier_name"`
	SupplierAddress string            `gorm:"type:text" json:"supplier_address,omitempty"`
	SupplierGSTIN   string            `gorm:"column:supplier_gstin;type:varchar(15)" json:"supplier_gstin,omitempty"`
	SupplierState   string            `gorm:"type:varchar(2)" json:"supplier_state,omitempty"`
	PlaceOfSupply   string            `gorm:"type:varchar(2)" json:"place_of_supply,omitempty"`
	CustomerName    string            `gorm:"type:text;not null" json:"customer_name"`
	CustomerEmail   string            `gorm:"type:text" json:"customer_email,omitempty"`
	CustomerAddress string            `gorm:"type:text" json:"customer_address,omitempty"`
	CustomerGSTIN   string            `gorm:"column:customer_gstin;type:varchar(15)" json:"customer_gstin,omitempty"`
	TaxDefinitionID *snowflake.ID     `gorm:"index" json:"tax_definition_id,omitempty"`
	CGSTRate        decimal.Decimal   `gorm:"column:cgst_rate;type:numeric;not null" json:"cgst_rate"`
	SGSTRate        decimal.Decimal   `gorm:"column:sgst_rate;type:numeric;not null" json:"sgst_rate"`
	IGSTRate        decimal.Decimal   `gorm:"column:igst_rate;type:numeric;not null" json:"igst_rate"`
	SubTotal        decimal.Decimal   `gorm:"column:sub_total;type:numeric;not null" json:"sub_total"`
	FlatAdjustment  decimal.Decimal   `gorm:"type:numeric;not null" json:"flat_adjustment"`
	AdjustedTotal   decimal.Decimal   `gorm:"column:adjusted_sub_total;type:numeric;not null" json:"adjusted_sub_total"`
	CGSTAmount      decimal.Decimal   `gorm:"column:cgst_amount;type:numeric;not null" json:"cgst_amount"`
	SGSTAmount      decimal.Decimal   `gorm:"column:sgst_amount;type:numeric;not null" json:"sgst_amount"`
	IGSTAmount      decimal.Decimal   `gorm:"column:igst_amount;type:numeric;not null" json:"igst_amount"`
	TotalTax        decimal.Decimal   `gorm:"type:numeric;not null" json:"total_tax"`
	TotalAmount     decimal.Decimal   `gorm:"type:numeric;not null" json:"total_amount"`
	Currency        string            `gorm:"type:varchar(3);not null" json:"currency"`
	Notes           string            `gorm:"type:text" json:"notes,omitempty"`
	IssuedAt        time.Time         `gorm:"not null" json:"issued_at"`
	DueAt           *time.Time        `json:"due_at,omitempty"`
	VoidedAt        *time.Time        `json:"voided_at,omitempty"`
	VoidReason      string            `gorm:"type:text" json:"void_reason,omitempty"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt       time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null" json:"updated_at"`

	Items []InvoiceItem `gorm:"-" json:"items,omitempty"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceItem represents a line on an invoice with its GST columns.
type InvoiceItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID    `gorm:"not null;index" json:"-"`
	InvoiceID   snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	Position    int             `gorm:"not null" json:"position"`
	Description string          `gorm:"type:text;not null" json:"description"`
	HSNSACCode  string          `gorm:"column:hsn_sac_code;type:varchar(16)" json:"hsn_sac_code,omitempty"`
	Quantity    decimal.Decimal `gorm:"type:numeric;not null" json:"quantity"`
	Unit        string          `gorm:"type:varchar(32)" json:"unit,omitempty"`
	Rate        decimal.Decimal `gorm:"type:numeric;not null" json:"rate"`
	Amount      decimal.Decimal `gorm:"type:numeric;not null" json:"amount"`
	CGSTAmount  decimal.Decimal `gorm:"column:cgst_amount;type:numeric;not null" json:"cgst_amount"`
	SGSTAmount  decimal.Decimal `gorm:"column:sgst_amount;type:numeric;not null" json:"sgst_amount"`
	IGSTAmount  decimal.Decimal `gorm:"column:igst_amount;type:numeric;not null" json:"igst_amount"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }
