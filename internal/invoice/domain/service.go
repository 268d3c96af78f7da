package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/edubill/internal/tax/domain"
	"github.com/smallbiznis/edubill/pkg/db/pagination"
)

type LineItemRequest struct {
	Description string          `json:"description"`
	HSNSACCode  string          `json:"hsn_sac_code"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	Rate        decimal.Decimal `json:"rate"`
}

// DraftRequest carries everything needed to price an invoice.
// IsInterState wins over the state codes; without either the supply is intra-state.
// Rates wins over TaxDefinitionID; without either the tenant default applies.
type DraftRequest struct {
	SupplierName    string              `json:"supplier_name"`
	SupplierAddress string              `json:"supplier_address"`
	SupplierGSTIN   string              `json:"supplier_gstin"`
	SupplierState   string              `json:"supplier_state"`
	PlaceOfSupply   string              `json:"place_of_supply"`
	IsInterState    *bool               `json:"is_inter_state,omitempty"`
	TaxDefinitionID *string             `json:"tax_definition_id,omitempty"`
	Rates           *taxdomain.TaxRates `json:"rates,omitempty"`
	FlatAdjustment  decimal.Decimal     `json:"flat_adjustment"`
	Items           []LineItemRequest   `json:"items"`
}

type CreateInvoiceRequest struct {
	DraftRequest

	NumberingMode   NumberingMode  `json:"numbering_mode"`
	InvoiceNumber   string         `json:"invoice_number,omitempty"`
	CustomerName    string         `json:"customer_name"`
	CustomerEmail   string         `json:"customer_email"`
	CustomerAddress string         `json:"customer_address"`
	CustomerGSTIN   string         `json:"customer_gstin"`
	Currency        string         `json:"currency"`
	Notes           string         `json:"notes"`
	IssuedAt        *time.Time     `json:"issued_at,omitempty"`
	DueAt           *time.Time     `json:"due_at,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

type PreviewResponse struct {
	SuggestedNumber string              `json:"suggested_number"`
	Breakdown       taxdomain.Breakdown `json:"breakdown"`
}

type ListInvoiceRequest struct {
	pagination.Pagination

	Status        *InvoiceStatus
	InvoiceNumber *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	Preview(ctx context.Context, req DraftRequest) (PreviewResponse, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	Void(ctx context.Context, id string, reason string) (Invoice, error)
	RenderPDF(ctx context.Context, id string) ([]byte, error)
}

var (
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrInvalidInvoiceID     = errors.New("invalid_invoice_id")
	ErrInvoiceNotFound      = errors.New("invoice_not_found")
	ErrInvoiceAlreadyVoid   = errors.New("invoice_already_void")
	ErrNoLineItems          = errors.New("invoice_requires_line_items")
	ErrInvalidLineItem      = errors.New("invalid_line_item")
	ErrInvalidNumberingMode = errors.New("invalid_numbering_mode")
	ErrInvalidCustomer      = errors.New("invalid_customer")
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrInvalidPageToken     = errors.New("invalid_page_token")
)
