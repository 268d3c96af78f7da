package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// TaxResolver returns the GST rates an invoice should use.
// A nil definitionID selects the tenant default; no default yields zero rates.
type TaxResolver interface {
	ResolveForInvoice(ctx context.Context, orgID snowflake.ID, definitionID *snowflake.ID) (TaxRates, *TaxDefinition, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Disable(ctx context.Context, id string) (*Response, error)
	InstallPresets(ctx context.Context) ([]Response, error)
}

type ListRequest struct {
	Name      string
	Code      string
	IsEnabled *bool
	SortBy    string
	OrderBy   string
}

// CreateRequest accepts either explicit component rates or a combined GST rate.
type CreateRequest struct {
	Code        string           `json:"code"`
	Name        string           `json:"name"`
	GSTRate     *decimal.Decimal `json:"gst_rate,omitempty"`
	CGSTRate    *decimal.Decimal `json:"cgst_rate,omitempty"`
	SGSTRate    *decimal.Decimal `json:"sgst_rate,omitempty"`
	IGSTRate    *decimal.Decimal `json:"igst_rate,omitempty"`
	Description *string          `json:"description"`
	IsEnabled   *bool            `json:"is_enabled"`
	IsDefault   bool             `json:"is_default"`
}

type UpdateRequest struct {
	ID          string           `json:"id"`
	Name        *string          `json:"name,omitempty"`
	CGSTRate    *decimal.Decimal `json:"cgst_rate,omitempty"`
	SGSTRate    *decimal.Decimal `json:"sgst_rate,omitempty"`
	IGSTRate    *decimal.Decimal `json:"igst_rate,omitempty"`
	Description *string          `json:"description,omitempty"`
	IsDefault   *bool            `json:"is_default,omitempty"`
}

type Response struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	CGSTRate       decimal.Decimal `json:"cgst_rate"`
	SGSTRate       decimal.Decimal `json:"sgst_rate"`
	IGSTRate       decimal.Decimal `json:"igst_rate"`
	Description    *string         `json:"description,omitempty"`
	IsEnabled      bool            `json:"is_enabled"`
	IsDefault      bool            `json:"is_default"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
