package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Standard GST slab codes. Codes are stable once referenced by an invoice.
const (
	TaxCodeGSTExempt = "GST_0"
	TaxCodeGST5      = "GST_5"
	TaxCodeGST12     = "GST_12"
	TaxCodeGST18     = "GST_18"
	TaxCodeGST28     = "GST_28"
)

// TaxDefinition is an org-scoped GST preset.
// For a slab of N percent CGST and SGST are N/2 each and IGST is N.
type TaxDefinition struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	OrgID snowflake.ID `gorm:"column:org_id;not null;uniqueIndex:ux_tax_definitions_org_code,priority:1"`

	Name     string          `gorm:"type:text;not null"`
	Code     string          `gorm:"type:text;not null;uniqueIndex:ux_tax_definitions_org_code,priority:2"`
	CGSTRate decimal.Decimal `gorm:"column:cgst_rate;type:numeric(5,2);not null;default:0"`
	SGSTRate decimal.Decimal `gorm:"column:sgst_rate;type:numeric(5,2);not null;default:0"`
	IGSTRate decimal.Decimal `gorm:"column:igst_rate;type:numeric(5,2);not null;default:0"`

	Description *string `gorm:"type:text"`

	IsEnabled bool `gorm:"column:is_enabled;not null;default:true"`
	IsDefault bool `gorm:"column:is_default;not null;default:false"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (TaxDefinition) TableName() string { return "tax_definitions" }

func (t *TaxDefinition) Rates() TaxRates {
	return TaxRates{CGSTRate: t.CGSTRate, SGSTRate: t.SGSTRate, IGSTRate: t.IGSTRate}
}

func (t *TaxDefinition) Validate() error {
	if t.Code == "" {
		return ErrInvalidTaxCode
	}
	if t.Name == "" {
		return ErrInvalidName
	}
	return t.Rates().Validate()
}

// GSTSlab describes a standard preset installed for new tenants.
type GSTSlab struct {
	Code string
	Name string
	Rate decimal.Decimal
}

// StandardGSTSlabs lists the Indian GST slabs.
func StandardGSTSlabs() []GSTSlab {
	return []GSTSlab{
		{Code: TaxCodeGSTExempt, Name: "GST Exempt", Rate: decimal.Zero},
		{Code: TaxCodeGST5, Name: "GST 5%", Rate: decimal.NewFromInt(5)},
		{Code: TaxCodeGST12, Name: "GST 12%", Rate: decimal.NewFromInt(12)},
		{Code: TaxCodeGST18, Name: "GST 18%", Rate: decimal.NewFromInt(18)},
		{Code: TaxCodeGST28, Name: "GST 28%", Rate: decimal.NewFromInt(28)},
	}
}

// SlabRates splits a combined GST rate into its CGST/SGST/IGST components.
func SlabRates(rate decimal.Decimal) TaxRates {
	half := rate.Div(decimal.NewFromInt(2))
	return TaxRates{CGSTRate: half, SGSTRate: half, IGSTRate: rate}
}
