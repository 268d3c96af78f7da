package domain

import (
	"github.com/shopspring/decimal"
)

// SupplyType tells whether a supply stays within one state (CGST+SGST) or crosses states (IGST).
type SupplyType string

const (
	SupplyIntraState SupplyType = "intra_state"
	SupplyInterState SupplyType = "inter_state"
)

func SupplyTypeOf(isInterState bool) SupplyType {
	if isInterState {
		return SupplyInterState
	}
	return SupplyIntraState
}

// LineItem is one billable row of an invoice draft.
type LineItem struct {
	Description string          `json:"description"`
	HSNSACCode  string          `json:"hsn_sac_code"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	Rate        decimal.Decimal `json:"rate"`
}

// Amount is quantity * rate, unrounded.
func (l LineItem) Amount() decimal.Decimal {
	return l.Quantity.Mul(l.Rate)
}

// TaxRates holds GST percentages (0-100).
type TaxRates struct {
	CGSTRate decimal.Decimal `json:"cgst_rate"`
	SGSTRate decimal.Decimal `json:"sgst_rate"`
	IGSTRate decimal.Decimal `json:"igst_rate"`
}

var hundred = decimal.NewFromInt(100)

// Validate checks every rate is within [0, 100].
// The calculator itself accepts any rates.
func (r TaxRates) Validate() error {
	for _, rate := range []decimal.Decimal{r.CGSTRate, r.SGSTRate, r.IGSTRate} {
		if rate.IsNegative() || rate.GreaterThan(hundred) {
			return ErrInvalidTaxRate
		}
	}
	return nil
}

// LineItemTax is a line item with its computed GST columns.
type LineItemTax struct {
	Item       LineItem        `json:"item"`
	Amount     decimal.Decimal `json:"amount"`
	CGSTAmount decimal.Decimal `json:"cgst_amount"`
	SGSTAmount decimal.Decimal `json:"sgst_amount"`
	IGSTAmount decimal.Decimal `json:"igst_amount"`
}

func (t LineItemTax) TotalTax() decimal.Decimal {
	return t.CGSTAmount.Add(t.SGSTAmount).Add(t.IGSTAmount)
}

// InvoiceTotals aggregates taxed line items. Values are exact; round only for display.
type InvoiceTotals struct {
	SubTotal         decimal.Decimal `json:"sub_total"`
	FlatAdjustment   decimal.Decimal `json:"flat_adjustment"`
	AdjustedSubTotal decimal.Decimal `json:"adjusted_sub_total"`
	CGSTAmount       decimal.Decimal `json:"cgst_amount"`
	SGSTAmount       decimal.Decimal `json:"sgst_amount"`
	IGSTAmount       decimal.Decimal `json:"igst_amount"`
	TotalTax         decimal.Decimal `json:"total_tax"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
}

// Breakdown is the full result of taxing an invoice draft.
type Breakdown struct {
	SupplyType SupplyType    `json:"supply_type"`
	Rates      TaxRates      `json:"rates"`
	Lines      []LineItemTax `json:"lines"`
	Totals     InvoiceTotals `json:"totals"`
}
