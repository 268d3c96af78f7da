package service

import (
	"strings"

	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/edubill/internal/tax/domain"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// CalculateLineItemTax computes the GST columns for one line.
// Intra-state supply applies CGST and SGST, inter-state supply applies IGST.
// Negative quantities or rates are taxed proportionally; validation belongs to the caller.
func CalculateLineItemTax(item taxdomain.LineItem, isInterState bool, rates taxdomain.TaxRates) taxdomain.LineItemTax {
	amount := item.Amount()
	out := taxdomain.LineItemTax{
		Item:       item,
		Amount:     amount,
		CGSTAmount: decimal.Zero,
		SGSTAmount: decimal.Zero,
		IGSTAmount: decimal.Zero,
	}
	if isInterState {
		out.IGSTAmount = percentOf(amount, rates.IGSTRate)
		return out
	}
	out.CGSTAmount = percentOf(amount, rates.CGSTRate)
	out.SGSTAmount = percentOf(amount, rates.SGSTRate)
	return out
}

// CalculateInvoiceTotals sums taxed lines. The flat adjustment is applied to the
// subtotal after tax has been computed on the original line amounts.
func CalculateInvoiceTotals(taxedItems []taxdomain.LineItemTax, flatAdjustment decimal.Decimal) taxdomain.InvoiceTotals {
	totals := taxdomain.InvoiceTotals{
		SubTotal:       decimal.Zero,
		FlatAdjustment: flatAdjustment,
		CGSTAmount:     decimal.Zero,
		SGSTAmount:     decimal.Zero,
		IGSTAmount:     decimal.Zero,
	}
	for _, line := range taxedItems {
		totals.SubTotal = totals.SubTotal.Add(line.Amount)
		totals.CGSTAmount = totals.CGSTAmount.Add(line.CGSTAmount)
		totals.SGSTAmount = totals.SGSTAmount.Add(line.SGSTAmount)
		totals.IGSTAmount = totals.IGSTAmount.Add(line.IGSTAmount)
	}
	totals.AdjustedSubTotal = totals.SubTotal.Add(flatAdjustment)
	totals.TotalTax = totals.CGSTAmount.Add(totals.SGSTAmount).Add(totals.IGSTAmount)
	totals.TotalAmount = totals.AdjustedSubTotal.Add(totals.TotalTax)
	return totals
}

// Calculate taxes every line and totals the result.
func Calculate(items []taxdomain.LineItem, isInterState bool, flatAdjustment decimal.Decimal, rates taxdomain.TaxRates) taxdomain.Breakdown {
	lines := make([]taxdomain.LineItemTax, 0, len(items))
	for _, item := range items {
		lines = append(lines, CalculateLineItemTax(item, isInterState, rates))
	}
	return taxdomain.Breakdown{
		SupplyType: taxdomain.SupplyTypeOf(isInterState),
		Rates:      rates,
		Lines:      lines,
		Totals:     CalculateInvoiceTotals(lines, flatAdjustment),
	}
}

// IsInterStateSupply compares the supplier's state code with the place of supply.
// Both values may be two-digit GST state codes or full GSTINs. When either side
// is unknown the supply is treated as intra-state.
func IsInterStateSupply(supplierState, placeOfSupply string) bool {
	a := stateCode(supplierState)
	b := stateCode(placeOfSupply)
	if a == "" || b == "" {
		return false
	}
	return a != b
}

func stateCode(value string) string {
	value = strings.TrimSpace(value)
	if len(value) < 2 {
		return ""
	}
	code := value[:2]
	if code[0] < '0' || code[0] > '9' || code[1] < '0' || code[1] > '9' {
		return ""
	}
	return code
}

func percentOf(amount, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(rate).Div(hundred)
}
