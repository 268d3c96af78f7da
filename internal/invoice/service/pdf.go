package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/edubill/internal/invoice/domain"
	"github.com/smallbiznis/edubill/internal/invoice/format"
	"github.com/smallbiznis/edubill/internal/providers/pdf"
	taxdomain "github.com/smallbiznis/edubill/internal/tax/domain"
)

var ErrPDFNotConfigured = errors.New("pdf_renderer_not_configured")

func (s *Service) RenderPDF(ctx context.Context, id string) ([]byte, error) {
	if s.pdf == nil {
		return nil, ErrPDFNotConfigured
	}
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.pdf.GenerateInvoice(ctx, toPDFData(invoice))
}

func toPDFData(invoice invoicedomain.Invoice) pdf.InvoiceData {
	interState := invoice.SupplyType == string(taxdomain.SupplyInterState)

	data := pdf.InvoiceData{
		SupplierName:    invoice.SupplierName,
		SupplierAddress: invoice.SupplierAddress,
		SupplierGSTIN:   invoice.SupplierGSTIN,
		InvoiceNumber:   invoice.InvoiceNumber,
		IssueDate:       issuedDate(invoice.IssuedAt),
		PlaceOfSupply:   invoice.PlaceOfSupply,
		SupplyType:      invoice.SupplyType,
		Status:          string(invoice.Status),
		BillToName:      invoice.CustomerName,
		BillToAddress:   invoice.CustomerAddress,
		BillToEmail:     invoice.CustomerEmail,
		BillToGSTIN:     invoice.CustomerGSTIN,
		SubTotal:        format.Money(invoice.SubTotal),
		TotalTax:        format.Money(invoice.TotalTax),
		Total:           format.Rupees(invoice.TotalAmount),
		Notes:           invoice.Notes,
	}
	if invoice.DueAt != nil {
		data.DueDate = issuedDate(*invoice.DueAt)
	}
	if !invoice.FlatAdjustment.Equal(zero) {
		data.FlatAdjustment = format.Money(invoice.FlatAdjustment)
	}
	if interState {
		data.IGST = format.Money(invoice.IGSTAmount)
	} else {
		data.CGST = format.Money(invoice.CGSTAmount)
		data.SGST = format.Money(invoice.SGSTAmount)
	}

	taxRate := invoice.CGSTRate.Add(invoice.SGSTRate)
	if interState {
		taxRate = invoice.IGSTRate
	}
	for _, item := range invoice.Items {
		data.Items = append(data.Items, pdf.InvoiceItem{
			Description: item.Description,
			HSNSACCode:  item.HSNSACCode,
			Quantity:    item.Quantity.String(),
			Unit:        item.Unit,
			Rate:        format.Money(item.Rate),
			Amount:      format.Money(item.Amount),
			Tax:         percent(taxRate),
		})
	}
	return data
}

func percent(rate decimal.Decimal) string {
	return rate.String() + "%"
}

func issuedDate(t time.Time) string {
	return t.Format("2006-01-02")
}
