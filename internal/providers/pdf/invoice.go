package pdf

import (
	"context"
	"errors"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var ErrMissingInvoiceNumber = errors.New("invoice pdf requires an invoice number")

type InvoiceData struct {
	SupplierName    string
	SupplierAddress string
	SupplierGSTIN   string

	InvoiceNumber string
	IssueDate     string
	DueDate       string
	PlaceOfSupply string
	SupplyType    string
	Status        string

	BillToName    string
	BillToAddress string
	BillToEmail   string
	BillToGSTIN   string

	Items []InvoiceItem

	SubTotal       string
	FlatAdjustment string
	CGST           string
	SGST           string
	IGST           string
	TotalTax       string
	Total          string
	Notes          string
}

type InvoiceItem struct {
	Description string
	HSNSACCode  string
	Quantity    string
	Unit        string
	Rate        string
	Amount      string
	Tax         string
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateInvoice(ctx context.Context, invoice InvoiceData) ([]byte, error) {
	if invoice.InvoiceNumber == "" {
		return nil, ErrMissingInvoiceNumber
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	title := "Tax Invoice"
	if invoice.Status == "VOID" {
		title = "Tax Invoice (VOID)"
	}
	m.AddRow(12,
		text.NewCol(8, invoice.SupplierName, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, title, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(16,
		col.New(6).Add(
			text.New(invoice.SupplierAddress, props.Text{Size: 9}),
			text.New(labelled("GSTIN", invoice.SupplierGSTIN), props.Text{Size: 9, Top: 8}),
		),
		col.New(6).Add(
			text.New("Invoice number: "+invoice.InvoiceNumber, props.Text{Size: 9, Align: align.Right}),
			text.New("Date of issue: "+invoice.IssueDate, props.Text{Size: 9, Top: 4, Align: align.Right}),
			text.New(labelled("Date due", invoice.DueDate), props.Text{Size: 9, Top: 8, Align: align.Right}),
		),
	)

	m.AddRow(26,
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(invoice.BillToName, props.Text{Top: 5}),
			text.New(invoice.BillToAddress, props.Text{Size: 9, Top: 10}),
			text.New(invoice.BillToEmail, props.Text{Size: 9, Top: 16}),
			text.New(labelled("GSTIN", invoice.BillToGSTIN), props.Text{Size: 9, Top: 20}),
		),
		col.New(6).Add(
			text.New(labelled("Place of supply", invoice.PlaceOfSupply), props.Text{Size: 9, Align: align.Right}),
			text.New(labelled("Supply", invoice.SupplyType), props.Text{Size: 9, Top: 4, Align: align.Right}),
		),
	)

	header := props.Text{Style: fontstyle.Bold, Size: 8}
	headerRight := props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}
	m.AddRow(8,
		text.NewCol(4, "Description", header),
		text.NewCol(2, "HSN/SAC", header),
		text.NewCol(1, "Qty", headerRight),
		text.NewCol(2, "Rate", headerRight),
		text.NewCol(1, "Tax", headerRight),
		text.NewCol(2, "Amount", headerRight),
	)

	cell := props.Text{Size: 8}
	cellRight := props.Text{Size: 8, Align: align.Right}
	for _, item := range invoice.Items {
		qty := item.Quantity
		if item.Unit != "" {
			qty += " " + item.Unit
		}
		m.AddRow(8,
			text.NewCol(4, item.Description, cell),
			text.NewCol(2, item.HSNSACCode, cell),
			text.NewCol(1, qty, cellRight),
			text.NewCol(2, item.Rate, cellRight),
			text.NewCol(1, item.Tax, cellRight),
			text.NewCol(2, item.Amount, cellRight),
		)
	}

	addTotal(m, "Subtotal", invoice.SubTotal, false)
	if invoice.FlatAdjustment != "" {
		addTotal(m, "Adjustment", invoice.FlatAdjustment, false)
	}
	if invoice.IGST != "" {
		addTotal(m, "IGST", invoice.IGST, false)
	} else {
		addTotal(m, "CGST", invoice.CGST, false)
		addTotal(m, "SGST", invoice.SGST, false)
	}
	addTotal(m, "Total tax", invoice.TotalTax, false)
	addTotal(m, "Total", invoice.Total, true)

	if invoice.Notes != "" {
		m.AddRow(14, text.NewCol(12, invoice.Notes, props.Text{Size: 8, Top: 4}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func addTotal(m core.Maroto, label, value string, bold bool) {
	style := props.Text{Size: 9}
	valueStyle := props.Text{Size: 9, Align: align.Right}
	if bold {
		style.Style = fontstyle.Bold
		valueStyle.Style = fontstyle.Bold
	}
	m.AddRow(7,
		col.New(8),
		text.NewCol(2, label, style),
		text.NewCol(2, value, valueStyle),
	)
}

func labelled(label, value string) string {
	if value == "" {
		return ""
	}
	return label + ": " + value
}
