package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/edubill/internal/clock"
	"github.com/smallbiznis/edubill/internal/config"
	invoicedomain "github.com/smallbiznis/edubill/internal/invoice/domain"
	numberdomain "github.com/smallbiznis/edubill/internal/invoicenumber/domain"
	numberrepository "github.com/smallbiznis/edubill/internal/invoicenumber/repository"
	numberservice "github.com/smallbiznis/edubill/internal/invoicenumber/service"
	"github.com/smallbiznis/edubill/internal/orgcontext"
	"github.com/smallbiznis/edubill/internal/providers/pdf"
	taxdomain "github.com/smallbiznis/edubill/internal/tax/domain"
	taxrepository "github.com/smallbiznis/edubill/internal/tax/repository"
	taxservice "github.com/smallbiznis/edubill/internal/tax/service"
	"github.com/smallbiznis/edubill/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testOrg = snowflake.ID(5150)

type fixture struct {
	db        *gorm.DB
	svc       invoicedomain.Service
	allocator numberdomain.Allocator
	ctx       context.Context
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.NewSQLite(t,
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&numberdomain.Sequence{},
		&numberdomain.Claim{},
		&numberdomain.TemplateRecord{},
		&taxdomain.TaxDefinition{},
	)
	node, err := snowflake.NewNode(9)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC))

	allocator := numberservice.NewAllocator(numberservice.AllocatorParams{
		Store:  numberrepository.NewRepository(conn),
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clk,
		Config: config.NewStaticNumberingConfigHolder(config.DefaultNumberingConfig()),
	})
	resolver := taxservice.NewResolver(taxservice.ResolverParam{Repository: taxrepository.NewRepository(conn)})

	svc := NewService(ServiceParam{
		DB:          conn,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Allocator:   allocator,
		TaxResolver: resolver,
		PDF:         pdf.New(),
	})

	return fixture{
		db:        conn,
		svc:       svc,
		allocator: allocator,
		ctx:       orgcontext.WithOrgID(context.Background(), testOrg),
	}
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func tuitionDraft() invoicedomain.DraftRequest {
	return invoicedomain.DraftRequest{
		SupplierName:  "Springfield Academy",
		SupplierGSTIN: "29ABCDE1234F1Z5",
		SupplierState: "29",
		PlaceOfSupply: "29",
		Rates: &taxdomain.TaxRates{
			CGSTRate: dec("9"),
			SGSTRate: dec("9"),
			IGSTRate: dec("18"),
		},
		Items: []invoicedomain.LineItemRequest{
			{Description: "Tuition fee", HSNSACCode: "999293", Quantity: dec("10"), Unit: "hrs", Rate: dec("100")},
		},
	}
}

func createRequest(mode invoicedomain.NumberingMode, number string) invoicedomain.CreateInvoiceRequest {
	return invoicedomain.CreateInvoiceRequest{
		DraftRequest:  tuitionDraft(),
		NumberingMode: mode,
		InvoiceNumber: number,
		CustomerName:  "Lisa Simpson",
		CustomerEmail: "lisa@example.com",
	}
}

func TestCreateIntraStateAutoNumbered(t *testing.T) {
	f := newFixture(t)

	invoice, err := f.svc.Create(f.ctx, createRequest("", ""))
	require.NoError(t, err)

	assert.Equal(t, "INV-0001", invoice.InvoiceNumber)
	assert.Equal(t, invoicedomain.NumberingModeAuto, invoice.NumberingMode)
	assert.Equal(t, invoicedomain.InvoiceStatusIssued, invoice.Status)
	assert.Equal(t, string(taxdomain.SupplyIntraState), invoice.SupplyType)
	assert.Equal(t, "INR", invoice.Currency)
	assert.True(t, invoice.SubTotal.Equal(dec("1000")))
	assert.True(t, invoice.CGSTAmount.Equal(dec("90")))
	assert.True(t, invoice.SGSTAmount.Equal(dec("90")))
	assert.True(t, invoice.IGSTAmount.IsZero())
	assert.True(t, invoice.TotalAmount.Equal(dec("1180")))
	require.Len(t, invoice.Items, 1)

	stored, err := f.svc.GetByID(f.ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", stored.InvoiceNumber)
	assert.True(t, stored.TotalAmount.Equal(dec("1180")), stored.TotalAmount.String())
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "Tuition fee", stored.Items[0].Description)
	assert.True(t, stored.Items[0].CGSTAmount.Equal(dec("90")))

	next, err := f.svc.Create(f.ctx, createRequest(invoicedomain.NumberingModeAuto, ""))
	require.NoError(t, err)
	assert.Equal(t, "INV-0002", next.InvoiceNumber)
}

func TestCreateInterStateUsesDefaultTaxDefinition(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	def := taxdomain.TaxDefinition{
		ID:        snowflake.ID(77),
		OrgID:     testOrg,
		Name:      "GST 18%",
		Code:      taxdomain.TaxCodeGST18,
		CGSTRate:  dec("9"),
		SGSTRate:  dec("9"),
		IGSTRate:  dec("18"),
		IsEnabled: true,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.db.Create(&def).Error)

	req := createRequest(invoicedomain.NumberingModeAuto, "")
	req.Rates = nil
	req.PlaceOfSupply = "27"
	req.Items = []invoicedomain.LineItemRequest{
		{Description: "Hostel fee", Quantity: dec("1"), Rate: dec("1000")},
		{Description: "Library fee", Quantity: dec("2"), Rate: dec("250")},
	}
	req.FlatAdjustment = dec("-100")

	invoice, err := f.svc.Create(f.ctx, req)
	require.NoError(t, err)

	assert.Equal(t, string(taxdomain.SupplyInterState), invoice.SupplyType)
	require.NotNil(t, invoice.TaxDefinitionID)
	assert.Equal(t, def.ID, *invoice.TaxDefinitionID)
	assert.True(t, invoice.SubTotal.Equal(dec("1500")))
	assert.True(t, invoice.IGSTAmount.Equal(dec("270")))
	assert.True(t, invoice.CGSTAmount.IsZero())
	// The flat adjustment itself is never taxed.
	assert.True(t, invoice.AdjustedTotal.Equal(dec("1400")))
	assert.True(t, invoice.TotalAmount.Equal(dec("1670")))
}

func TestCreateExplicitSupplyTypeWins(t *testing.T) {
	f := newFixture(t)
	inter := true

	req := createRequest("", "")
	req.IsInterState = &inter

	invoice, err := f.svc.Create(f.ctx, req)
	require.NoError(t, err)
	assert.True(t, invoice.IGSTAmount.Equal(dec("180")))
}

func TestCreateManualNumbering(t *testing.T) {
	f := newFixture(t)

	invoice, err := f.svc.Create(f.ctx, createRequest(invoicedomain.NumberingModeManual, "  EDU/2026/7 "))
	require.NoError(t, err)
	assert.Equal(t, "EDU/2026/7", invoice.InvoiceNumber)
	assert.Equal(t, invoicedomain.NumberingModeManual, invoice.NumberingMode)

	_, err = f.svc.Create(f.ctx, createRequest(invoicedomain.NumberingModeManual, "EDU/2026/7"))
	assert.ErrorIs(t, err, numberdomain.ErrDuplicate)

	var count int64
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = f.svc.Create(f.ctx, createRequest(invoicedomain.NumberingModeManual, "   "))
	assert.ErrorIs(t, err, numberdomain.ErrEmpty)
}

func TestCreateAutoSkipsManualNumber(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, createRequest(invoicedomain.NumberingModeManual, "INV-0001"))
	require.NoError(t, err)

	invoice, err := f.svc.Create(f.ctx, createRequest(invoicedomain.NumberingModeAuto, ""))
	require.NoError(t, err)
	assert.Equal(t, "INV-0002", invoice.InvoiceNumber)
}

func TestCreateRejectsInvalidDrafts(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name   string
		mutate func(*invoicedomain.CreateInvoiceRequest)
		err    error
	}{
		{"no items", func(r *invoicedomain.CreateInvoiceRequest) { r.Items = nil }, invoicedomain.ErrNoLineItems},
		{"zero quantity", func(r *invoicedomain.CreateInvoiceRequest) { r.Items[0].Quantity = decimal.Zero }, invoicedomain.ErrInvalidLineItem},
		{"negative rate", func(r *invoicedomain.CreateInvoiceRequest) { r.Items[0].Rate = dec("-1") }, invoicedomain.ErrInvalidLineItem},
		{"blank description", func(r *invoicedomain.CreateInvoiceRequest) { r.Items[0].Description = " " }, invoicedomain.ErrInvalidLineItem},
		{"bad mode", func(r *invoicedomain.CreateInvoiceRequest) { r.NumberingMode = "random" }, invoicedomain.ErrInvalidNumberingMode},
		{"no customer", func(r *invoicedomain.CreateInvoiceRequest) { r.CustomerName = "" }, invoicedomain.ErrInvalidCustomer},
		{"bad currency", func(r *invoicedomain.CreateInvoiceRequest) { r.Currency = "RUPEE" }, invoicedomain.ErrInvalidCurrency},
		{"rate out of range", func(r *invoicedomain.CreateInvoiceRequest) { r.Rates.CGSTRate = dec("101") }, taxdomain.ErrInvalidTaxRate},
		{"unknown tax definition", func(r *invoicedomain.CreateInvoiceRequest) {
			id := "12345"
			r.Rates = nil
			r.TaxDefinitionID = &id
		}, taxdomain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := createRequest("", "")
			tc.mutate(&req)
			_, err := f.svc.Create(f.ctx, req)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	counter, err := numberrepository.NewRepository(f.db).CurrentCounter(context.Background(), testOrg)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counter, "rejected drafts must not consume numbers")
}

func TestCreateRequiresOrganization(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), createRequest("", ""))
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidOrganization)
}

func TestPreviewHasNoSideEffects(t *testing.T) {
	f := newFixture(t)

	preview, err := f.svc.Preview(f.ctx, tuitionDraft())
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", preview.SuggestedNumber)
	assert.True(t, preview.Breakdown.Totals.TotalAmount.Equal(dec("1180")))

	again, err := f.svc.Preview(f.ctx, tuitionDraft())
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", again.SuggestedNumber)

	var count int64
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestVoidKeepsNumberClaimed(t *testing.T) {
	f := newFixture(t)

	invoice, err := f.svc.Create(f.ctx, createRequest("", ""))
	require.NoError(t, err)

	voided, err := f.svc.Void(f.ctx, invoice.ID.String(), " duplicate billing ")
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusVoid, voided.Status)
	assert.Equal(t, "duplicate billing", voided.VoidReason)
	assert.NotNil(t, voided.VoidedAt)

	_, err = f.svc.Void(f.ctx, invoice.ID.String(), "")
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceAlreadyVoid)

	result, err := f.allocator.Validate(f.ctx, testOrg, invoice.InvoiceNumber)
	require.NoError(t, err)
	assert.Equal(t, numberdomain.ReasonDuplicate, result.Reason)
}

func TestGetByIDScopedToOrganization(t *testing.T) {
	f := newFixture(t)

	invoice, err := f.svc.Create(f.ctx, createRequest("", ""))
	require.NoError(t, err)

	other := orgcontext.WithOrgID(context.Background(), snowflake.ID(9999))
	_, err = f.svc.GetByID(other, invoice.ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)

	_, err = f.svc.GetByID(f.ctx, "not-an-id")
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidInvoiceID)
}

func TestListPaginates(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(f.ctx, createRequest("", ""))
		require.NoError(t, err)
	}

	req := invoicedomain.ListInvoiceRequest{}
	req.PageSize = 2
	first, err := f.svc.List(f.ctx, req)
	require.NoError(t, err)
	require.Len(t, first.Invoices, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "INV-0003", first.Invoices[0].InvoiceNumber)
	require.NotEmpty(t, first.NextPageToken)

	req.PageToken = first.NextPageToken
	second, err := f.svc.List(f.ctx, req)
	require.NoError(t, err)
	require.Len(t, second.Invoices, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, "INV-0001", second.Invoices[0].InvoiceNumber)

	req.PageToken = "%%%"
	_, err = f.svc.List(f.ctx, req)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPageToken)

	number := "INV-0002"
	filtered, err := f.svc.List(f.ctx, invoicedomain.ListInvoiceRequest{InvoiceNumber: &number})
	require.NoError(t, err)
	require.Len(t, filtered.Invoices, 1)
	assert.Equal(t, number, filtered.Invoices[0].InvoiceNumber)
}

func TestRenderPDF(t *testing.T) {
	f := newFixture(t)

	invoice, err := f.svc.Create(f.ctx, createRequest("", ""))
	require.NoError(t, err)

	doc, err := f.svc.RenderPDF(f.ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}

func TestToPDFDataFormatsAmounts(t *testing.T) {
	data := toPDFData(invoicedomain.Invoice{
		InvoiceNumber:  "INV-0001",
		SupplyType:     string(taxdomain.SupplyIntraState),
		CGSTRate:       dec("2.5"),
		SGSTRate:       dec("2.5"),
		SubTotal:       dec("333.333"),
		FlatAdjustment: dec("0"),
		CGSTAmount:     dec("8.333325"),
		SGSTAmount:     dec("8.333325"),
		TotalTax:       dec("16.66665"),
		TotalAmount:    dec("349.99965"),
		IssuedAt:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Items: []invoicedomain.InvoiceItem{
			{Description: "Lab fee", Quantity: dec("3"), Rate: dec("111.111"), Amount: dec("333.333")},
		},
	})

	assert.Equal(t, "2026-04-01", data.IssueDate)
	assert.Equal(t, "333.33", data.SubTotal)
	assert.Equal(t, "8.33", data.CGST)
	assert.Empty(t, data.IGST)
	assert.Empty(t, data.FlatAdjustment)
	assert.Equal(t, "5%", data.Items[0].Tax)
	assert.Equal(t, "111.11", data.Items[0].Rate)
}
