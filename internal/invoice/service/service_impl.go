package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/edubill/internal/clock"
	invoicedomain "github.com/smallbiznis/edubill/internal/invoice/domain"
	numberdomain "github.com/smallbiznis/edubill/internal/invoicenumber/domain"
	"github.com/smallbiznis/edubill/internal/observability/metrics"
	"github.com/smallbiznis/edubill/internal/orgcontext"
	"github.com/smallbiznis/edubill/internal/providers/pdf"
	taxdomain "github.com/smallbiznis/edubill/internal/tax/domain"
	taxservice "github.com/smallbiznis/edubill/internal/tax/service"
	"github.com/smallbiznis/edubill/pkg/db"
	"github.com/smallbiznis/edubill/pkg/db/option"
	"github.com/smallbiznis/edubill/pkg/db/pagination"
	"github.com/smallbiznis/edubill/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultCurrency = "INR"

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Allocator   numberdomain.Allocator
	TaxResolver taxdomain.TaxResolver
	PDF         pdf.Provider     `optional:"true"`
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID       *snowflake.Node
	clock       clock.Clock
	allocator   numberdomain.Allocator
	taxResolver taxdomain.TaxResolver
	pdf         pdf.Provider
	metrics     *metrics.Metrics

	invoicerepo repository.Repository[invoicedomain.Invoice]
	itemrepo    repository.Repository[invoicedomain.InvoiceItem]
}

func NewService(p ServiceParam) invoicedomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		clock: clk,

		allocator:   p.Allocator,
		taxResolver: p.TaxResolver,
		pdf:         p.PDF,
		metrics:     p.Metrics,

		invoicerepo: repository.ProvideStore[invoicedomain.Invoice](p.DB),
		itemrepo:    repository.ProvideStore[invoicedomain.InvoiceItem](p.DB),
	}
}

type pricedDraft struct {
	breakdown       taxdomain.Breakdown
	taxDefinitionID *snowflake.ID
}

// Create prices the draft, allocates its number and stores it in one transaction.
// A failure after the number was committed rolls the number back with the invoice.
func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	mode, err := normalizeMode(req.NumberingMode)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	customerName := strings.TrimSpace(req.CustomerName)
	if customerName == "" {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidCustomer
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if len(currency) != 3 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidCurrency
	}
	if mode == invoicedomain.NumberingModeManual && strings.TrimSpace(req.InvoiceNumber) == "" {
		return invoicedomain.Invoice{}, numberdomain.ErrEmpty
	}

	priced, err := s.price(ctx, orgID, req.DraftRequest)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	now := s.clock.Now()
	issuedAt := now
	if req.IssuedAt != nil {
		issuedAt = req.IssuedAt.UTC()
	}
	metadata := datatypes.JSONMap{}
	for key, value := range req.Metadata {
		metadata[key] = value
	}

	totals := priced.breakdown.Totals
	invoice := invoicedomain.Invoice{
		ID:              s.genID.Generate(),
		OrgID:           orgID,
		NumberingMode:   mode,
		Status:          invoicedomain.InvoiceStatusIssued,
		SupplyType:      string(priced.breakdown.SupplyType),
		SupplierName:    strings.TrimSpace(req.SupplierName),
		SupplierAddress: strings.TrimSpace(req.SupplierAddress),
		SupplierGSTIN:   strings.ToUpper(strings.TrimSpace(req.SupplierGSTIN)),
		SupplierState:   strings.TrimSpace(req.SupplierState),
		PlaceOfSupply:   strings.TrimSpace(req.PlaceOfSupply),
		CustomerName:    customerName,
		CustomerEmail:   strings.TrimSpace(req.CustomerEmail),
		CustomerAddress: strings.TrimSpace(req.CustomerAddress),
		CustomerGSTIN:   strings.ToUpper(strings.TrimSpace(req.CustomerGSTIN)),
		TaxDefinitionID: priced.taxDefinitionID,
		CGSTRate:        priced.breakdown.Rates.CGSTRate,
		SGSTRate:        priced.breakdown.Rates.SGSTRate,
		IGSTRate:        priced.breakdown.Rates.IGSTRate,
		SubTotal:        totals.SubTotal,
		FlatAdjustment:  totals.FlatAdjustment,
		AdjustedTotal:   totals.AdjustedSubTotal,
		CGSTAmount:      totals.CGSTAmount,
		SGSTAmount:      totals.SGSTAmount,
		IGSTAmount:      totals.IGSTAmount,
		TotalTax:        totals.TotalTax,
		TotalAmount:     totals.TotalAmount,
		Currency:        currency,
		Notes:           strings.TrimSpace(req.Notes),
		IssuedAt:        issuedAt,
		DueAt:           req.DueAt,
		Metadata:        metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	items := make([]*invoicedomain.InvoiceItem, 0, len(priced.breakdown.Lines))
	for i, line := range priced.breakdown.Lines {
		items = append(items, &invoicedomain.InvoiceItem{
			ID:          s.genID.Generate(),
			OrgID:       orgID,
			InvoiceID:   invoice.ID,
			Position:    i + 1,
			Description: line.Item.Description,
			HSNSACCode:  line.Item.HSNSACCode,
			Quantity:    line.Item.Quantity,
			Unit:        line.Item.Unit,
			Rate:        line.Item.Rate,
			Amount:      line.Amount,
			CGSTAmount:  line.CGSTAmount,
			SGSTAmount:  line.SGSTAmount,
			IGSTAmount:  line.IGSTAmount,
			CreatedAt:   now,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allocator := s.allocator.WithTx(tx)

		var number string
		var err error
		switch mode {
		case invoicedomain.NumberingModeManual:
			number, err = allocator.CommitManual(ctx, orgID, req.InvoiceNumber)
		default:
			number, err = allocator.CommitAuto(ctx, orgID)
		}
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number

		if err := s.invoicerepo.WithTrx(tx).Create(ctx, &invoice); err != nil {
			// The invoices unique index backs up the number registry.
			if db.IsDuplicateKeyErr(err) {
				return numberdomain.ErrDuplicate
			}
			return err
		}
		return s.itemrepo.WithTrx(tx).BatchCreate(ctx, items)
	})
	if err != nil {
		if !isClientError(err) {
			s.log.Error("failed to create invoice",
				zap.String("org_id", orgID.String()),
				zap.String("numbering_mode", string(mode)),
				zap.Error(err),
			)
		}
		return invoicedomain.Invoice{}, err
	}

	for _, item := range items {
		invoice.Items = append(invoice.Items, *item)
	}

	s.metrics.RecordInvoiceIssued(ctx, invoice.SupplyType, string(mode))
	s.log.Info("invoice issued",
		zap.String("org_id", orgID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("numbering_mode", string(mode)),
		zap.String("total_amount", invoice.TotalAmount.String()),
	)
	return invoice, nil
}

// Preview prices a draft and suggests its number without persisting anything.
func (s *Service) Preview(ctx context.Context, req invoicedomain.DraftRequest) (invoicedomain.PreviewResponse, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return invoicedomain.PreviewResponse{}, err
	}

	priced, err := s.price(ctx, orgID, req)
	if err != nil {
		return invoicedomain.PreviewResponse{}, err
	}

	suggested, err := s.allocator.SuggestNext(ctx, orgID)
	if err != nil {
		return invoicedomain.PreviewResponse{}, err
	}

	return invoicedomain.PreviewResponse{
		SuggestedNumber: suggested,
		Breakdown:       priced.breakdown,
	}, nil
}

func (s *Service) price(ctx context.Context, orgID snowflake.ID, req invoicedomain.DraftRequest) (pricedDraft, error) {
	items, err := toLineItems(req.Items)
	if err != nil {
		return pricedDraft{}, err
	}

	var (
		rates        taxdomain.TaxRates
		definitionID *snowflake.ID
	)
	if req.Rates != nil {
		if err := req.Rates.Validate(); err != nil {
			return pricedDraft{}, err
		}
		rates = *req.Rates
	} else {
		var requested *snowflake.ID
		if req.TaxDefinitionID != nil && strings.TrimSpace(*req.TaxDefinitionID) != "" {
			id, err := snowflake.ParseString(strings.TrimSpace(*req.TaxDefinitionID))
			if err != nil {
				return pricedDraft{}, taxdomain.ErrInvalidID
			}
			requested = &id
		}
		resolved, def, err := s.taxResolver.ResolveForInvoice(ctx, orgID, requested)
		if err != nil {
			return pricedDraft{}, err
		}
		rates = resolved
		if def != nil {
			definitionID = &def.ID
		}
	}

	isInterState := taxservice.IsInterStateSupply(req.SupplierState, req.PlaceOfSupply)
	if req.IsInterState != nil {
		isInterState = *req.IsInterState
	}

	breakdown := taxservice.Calculate(items, isInterState, req.FlatAdjustment, rates)
	s.metrics.RecordTaxCalculation(ctx, string(breakdown.SupplyType))

	return pricedDraft{breakdown: breakdown, taxDefinitionID: definitionID}, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	filter := &invoicedomain.Invoice{OrgID: orgID}
	if req.Status != nil {
		filter.Status = *req.Status
	}
	if req.InvoiceNumber != nil {
		filter.InvoiceNumber = strings.TrimSpace(*req.InvoiceNumber)
	}

	limit := req.Size()
	options := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{SortBy: "id", Allow: map[string]bool{"id": true}}),
		option.WithLimit(limit + 1),
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidPageToken
		}
		cursorID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidPageToken
		}
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "id",
			Operator: option.LT,
			Value:    cursorID,
		}))
	}
	if req.CreatedFrom != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "created_at",
			Operator: option.GTE,
			Value:    *req.CreatedFrom,
		}))
	}
	if req.CreatedTo != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "created_at",
			Operator: option.LTE,
			Value:    *req.CreatedTo,
		}))
	}

	items, err := s.invoicerepo.Find(ctx, filter, options...)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}

	page, info := pagination.BuildCursorPageInfo(invoices, limit, func(inv invoicedomain.Invoice) string {
		return inv.ID.String()
	})
	return invoicedomain.ListInvoiceResponse{PageInfo: info, Invoices: page}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidInvoiceID
	}

	item, err := s.invoicerepo.FindOne(ctx, &invoicedomain.Invoice{ID: invoiceID, OrgID: orgID})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if item == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceNotFound
	}

	lines, err := s.itemrepo.Find(ctx,
		&invoicedomain.InvoiceItem{OrgID: orgID, InvoiceID: invoiceID},
		option.WithSortBy(option.QuerySortBy{SortBy: "position", OrderBy: "asc", Allow: map[string]bool{"position": true}}),
	)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	for _, line := range lines {
		if line != nil {
			item.Items = append(item.Items, *line)
		}
	}

	return *item, nil
}

// Void marks an issued invoice as void. The number stays claimed and is never reissued.
func (s *Service) Void(ctx context.Context, id string, reason string) (invoicedomain.Invoice, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidInvoiceID
	}
	reason = strings.TrimSpace(reason)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadInvoiceForUpdate(ctx, tx, orgID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		if invoice.Status == invoicedomain.InvoiceStatusVoid {
			return invoicedomain.ErrInvoiceAlreadyVoid
		}

		now := s.clock.Now()
		return tx.WithContext(ctx).Exec(
			`UPDATE invoices
			 SET status = ?, voided_at = ?, void_reason = ?, updated_at = ?
			 WHERE org_id = ? AND id = ?`,
			invoicedomain.InvoiceStatusVoid,
			now,
			reason,
			now,
			orgID,
			invoiceID,
		).Error
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.metrics.RecordInvoiceVoided(ctx)
	s.log.Info("invoice voided",
		zap.String("org_id", orgID.String()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("reason", reason),
	)
	return s.GetByID(ctx, id)
}

func (s *Service) loadInvoiceForUpdate(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("org_id = ? AND id = ?", orgID, id).
		Take(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (s *Service) orgIDFromContext(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, invoicedomain.ErrInvalidOrganization
	}
	return orgID, nil
}

func toLineItems(reqs []invoicedomain.LineItemRequest) ([]taxdomain.LineItem, error) {
	if len(reqs) == 0 {
		return nil, invoicedomain.ErrNoLineItems
	}
	items := make([]taxdomain.LineItem, 0, len(reqs))
	for _, req := range reqs {
		description := strings.TrimSpace(req.Description)
		if description == "" || !req.Quantity.IsPositive() || req.Rate.IsNegative() {
			return nil, invoicedomain.ErrInvalidLineItem
		}
		items = append(items, taxdomain.LineItem{
			Description: description,
			HSNSACCode:  strings.TrimSpace(req.HSNSACCode),
			Quantity:    req.Quantity,
			Unit:        strings.TrimSpace(req.Unit),
			Rate:        req.Rate,
		})
	}
	return items, nil
}

func normalizeMode(mode invoicedomain.NumberingMode) (invoicedomain.NumberingMode, error) {
	switch invoicedomain.NumberingMode(strings.ToLower(strings.TrimSpace(string(mode)))) {
	case "", invoicedomain.NumberingModeAuto:
		return invoicedomain.NumberingModeAuto, nil
	case invoicedomain.NumberingModeManual:
		return invoicedomain.NumberingModeManual, nil
	default:
		return "", invoicedomain.ErrInvalidNumberingMode
	}
}

func isClientError(err error) bool {
	var validation *numberdomain.ValidationError
	return errors.As(err, &validation) ||
		errors.Is(err, numberdomain.ErrInvalidTemplate) ||
		errors.Is(err, numberdomain.ErrAttemptsExhausted)
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, invoicedomain.ErrInvalidInvoiceID
	}
	return id, nil
}

var zero = decimal.Zero
