package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/edubill/internal/orgcontext"
	taxdomain "github.com/smallbiznis/edubill/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParams struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  taxdomain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  taxdomain.Repository
}

func NewService(p ServiceParams) taxdomain.Service {
	return &Service{
		log:   p.Log.Named("tax.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) List(ctx context.Context, req taxdomain.ListRequest) ([]taxdomain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, taxdomain.ErrInvalidOrganization
	}

	filter := taxdomain.ListRequest{
		Name:      strings.TrimSpace(req.Name),
		Code:      NormalizeCode(req.Code),
		IsEnabled: req.IsEnabled,
		SortBy:    strings.TrimSpace(req.SortBy),
		OrderBy:   strings.TrimSpace(req.OrderBy),
	}

	items, err := s.repo.List(ctx, orgID, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]taxdomain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(&item))
	}

	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*taxdomain.Response, error) {
	item, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Create(ctx context.Context, req taxdomain.CreateRequest) (*taxdomain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, taxdomain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, taxdomain.ErrInvalidName
	}

	code := NormalizeCode(req.Code)
	if code == "" {
		code = NormalizeCode(name)
	}

	rates := taxdomain.TaxRates{
		CGSTRate: decimalOrZero(req.CGSTRate),
		SGSTRate: decimalOrZero(req.SGSTRate),
		IGSTRate: decimalOrZero(req.IGSTRate),
	}
	if req.GSTRate != nil {
		rates = taxdomain.SlabRates(*req.GSTRate)
	}

	isEnabled := true
	if req.IsEnabled != nil {
		isEnabled = *req.IsEnabled
	}

	now := time.Now().UTC()
	record := &taxdomain.TaxDefinition{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		Name:        name,
		Code:        code,
		CGSTRate:    rates.CGSTRate,
		SGSTRate:    rates.SGSTRate,
		IGSTRate:    rates.IGSTRate,
		Description: trimmedPtr(req.Description),
		IsEnabled:   isEnabled,
		IsDefault:   req.IsDefault && isEnabled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	if record.IsDefault {
		if err := s.repo.ClearDefault(ctx, orgID); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	s.log.Info("tax definition created",
		zap.String("org_id", orgID.String()),
		zap.String("code", record.Code),
	)

	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req taxdomain.UpdateRequest) (*taxdomain.Response, error) {
	item, err := s.find(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, taxdomain.ErrInvalidName
		}
		item.Name = name
	}
	if req.CGSTRate != nil {
		item.CGSTRate = *req.CGSTRate
	}
	if req.SGSTRate != nil {
		item.SGSTRate = *req.SGSTRate
	}
	if req.IGSTRate != nil {
		item.IGSTRate = *req.IGSTRate
	}
	if req.Description != nil {
		item.Description = trimmedPtr(req.Description)
	}
	if req.IsDefault != nil {
		if *req.IsDefault && !item.IsEnabled {
			return nil, taxdomain.ErrTaxDefinitionDisabled
		}
		if *req.IsDefault && !item.IsDefault {
			if err := s.repo.ClearDefault(ctx, item.OrgID); err != nil {
				return nil, err
			}
		}
		item.IsDefault = *req.IsDefault
	}

	item.UpdatedAt = time.Now().UTC()
	if err := item.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Disable(ctx context.Context, id string) (*taxdomain.Response, error) {
	item, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	item.IsEnabled = false
	item.IsDefault = false
	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}

	resp := toResponse(item)
	return &resp, nil
}

// InstallPresets creates the standard GST slabs that the tenant does not have yet.
// GST 18% becomes the default when the tenant has none.
func (s *Service) InstallPresets(ctx context.Context) ([]taxdomain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, taxdomain.ErrInvalidOrganization
	}

	current, err := s.repo.GetDefaultTaxDefinition(ctx, orgID)
	if err != nil {
		return nil, err
	}
	hasDefault := current != nil

	created := make([]taxdomain.Response, 0)
	for _, slab := range taxdomain.StandardGSTSlabs() {
		existing, err := s.repo.FindByCode(ctx, orgID, slab.Code)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}
		rate := slab.Rate
		resp, err := s.Create(ctx, taxdomain.CreateRequest{
			Code:      slab.Code,
			Name:      slab.Name,
			GSTRate:   &rate,
			IsDefault: !hasDefault && slab.Code == taxdomain.TaxCodeGST18,
		})
		if err != nil {
			return nil, err
		}
		created = append(created, *resp)
	}
	return created, nil
}

func (s *Service) find(ctx context.Context, id string) (*taxdomain.TaxDefinition, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, taxdomain.ErrInvalidOrganization
	}

	defID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, taxdomain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, orgID, defID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, taxdomain.ErrNotFound
	}
	return item, nil
}

// NormalizeCode turns free text into a stable upper snake case code, e.g. "gst 18" -> "GST_18".
func NormalizeCode(raw string) string {
	value := slug.Make(strings.TrimSpace(raw))
	return strings.ToUpper(strings.ReplaceAll(value, "-", "_"))
}

func toResponse(def *taxdomain.TaxDefinition) taxdomain.Response {
	return taxdomain.Response{
		ID:             def.ID.String(),
		OrganizationID: def.OrgID.String(),
		Code:           def.Code,
		Name:           def.Name,
		CGSTRate:       def.CGSTRate,
		SGSTRate:       def.SGSTRate,
		IGSTRate:       def.IGSTRate,
		Description:    def.Description,
		IsEnabled:      def.IsEnabled,
		IsDefault:      def.IsDefault,
		CreatedAt:      def.CreatedAt,
		UpdatedAt:      def.UpdatedAt,
	}
}

func decimalOrZero(value *decimal.Decimal) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return *value
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
