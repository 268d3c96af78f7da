package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	taxdomain "github.com/smallbiznis/edubill/internal/tax/domain"
	"go.uber.org/fx"
)

type ResolverParam struct {
	fx.In

	Repository taxdomain.Repository
}

type resolver struct {
	repo taxdomain.Repository
}

func NewResolver(p ResolverParam) taxdomain.TaxResolver {
	return &resolver{repo: p.Repository}
}

func (r *resolver) ResolveForInvoice(ctx context.Context, orgID snowflake.ID, definitionID *snowflake.ID) (taxdomain.TaxRates, *taxdomain.TaxDefinition, error) {
	var (
		def *taxdomain.TaxDefinition
		err error
	)
	if definitionID != nil {
		def, err = r.repo.FindByID(ctx, orgID, *definitionID)
		if err != nil {
			return taxdomain.TaxRates{}, nil, err
		}
		if def == nil {
			return taxdomain.TaxRates{}, nil, taxdomain.ErrNotFound
		}
		if !def.IsEnabled {
			return taxdomain.TaxRates{}, nil, taxdomain.ErrTaxDefinitionDisabled
		}
		return def.Rates(), def, nil
	}

	def, err = r.repo.GetDefaultTaxDefinition(ctx, orgID)
	if err != nil {
		return taxdomain.TaxRates{}, nil, err
	}
	if def == nil {
		return taxdomain.TaxRates{CGSTRate: zero, SGSTRate: zero, IGSTRate: zero}, nil, nil
	}
	return def.Rates(), def, nil
}
