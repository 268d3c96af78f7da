package domain

import "errors"

var (
	ErrInvalidOrganization   = errors.New("invalid_organization")
	ErrInvalidName           = errors.New("invalid_name")
	ErrInvalidID             = errors.New("invalid_id")
	ErrNotFound              = errors.New("not_found")
	ErrInvalidTaxCode        = errors.New("invalid_tax_code")
	ErrInvalidTaxRate        = errors.New("invalid_tax_rate")
	ErrDuplicateTaxCode      = errors.New("duplicate_tax_code")
	ErrTaxDefinitionDisabled = errors.New("tax_definition_disabled")
)
