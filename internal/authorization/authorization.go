package authorization

import (
	"context"
	"errors"
)

var (
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidRole         = errors.New("invalid_role")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidObject       = errors.New("invalid_object")
	ErrInvalidAction       = errors.New("invalid_action")
	ErrForbidden           = errors.New("forbidden")
)

// Roles as issued by the LMS. super_admin inherits every system_admin grant.
const (
	RoleSuperAdmin  = "super_admin"
	RoleSystemAdmin = "system_admin"
	RoleAccountant  = "accountant"
	RoleStudent     = "student"
)

const (
	ObjectInvoice           = "invoice"
	ObjectInvoiceNumber     = "invoice_number"
	ObjectNumberingTemplate = "numbering_template"
	ObjectTaxDefinition     = "tax_definition"
	ObjectAuditLog          = "audit_log"
)

const (
	ActionInvoiceView    = "invoice.view"
	ActionInvoiceCreate  = "invoice.create"
	ActionInvoicePreview = "invoice.preview"
	ActionInvoiceVoid    = "invoice.void"

	ActionInvoiceNumberView     = "invoice_number.view"
	ActionInvoiceNumberValidate = "invoice_number.validate"

	ActionNumberingTemplateView   = "numbering_template.view"
	ActionNumberingTemplateUpdate = "numbering_template.update"

	ActionTaxDefinitionView   = "tax_definition.view"
	ActionTaxDefinitionManage = "tax_definition.manage"

	ActionAuditLogView = "audit_log.view"
)

// Actor identifies the caller. ID is optional and only used for per-user grants and logs.
type Actor struct {
	ID   string
	Role string
}

type Service interface {
	Authorize(ctx context.Context, actor Actor, orgID string, object string, action string) error
}
