package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads policies from casbin_rule and seeds the built-in role grants.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor Actor, orgID string, object string, action string) error {
	role := strings.ToLower(strings.TrimSpace(actor.Role))
	if role == "" {
		return ErrInvalidActor
	}
	if !isKnownRole(role) {
		return ErrInvalidRole
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return ErrInvalidOrganization
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := roleSubject(role)
	domain := fmt.Sprintf("org:%s", orgID)

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("actor_id", actor.ID),
			zap.String("role", role),
			zap.String("org_id", orgID),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}

	if shouldLogGrant(action) {
		s.log.Info("authorization granted",
			zap.String("actor_id", actor.ID),
			zap.String("role", role),
			zap.String("org_id", orgID),
			zap.String("action", action),
		)
	}
	return nil
}

func roleSubject(role string) string {
	return "role:" + role
}

func isKnownRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleSystemAdmin, RoleAccountant, RoleStudent:
		return true
	default:
		return false
	}
}

func shouldLogGrant(action string) bool {
	switch action {
	case ActionInvoiceVoid, ActionNumberingTemplateUpdate, ActionTaxDefinitionManage:
		return true
	default:
		return false
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	admin := roleSubject(RoleSystemAdmin)
	accountant := roleSubject(RoleAccountant)
	student := roleSubject(RoleStudent)

	policies := [][]string{
		// Student permissions (read-only)
		{student, ObjectInvoice, ActionInvoiceView},

		// Accountant permissions
		{accountant, ObjectInvoice, ActionInvoiceView},
		{accountant, ObjectInvoice, ActionInvoiceCreate},
		{accountant, ObjectInvoice, ActionInvoicePreview},
		{accountant, ObjectInvoiceNumber, ActionInvoiceNumberView},
		{accountant, ObjectInvoiceNumber, ActionInvoiceNumberValidate},
		{accountant, ObjectNumberingTemplate, ActionNumberingTemplateView},
		{accountant, ObjectTaxDefinition, ActionTaxDefinitionView},

		// System admin permissions
		{admin, ObjectInvoice, ActionInvoiceView},
		{admin, ObjectInvoice, ActionInvoiceCreate},
		{admin, ObjectInvoice, ActionInvoicePreview},
		{admin, ObjectInvoice, ActionInvoiceVoid},
		{admin, ObjectInvoiceNumber, ActionInvoiceNumberView},
		{admin, ObjectInvoiceNumber, ActionInvoiceNumberValidate},
		{admin, ObjectNumberingTemplate, ActionNumberingTemplateView},
		{admin, ObjectNumberingTemplate, ActionNumberingTemplateUpdate},
		{admin, ObjectTaxDefinition, ActionTaxDefinitionView},
		{admin, ObjectTaxDefinition, ActionTaxDefinitionManage},
		{admin, ObjectAuditLog, ActionAuditLogView},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	// Role hierarchy applies in every org.
	if _, err := enforcer.AddNamedGroupingPolicy("g2", roleSubject(RoleSuperAdmin), admin); err != nil {
		return err
	}
	return nil
}
