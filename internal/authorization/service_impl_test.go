package authorization

import (
	"context"
	"testing"

	"github.com/smallbiznis/edubill/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	conn := dbtest.NewSQLite(t)
	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorizeRoles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		role    string
		object  string
		action  string
		allowed bool
	}{
		{RoleStudent, ObjectInvoice, ActionInvoiceView, true},
		{RoleStudent, ObjectInvoice, ActionInvoiceCreate, false},
		{RoleStudent, ObjectInvoiceNumber, ActionInvoiceNumberValidate, false},
		{RoleAccountant, ObjectInvoice, ActionInvoiceCreate, true},
		{RoleAccountant, ObjectInvoiceNumber, ActionInvoiceNumberValidate, true},
		{RoleAccountant, ObjectInvoice, ActionInvoiceVoid, false},
		{RoleAccountant, ObjectNumberingTemplate, ActionNumberingTemplateUpdate, false},
		{RoleSystemAdmin, ObjectInvoice, ActionInvoiceVoid, true},
		{RoleSystemAdmin, ObjectTaxDefinition, ActionTaxDefinitionManage, true},
		{RoleSuperAdmin, ObjectNumberingTemplate, ActionNumberingTemplateUpdate, true},
		{RoleSuperAdmin, ObjectInvoice, ActionInvoiceVoid, true},
		{RoleSuperAdmin, ObjectAuditLog, ActionAuditLogView, true},
		{RoleAccountant, ObjectAuditLog, ActionAuditLogView, false},
	}

	for _, tc := range cases {
		t.Run(tc.role+"/"+tc.action, func(t *testing.T) {
			err := svc.Authorize(ctx, Actor{ID: "42", Role: tc.role}, "1001", tc.object, tc.action)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestAuthorizeRejectsBadInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, Actor{}, "1001", ObjectInvoice, ActionInvoiceView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, Actor{Role: "parent"}, "1001", ObjectInvoice, ActionInvoiceView), ErrInvalidRole)
	assert.ErrorIs(t, svc.Authorize(ctx, Actor{Role: RoleStudent}, " ", ObjectInvoice, ActionInvoiceView), ErrInvalidOrganization)
	assert.ErrorIs(t, svc.Authorize(ctx, Actor{Role: RoleStudent}, "1001", "", ActionInvoiceView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, Actor{Role: RoleStudent}, "1001", ObjectInvoice, ""), ErrInvalidAction)
}

func TestRoleIsCaseInsensitive(t *testing.T) {
	svc := newTestService(t)

	err := svc.Authorize(context.Background(), Actor{Role: " Accountant "}, "1001", ObjectInvoice, ActionInvoiceCreate)
	assert.NoError(t, err)
}

func TestSeedingIsIdempotent(t *testing.T) {
	conn := dbtest.NewSQLite(t)

	_, err := NewEnforcer(conn)
	require.NoError(t, err)
	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)

	policies, err := enforcer.GetPolicy()
	require.NoError(t, err)
	assert.Len(t, policies, 19)
}
