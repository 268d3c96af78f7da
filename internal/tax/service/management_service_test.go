package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/edubill/internal/orgcontext"
	taxdomain "github.com/smallbiznis/edubill/internal/tax/domain"
	"github.com/smallbiznis/edubill/internal/tax/repository"
	"github.com/smallbiznis/edubill/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (taxdomain.Service, taxdomain.TaxResolver) {
	t.Helper()
	db := dbtest.NewSQLite(t, &taxdomain.TaxDefinition{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := repository.NewRepository(db)
	svc := NewService(ServiceParams{Log: zap.NewNop(), GenID: node, Repo: repo})
	return svc, NewResolver(ResolverParam{Repository: repo})
}

func orgCtx(id int64) context.Context {
	return orgcontext.WithOrgID(context.Background(), snowflake.ID(id))
}

func TestCreateRequiresOrganization(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), taxdomain.CreateRequest{Name: "GST 18%"})
	assert.ErrorIs(t, err, taxdomain.ErrInvalidOrganization)
}

func TestCreateSplitsCombinedRate(t *testing.T) {
	svc, _ := newTestService(t)
	rate := decimal.NewFromInt(18)

	resp, err := svc.Create(orgCtx(1), taxdomain.CreateRequest{Name: "gst 18", GSTRate: &rate})
	require.NoError(t, err)

	assert.Equal(t, "GST_18", resp.Code)
	assert.True(t, resp.CGSTRate.Equal(decimal.NewFromInt(9)))
	assert.True(t, resp.SGSTRate.Equal(decimal.NewFromInt(9)))
	assert.True(t, resp.IGSTRate.Equal(decimal.NewFromInt(18)))
	assert.True(t, resp.IsEnabled)
}

func TestCreateRejectsOutOfRangeRate(t *testing.T) {
	svc, _ := newTestService(t)
	rate := decimal.NewFromInt(101)

	_, err := svc.Create(orgCtx(1), taxdomain.CreateRequest{Name: "bad", IGSTRate: &rate})
	assert.ErrorIs(t, err, taxdomain.ErrInvalidTaxRate)
}

func TestCreateDuplicateCode(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(orgCtx(1), taxdomain.CreateRequest{Name: "Tuition", Code: "edu"})
	require.NoError(t, err)
	_, err = svc.Create(orgCtx(1), taxdomain.CreateRequest{Name: "Tuition again", Code: "EDU"})
	assert.ErrorIs(t, err, taxdomain.ErrDuplicateTaxCode)

	_, err = svc.Create(orgCtx(2), taxdomain.CreateRequest{Name: "Tuition", Code: "edu"})
	assert.NoError(t, err)
}

func TestInstallPresetsSetsDefaultAndIsIdempotent(t *testing.T) {
	svc, resolver := newTestService(t)
	ctx := orgCtx(7)

	created, err := svc.InstallPresets(ctx)
	require.NoError(t, err)
	assert.Len(t, created, len(taxdomain.StandardGSTSlabs()))

	again, err := svc.InstallPresets(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)

	rates, def, err := resolver.ResolveForInvoice(ctx, snowflake.ID(7), nil)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, taxdomain.TaxCodeGST18, def.Code)
	assert.True(t, rates.CGSTRate.Equal(decimal.NewFromInt(9)))
}

func TestDisableRemovesDefault(t *testing.T) {
	svc, resolver := newTestService(t)
	ctx := orgCtx(3)
	rate := decimal.NewFromInt(5)

	resp, err := svc.Create(ctx, taxdomain.CreateRequest{Name: "GST 5%", GSTRate: &rate, IsDefault: true})
	require.NoError(t, err)
	assert.True(t, resp.IsDefault)

	disabled, err := svc.Disable(ctx, resp.ID)
	require.NoError(t, err)
	assert.False(t, disabled.IsEnabled)
	assert.False(t, disabled.IsDefault)

	rates, def, err := resolver.ResolveForInvoice(ctx, snowflake.ID(3), nil)
	require.NoError(t, err)
	assert.Nil(t, def)
	assert.True(t, rates.IGSTRate.IsZero())

	id, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)
	_, _, err = resolver.ResolveForInvoice(ctx, snowflake.ID(3), &id)
	assert.ErrorIs(t, err, taxdomain.ErrTaxDefinitionDisabled)
}

func TestUpdateMovesDefault(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := orgCtx(4)
	five := decimal.NewFromInt(5)
	twelve := decimal.NewFromInt(12)

	first, err := svc.Create(ctx, taxdomain.CreateRequest{Name: "GST 5%", GSTRate: &five, IsDefault: true})
	require.NoError(t, err)
	second, err := svc.Create(ctx, taxdomain.CreateRequest{Name: "GST 12%", GSTRate: &twelve})
	require.NoError(t, err)

	makeDefault := true
	updated, err := svc.Update(ctx, taxdomain.UpdateRequest{ID: second.ID, IsDefault: &makeDefault})
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)

	reloaded, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsDefault)
}

func TestGetUnknown(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(orgCtx(1), "12345")
	assert.ErrorIs(t, err, taxdomain.ErrNotFound)

	_, err = svc.Get(orgCtx(1), "not-an-id")
	assert.ErrorIs(t, err, taxdomain.ErrInvalidID)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "GST_18", NormalizeCode(" gst 18 "))
	assert.Equal(t, "EDU_SERVICES", NormalizeCode("Edu Services"))
	assert.Equal(t, "", NormalizeCode("   "))
}
