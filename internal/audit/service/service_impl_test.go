package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/edubill/internal/audit/domain"
	"github.com/smallbiznis/edubill/internal/audit/repository"
	"github.com/smallbiznis/edubill/internal/clock"
	obscontext "github.com/smallbiznis/edubill/internal/observability/context"
	"github.com/smallbiznis/edubill/internal/orgcontext"
	"github.com/smallbiznis/edubill/pkg/db/dbtest"
	"github.com/smallbiznis/edubill/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) auditdomain.Service {
	t.Helper()
	conn := dbtest.NewSQLite(t, &auditdomain.AuditLog{})
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	return NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clock.NewFakeClock(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)),
	})
}

func TestAuditLogRecordsActorAndOrg(t *testing.T) {
	svc := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), snowflake.ID(11))
	ctx = obscontext.WithActor(ctx, "user", "u-7")
	ctx = obscontext.WithRequestID(ctx, "req-1")

	err := svc.AuditLog(ctx, auditdomain.Entry{
		Action:     "invoice.void",
		TargetType: "invoice",
		TargetID:   "123",
		IPAddress:  "10.0.0.1",
		Metadata:   map[string]any{"invoice_number": "INV-0001", "": "dropped"},
	})
	require.NoError(t, err)

	resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, "invoice.void", entry.Action)
	assert.Equal(t, "user", entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "u-7", *entry.ActorID)
	require.NotNil(t, entry.TargetID)
	assert.Equal(t, "123", *entry.TargetID)
	assert.Equal(t, "INV-0001", entry.Metadata["invoice_number"])
	assert.Equal(t, "req-1", entry.Metadata["request_id"])
	assert.NotContains(t, entry.Metadata, "")
	assert.Nil(t, entry.UserAgent)
}

func TestAuditLogDefaultsToSystemActor(t *testing.T) {
	svc := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), snowflake.ID(11))

	require.NoError(t, svc.AuditLog(ctx, auditdomain.Entry{Action: "tax_definition.create"}))

	resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, string(auditdomain.ActorTypeSystem), resp.AuditLogs[0].ActorType)
	assert.Equal(t, "unknown", resp.AuditLogs[0].TargetType)
}

func TestAuditLogRejectsBadInput(t *testing.T) {
	svc := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), snowflake.ID(11))

	assert.ErrorIs(t, svc.AuditLog(ctx, auditdomain.Entry{Action: "  "}), auditdomain.ErrInvalidAction)
	assert.ErrorIs(t, svc.AuditLog(context.Background(), auditdomain.Entry{Action: "x"}), auditdomain.ErrInvalidOrganization)

	_, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: paginationToken("%%%")})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)

	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err = svc.List(ctx, auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}

func TestListPaginatesAndScopesByOrg(t *testing.T) {
	svc := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), snowflake.ID(11))
	other := orgcontext.WithOrgID(context.Background(), snowflake.ID(12))

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.AuditLog(ctx, auditdomain.Entry{Action: "numbering_template.update", TargetType: "numbering_template"}))
	}
	require.NoError(t, svc.AuditLog(other, auditdomain.Entry{Action: "numbering_template.update"}))

	first, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: paginationSize(3)})
	require.NoError(t, err)
	assert.Len(t, first.AuditLogs, 3)
	assert.True(t, first.HasMore)

	second, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: paginationNext(first.NextPageToken, 3)})
	require.NoError(t, err)
	assert.Len(t, second.AuditLogs, 2)
	assert.False(t, second.HasMore)
	assert.Less(t, int64(second.AuditLogs[0].ID), int64(first.AuditLogs[2].ID))

	filtered, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Action: "invoice.void"})
	require.NoError(t, err)
	assert.Empty(t, filtered.AuditLogs)
}

func paginationToken(token string) pagination.Pagination {
	return pagination.Pagination{PageToken: token}
}

func paginationSize(size int) pagination.Pagination {
	return pagination.Pagination{PageSize: size}
}

func paginationNext(token string, size int) pagination.Pagination {
	return pagination.Pagination{PageToken: token, PageSize: size}
}
