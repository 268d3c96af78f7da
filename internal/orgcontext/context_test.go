package orgcontext

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestOrgIDRoundTrip(t *testing.T) {
	ctx := WithOrgID(context.Background(), snowflake.ID(42))
	id, ok := OrgIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(42), id)
}

func TestOrgIDMissing(t *testing.T) {
	_, ok := OrgIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = OrgIDFromContext(WithOrgID(context.Background(), 0))
	assert.False(t, ok)
}

func TestParseOrgID(t *testing.T) {
	id, err := ParseOrgID(" 1001 ")
	assert.NoError(t, err)
	assert.Equal(t, snowflake.ID(1001), id)

	_, err = ParseOrgID("abc")
	assert.Error(t, err)

	_, err = ParseOrgID("-5")
	assert.Error(t, err)
}
