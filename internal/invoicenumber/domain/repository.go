package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Store is the persistence collaborator owning the tenant counter and the number registry.
type Store interface {
	Exists(ctx context.Context, orgID snowflake.ID, number string) (bool, error)
	CurrentCounter(ctx context.Context, orgID snowflake.ID) (int64, error)
	// GetAndIncrement atomically bumps the counter and returns the new value.
	GetAndIncrement(ctx context.Context, orgID snowflake.ID) (int64, error)
	// Claim inserts number into the registry and returns ErrDuplicate when it is taken.
	Claim(ctx context.Context, claim Claim) error
	GetTemplate(ctx context.Context, orgID snowflake.ID) (*Template, error)
	UpsertTemplate(ctx context.Context, orgID snowflake.ID, template Template) error
	WithTx(tx *gorm.DB) Store
	// Atomic reports whether GetAndIncrement is safe without external serialization.
	Atomic() bool
}
