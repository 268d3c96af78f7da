package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Allocator hands out tenant-unique invoice numbers.
type Allocator interface {
	// SuggestNext previews the number CommitAuto would produce. It never mutates the counter.
	SuggestNext(ctx context.Context, orgID snowflake.ID) (string, error)
	Validate(ctx context.Context, orgID snowflake.ID, number string) (ValidationResult, error)
	CommitAuto(ctx context.Context, orgID snowflake.ID) (string, error)
	CommitManual(ctx context.Context, orgID snowflake.ID, number string) (string, error)
	Template(ctx context.Context, orgID snowflake.ID) (Template, error)
	UpdateTemplate(ctx context.Context, orgID snowflake.ID, template Template) (Template, error)
	// WithTx binds commits to tx so the claim rolls back with the invoice insert.
	WithTx(tx *gorm.DB) Allocator
}
