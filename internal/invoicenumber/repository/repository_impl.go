package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/edubill/internal/config"
	"github.com/smallbiznis/edubill/internal/invoicenumber/domain"
	"github.com/smallbiznis/edubill/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db     *gorm.DB
	now    func() time.Time
	locked bool
}

var errSequenceMoved = errors.New("invoice sequence changed during increment")

// NewRepository returns a store that increments the counter in a single statement.
func NewRepository(db *gorm.DB) domain.Store {
	return &repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// NewLockedRepository returns a store whose increment is a read-then-write. It reports
// itself non-atomic so the allocator holds the tenant lock around every auto commit.
func NewLockedRepository(db *gorm.DB) domain.Store {
	return &repository{db: db, now: func() time.Time { return time.Now().UTC() }, locked: true}
}

// Provide picks the increment strategy from configuration.
func Provide(cfg config.Config, db *gorm.DB) domain.Store {
	if cfg.NumberingLockedIncrement {
		return NewLockedRepository(db)
	}
	return NewRepository(db)
}

func (r *repository) WithTx(tx *gorm.DB) domain.Store {
	if tx == nil {
		return r
	}
	return &repository{db: tx, now: r.now, locked: r.locked}
}

func (r *repository) Atomic() bool { return !r.locked }

func (r *repository) Exists(ctx context.Context, orgID snowflake.ID, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Claim{}).
		Where("org_id = ? AND number = ?", orgID, strings.TrimSpace(number)).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) CurrentCounter(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var seq domain.Sequence
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Take(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return seq.LastValue, nil
}

func (r *repository) GetAndIncrement(ctx context.Context, orgID snowflake.ID) (int64, error) {
	now := r.now()
	if r.locked {
		return r.incrementLocked(ctx, orgID, now)
	}
	if r.db.Dialector.Name() == "mysql" {
		return r.incrementMySQL(ctx, orgID, now)
	}

	var value int64
	err := r.db.WithContext(ctx).Raw(
		`INSERT INTO invoice_sequences (org_id, last_value, updated_at)
		 VALUES (?, 1, ?)
		 ON CONFLICT (org_id) DO UPDATE
		 SET last_value = invoice_sequences.last_value + 1, updated_at = ?
		 RETURNING last_value`,
		orgID, now, now,
	).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, errors.New("invoice sequence increment returned no value")
	}
	return value, nil
}

// MySQL has no RETURNING; LAST_INSERT_ID(expr) is connection-scoped so both
// statements must run on the same connection.
func (r *repository) incrementMySQL(ctx context.Context, orgID snowflake.ID, now time.Time) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`INSERT INTO invoice_sequences (org_id, last_value, updated_at)
			 VALUES (?, LAST_INSERT_ID(1), ?)
			 ON DUPLICATE KEY UPDATE last_value = LAST_INSERT_ID(last_value + 1), updated_at = ?`,
			orgID, now, now,
		).Error; err != nil {
			return err
		}
		return tx.Raw(`SELECT LAST_INSERT_ID()`).Scan(&value).Error
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

// incrementLocked relies on the caller holding the tenant lock for the first insert.
// FOR UPDATE keeps the row locked until the caller's transaction ends, after the
// tenant lock is gone; the compare on last_value turns any remaining race into an
// error instead of a reused number.
func (r *repository) incrementLocked(ctx context.Context, orgID snowflake.ID, now time.Time) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq domain.Sequence
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("org_id = ?", orgID).
			Take(&seq).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			value = 1
			return tx.Create(&domain.Sequence{OrgID: orgID, LastValue: value, UpdatedAt: now}).Error
		}
		if err != nil {
			return err
		}

		value = seq.LastValue + 1
		result := tx.Model(&domain.Sequence{}).
			Where("org_id = ? AND last_value = ?", orgID, seq.LastValue).
			Updates(map[string]any{"last_value": value, "updated_at": now})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errSequenceMoved
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (r *repository) Claim(ctx context.Context, claim domain.Claim) error {
	claim.Number = strings.TrimSpace(claim.Number)
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = r.now()
	}

	// DO NOTHING keeps a postgres transaction usable after a collision.
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "org_id"}, {Name: "number"}},
			DoNothing: true,
		}).
		Create(&claim)
	if result.Error != nil {
		if db.IsDuplicateKeyErr(result.Error) {
			return domain.ErrDuplicate
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrDuplicate
	}
	return nil
}

func (r *repository) GetTemplate(ctx context.Context, orgID snowflake.ID) (*domain.Template, error) {
	var record domain.TemplateRecord
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.Template{Prefix: record.Prefix, PadWidth: record.PadWidth}, nil
}

func (r *repository) UpsertTemplate(ctx context.Context, orgID snowflake.ID, template domain.Template) error {
	record := domain.TemplateRecord{
		OrgID:     orgID,
		Prefix:    template.Prefix,
		PadWidth:  template.PadWidth,
		UpdatedAt: r.now(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "org_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"prefix", "pad_width", "updated_at"}),
		}).
		Create(&record).Error
}

// SeedCounter sets a tenant counter, e.g. when migrating from another system.
func SeedCounter(ctx context.Context, conn *gorm.DB, orgID snowflake.ID, value int64) error {
	record := domain.Sequence{OrgID: orgID, LastValue: value, UpdatedAt: time.Now().UTC()}
	return conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "org_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_value", "updated_at"}),
		}).
		Create(&record).Error
}
