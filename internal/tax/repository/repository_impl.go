package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	taxdomain "github.com/smallbiznis/edubill/internal/tax/domain"
	"github.com/smallbiznis/edubill/pkg/db"
	"github.com/smallbiznis/edubill/pkg/db/option"
	"gorm.io/gorm"
)

const selectColumns = `id, org_id, name, code, cgst_rate, sgst_rate, igst_rate, description, is_enabled, is_default, created_at, updated_at`

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) taxdomain.Repository {
	return &repository{db: db}
}

func (r *repository) GetDefaultTaxDefinition(ctx context.Context, orgID snowflake.ID) (*taxdomain.TaxDefinition, error) {
	var def taxdomain.TaxDefinition
	err := r.db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+`
		 FROM tax_definitions
		 WHERE org_id = ? AND is_enabled = ? AND is_default = ?
		 ORDER BY id ASC
		 LIMIT 1`,
		orgID, true, true,
	).Scan(&def).Error
	if err != nil {
		return nil, err
	}
	if def.ID == 0 {
		return nil, nil
	}
	return &def, nil
}

func (r *repository) Create(ctx context.Context, def *taxdomain.TaxDefinition) error {
	err := r.db.WithContext(ctx).Exec(
		`INSERT INTO tax_definitions (
			id, org_id, name, code, cgst_rate, sgst_rate, igst_rate, description, is_enabled, is_default, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		def.ID,
		def.OrgID,
		def.Name,
		def.Code,
		def.CGSTRate,
		def.SGSTRate,
		def.IGSTRate,
		def.Description,
		def.IsEnabled,
		def.IsDefault,
		def.CreatedAt,
		def.UpdatedAt,
	).Error
	if db.IsDuplicateKeyErr(err) {
		return taxdomain.ErrDuplicateTaxCode
	}
	return err
}

func (r *repository) FindByID(ctx context.Context, orgID, id snowflake.ID) (*taxdomain.TaxDefinition, error) {
	var def taxdomain.TaxDefinition
	err := r.db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+`
		 FROM tax_definitions
		 WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&def).Error
	if err != nil {
		return nil, err
	}
	if def.ID == 0 {
		return nil, nil
	}
	return &def, nil
}

func (r *repository) FindByCode(ctx context.Context, orgID snowflake.ID, code string) (*taxdomain.TaxDefinition, error) {
	var def taxdomain.TaxDefinition
	err := r.db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+`
		 FROM tax_definitions
		 WHERE org_id = ? AND code = ?`,
		orgID,
		strings.TrimSpace(code),
	).Scan(&def).Error
	if err != nil {
		return nil, err
	}
	if def.ID == 0 {
		return nil, nil
	}
	return &def, nil
}

func (r *repository) List(ctx context.Context, orgID snowflake.ID, filter taxdomain.ListRequest) ([]taxdomain.TaxDefinition, error) {
	var items []taxdomain.TaxDefinition
	stmt := r.db.WithContext(ctx).
		Model(&taxdomain.TaxDefinition{}).
		Where("org_id = ?", orgID)

	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}
	if filter.Code != "" {
		stmt = stmt.Where("code = ?", filter.Code)
	}
	if filter.IsEnabled != nil {
		stmt = stmt.Where("is_enabled = ?", *filter.IsEnabled)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
		"code":       true,
	})).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Update(ctx context.Context, def *taxdomain.TaxDefinition) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE tax_definitions
		 SET name = ?, cgst_rate = ?, sgst_rate = ?, igst_rate = ?, description = ?, is_enabled = ?, is_default = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		def.Name,
		def.CGSTRate,
		def.SGSTRate,
		def.IGSTRate,
		def.Description,
		def.IsEnabled,
		def.IsDefault,
		def.UpdatedAt,
		def.OrgID,
		def.ID,
	).Error
}

func (r *repository) ClearDefault(ctx context.Context, orgID snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE tax_definitions SET is_default = ? WHERE org_id = ? AND is_default = ?`,
		false, orgID, true,
	).Error
}
