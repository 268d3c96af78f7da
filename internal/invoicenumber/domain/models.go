package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Source string

const (
	SourceAuto   Source = "auto"
	SourceManual Source = "manual"
)

// Sequence is the per-tenant counter. LastValue is the last number handed out by CommitAuto.
type Sequence struct {
	OrgID     snowflake.ID `gorm:"column:org_id;primaryKey;autoIncrement:false"`
	LastValue int64        `gorm:"column:last_value;not null;default:0"`
	UpdatedAt time.Time    `gorm:"column:updated_at;not null"`
}

func (Sequence) TableName() string { return "invoice_sequences" }

// Claim registers a committed invoice number. The unique index on (org_id, number)
// is the final guard against two invoices sharing a number.
type Claim struct {
	ID        snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	OrgID     snowflake.ID `gorm:"column:org_id;not null;uniqueIndex:ux_invoice_numbers_org_number,priority:1"`
	Number    string       `gorm:"column:number;type:varchar(64);not null;uniqueIndex:ux_invoice_numbers_org_number,priority:2"`
	Source    Source       `gorm:"column:source;type:varchar(16);not null"`
	Sequence  *int64       `gorm:"column:sequence"`
	CreatedAt time.Time    `gorm:"column:created_at;not null"`
}

func (Claim) TableName() string { return "invoice_numbers" }

// TemplateRecord stores a tenant's numbering template.
type TemplateRecord struct {
	OrgID     snowflake.ID `gorm:"column:org_id;primaryKey;autoIncrement:false"`
	Prefix    string       `gorm:"column:prefix;type:varchar(32);not null"`
	PadWidth  int          `gorm:"column:pad_width;not null"`
	UpdatedAt time.Time    `gorm:"column:updated_at;not null"`
}

func (TemplateRecord) TableName() string { return "invoice_number_templates" }

// Template controls how a sequence value is rendered, e.g. {Prefix: "INV/", PadWidth: 4} -> INV/0042.
type Template struct {
	Prefix   string `json:"prefix"`
	PadWidth int    `json:"pad_width"`
}

type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}
