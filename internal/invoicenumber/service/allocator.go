package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/edubill/internal/cache"
	"github.com/smallbiznis/edubill/internal/clock"
	"github.com/smallbiznis/edubill/internal/config"
	"github.com/smallbiznis/edubill/internal/invoice/format"
	"github.com/smallbiznis/edubill/internal/invoicenumber/domain"
	"github.com/smallbiznis/edubill/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxPrefixLength = 32

type AllocatorParams struct {
	fx.In

	Store   domain.Store
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Config  *config.NumberingConfigHolder
	Metrics *metrics.NumberingMetrics `optional:"true"`
	Lock    TenantLock                `optional:"true"`
}

type allocator struct {
	store     domain.Store
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	cfg       *config.NumberingConfigHolder
	metrics   *metrics.NumberingMetrics
	lock      TenantLock
	templates cache.Cache[snowflake.ID, domain.Template]
}

func NewAllocator(p AllocatorParams) domain.Allocator {
	lock := p.Lock
	if lock == nil && !p.Store.Atomic() {
		lock = NewKeyedMutex()
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &allocator{
		store:     p.Store,
		log:       p.Log.Named("invoicenumber.allocator"),
		genID:     p.GenID,
		clock:     clk,
		cfg:       p.Config,
		metrics:   p.Metrics,
		lock:      lock,
		templates: cache.NewTTLCacheWithClock[snowflake.ID, domain.Template](clk.Now),
	}
}

func (a *allocator) WithTx(tx *gorm.DB) domain.Allocator {
	if tx == nil {
		return a
	}
	clone := *a
	clone.store = a.store.WithTx(tx)
	return &clone
}

func (a *allocator) SuggestNext(ctx context.Context, orgID snowflake.ID) (string, error) {
	if orgID == 0 {
		return "", domain.ErrInvalidOrganization
	}

	counter, err := a.store.CurrentCounter(ctx, orgID)
	if err != nil {
		return "", unavailable("suggest next", err)
	}
	template, err := a.Template(ctx, orgID)
	if err != nil {
		return "", err
	}

	// Skip numbers that were claimed manually so the preview matches what CommitAuto will return.
	attempts := a.cfg.Get().MaxAutoAttempts
	for i := int64(1); i <= int64(attempts); i++ {
		number, err := a.format(template, counter+i)
		if err != nil {
			return "", err
		}
		exists, err := a.store.Exists(ctx, orgID, number)
		if err != nil {
			return "", unavailable("suggest next", err)
		}
		if !exists {
			return number, nil
		}
	}
	return "", domain.ErrAttemptsExhausted
}

func (a *allocator) Validate(ctx context.Context, orgID snowflake.ID, number string) (domain.ValidationResult, error) {
	if orgID == 0 {
		return domain.ValidationResult{}, domain.ErrInvalidOrganization
	}

	number = strings.TrimSpace(number)
	if number == "" {
		a.metrics.IncValidation(metrics.ValidationResultEmpty)
		return domain.ValidationResult{Valid: false, Reason: domain.ReasonEmpty}, nil
	}
	if utf8.RuneCountInString(number) > domain.MaxNumberLength {
		a.metrics.IncValidation(metrics.ValidationResultTooLong)
		return domain.ValidationResult{Valid: false, Reason: domain.ReasonTooLong}, nil
	}

	exists, err := a.store.Exists(ctx, orgID, number)
	if err != nil {
		return domain.ValidationResult{}, unavailable("validate", err)
	}
	if exists {
		a.metrics.IncValidation(metrics.ValidationResultDuplicate)
		return domain.ValidationResult{Valid: false, Reason: domain.ReasonDuplicate}, nil
	}

	a.metrics.IncValidation("")
	return domain.ValidationResult{Valid: true}, nil
}

// CommitAuto increments the tenant counter and claims the formatted number.
// A number already claimed manually is skipped by incrementing again, up to the configured bound.
func (a *allocator) CommitAuto(ctx context.Context, orgID snowflake.ID) (string, error) {
	if orgID == 0 {
		return "", domain.ErrInvalidOrganization
	}
	start := a.clock.Now()
	defer func() { a.metrics.ObserveCommitDuration(metrics.NumberingModeAuto, a.clock.Now().Sub(start)) }()

	template, err := a.Template(ctx, orgID)
	if err != nil {
		return "", err
	}

	if a.lock != nil && !a.store.Atomic() {
		waitStart := a.clock.Now()
		unlock, err := a.lock.Lock(ctx, orgID)
		a.metrics.ObserveLockWait(a.clock.Now().Sub(waitStart))
		if err != nil {
			a.metrics.IncCommitError(metrics.NumberingModeAuto, err)
			return "", unavailable("commit auto lock", err)
		}
		defer unlock()
	}

	attempts := a.cfg.Get().MaxAutoAttempts
	for attempt := 1; attempt <= attempts; attempt++ {
		seq, err := a.store.GetAndIncrement(ctx, orgID)
		if err != nil {
			a.metrics.IncCommitError(metrics.NumberingModeAuto, err)
			return "", unavailable("commit auto increment", err)
		}

		number, err := a.format(template, seq)
		if err != nil {
			return "", err
		}

		err = a.store.Claim(ctx, domain.Claim{
			ID:        a.genID.Generate(),
			OrgID:     orgID,
			Number:    number,
			Source:    domain.SourceAuto,
			Sequence:  &seq,
			CreatedAt: a.clock.Now(),
		})
		if errors.Is(err, domain.ErrDuplicate) {
			a.metrics.IncCollision(metrics.NumberingModeAuto)
			a.log.Warn("auto invoice number already claimed, skipping",
				zap.String("org_id", orgID.String()),
				zap.String("invoice_number", number),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			a.metrics.IncCommitError(metrics.NumberingModeAuto, err)
			return "", unavailable("commit auto claim", err)
		}

		a.metrics.IncAllocated(metrics.NumberingModeAuto)
		return number, nil
	}

	a.metrics.IncCommitExhausted()
	a.log.Error("auto invoice numbering exhausted attempts",
		zap.String("org_id", orgID.String()),
		zap.Int("attempts", attempts),
	)
	return "", domain.ErrAttemptsExhausted
}

// CommitManual re-checks and claims a caller-chosen number. The claim insert is
// the authoritative check; the preceding existence check only gives a fast answer.
func (a *allocator) CommitManual(ctx context.Context, orgID snowflake.ID, number string) (string, error) {
	if orgID == 0 {
		return "", domain.ErrInvalidOrganization
	}
	start := a.clock.Now()
	defer func() { a.metrics.ObserveCommitDuration(metrics.NumberingModeManual, a.clock.Now().Sub(start)) }()

	number = strings.TrimSpace(number)
	if number == "" {
		return "", domain.ErrEmpty
	}
	if utf8.RuneCountInString(number) > domain.MaxNumberLength {
		return "", domain.ErrTooLong
	}

	exists, err := a.store.Exists(ctx, orgID, number)
	if err != nil {
		a.metrics.IncCommitError(metrics.NumberingModeManual, err)
		return "", unavailable("commit manual", err)
	}
	if exists {
		a.metrics.IncCollision(metrics.NumberingModeManual)
		return "", domain.ErrDuplicate
	}

	err = a.store.Claim(ctx, domain.Claim{
		ID:        a.genID.Generate(),
		OrgID:     orgID,
		Number:    number,
		Source:    domain.SourceManual,
		CreatedAt: a.clock.Now(),
	})
	if errors.Is(err, domain.ErrDuplicate) {
		a.metrics.IncCollision(metrics.NumberingModeManual)
		return "", domain.ErrDuplicate
	}
	if err != nil {
		a.metrics.IncCommitError(metrics.NumberingModeManual, err)
		return "", unavailable("commit manual", err)
	}

	a.metrics.IncAllocated(metrics.NumberingModeManual)
	return number, nil
}

func (a *allocator) Template(ctx context.Context, orgID snowflake.ID) (domain.Template, error) {
	if cached, ok := a.templates.Get(orgID); ok {
		return cached, nil
	}

	stored, err := a.store.GetTemplate(ctx, orgID)
	if err != nil {
		return domain.Template{}, unavailable("template", err)
	}

	cfg := a.cfg.Get()
	template := domain.Template{Prefix: cfg.DefaultPrefix, PadWidth: cfg.DefaultPadWidth}
	if stored != nil {
		template = *stored
	}

	a.templates.Set(orgID, template, time.Duration(cfg.TemplateCacheTTLSeconds)*time.Second)
	return template, nil
}

func (a *allocator) UpdateTemplate(ctx context.Context, orgID snowflake.ID, template domain.Template) (domain.Template, error) {
	if orgID == 0 {
		return domain.Template{}, domain.ErrInvalidOrganization
	}
	template.Prefix = strings.TrimSpace(template.Prefix)
	if err := validateTemplate(template); err != nil {
		return domain.Template{}, err
	}

	if err := a.store.UpsertTemplate(ctx, orgID, template); err != nil {
		return domain.Template{}, unavailable("update template", err)
	}
	a.templates.Delete(orgID)

	a.log.Info("numbering template updated",
		zap.String("org_id", orgID.String()),
		zap.String("prefix", template.Prefix),
		zap.Int("pad_width", template.PadWidth),
	)
	return template, nil
}

func (a *allocator) format(template domain.Template, seq int64) (string, error) {
	number, err := format.FormatInvoiceNumber(template.Prefix, template.PadWidth, a.clock.Now(), seq)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidTemplate, err)
	}
	return number, nil
}

func validateTemplate(template domain.Template) error {
	if len(template.Prefix) > maxPrefixLength {
		return fmt.Errorf("%w: prefix longer than %d characters", domain.ErrInvalidTemplate, maxPrefixLength)
	}
	if template.PadWidth < 0 || template.PadWidth > format.MaxPadWidth {
		return fmt.Errorf("%w: pad width must be between 0 and %d", domain.ErrInvalidTemplate, format.MaxPadWidth)
	}
	if err := format.ValidatePrefix(template.Prefix); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidTemplate, err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrCollaboratorUnavailable, err)
}
