package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	NumberingModeAuto   = "auto"
	NumberingModeManual = "manual"
)

const (
	ValidationResultValid     = "valid"
	ValidationResultEmpty     = "empty"
	ValidationResultDuplicate = "duplicate"
	ValidationResultTooLong   = "too_long"
)

const (
	CommitReasonDeadlineExceeded     = "deadline_exceeded"
	CommitReasonDBLockTimeout        = "db_lock_timeout"
	CommitReasonSerializationFailure = "serialization_failure"
	CommitReasonUniqueViolation      = "unique_violation"
	CommitReasonExhausted            = "attempts_exhausted"
	CommitReasonDB                   = "db"
	CommitReasonUnknown              = "unknown"
)

// NumberingMetrics captures invoice number allocation health.
type NumberingMetrics struct {
	allocated      *prometheus.CounterVec
	collisions     *prometheus.CounterVec
	validations    *prometheus.CounterVec
	commitErrors   *prometheus.CounterVec
	commitDuration *prometheus.HistogramVec
	lockWait       prometheus.Observer

	validationCounts map[string]prometheus.Counter
}

var (
	numberingMetricsOnce sync.Once
	numberingMetrics     *NumberingMetrics
)

// Numbering returns the singleton numbering metrics registry.
func Numbering() *NumberingMetrics {
	return NumberingWithConfig(Config{})
}

// NumberingWithConfig returns the singleton numbering metrics registry using config labels.
func NumberingWithConfig(cfg Config) *NumberingMetrics {
	numberingMetricsOnce.Do(func() {
		numberingMetrics = newNumberingMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return numberingMetrics
}

// NewNumberingMetrics builds numbering metrics on a dedicated registerer.
func NewNumberingMetrics(registerer prometheus.Registerer, cfg Config) *NumberingMetrics {
	return newNumberingMetrics(registerer, cfg)
}

func newNumberingMetrics(registerer prometheus.Registerer, cfg Config) *NumberingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "edubill"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	allocated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "edubill_invoice_numbers_allocated_total",
		Help:        "Invoice numbers committed by numbering mode.",
		ConstLabels: constLabels,
	}, []string{"mode"})
	collisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "edubill_invoice_numbers_collisions_total",
		Help:        "Invoice numbers rejected at commit because they were already claimed.",
		ConstLabels: constLabels,
	}, []string{"mode"})
	validations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "edubill_invoice_numbers_validations_total",
		Help:        "Manual invoice number validations by result.",
		ConstLabels: constLabels,
	}, []string{"result"})
	commitErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "edubill_invoice_numbers_commit_errors_total",
		Help:        "Invoice number commit failures by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"mode", "reason"})
	commitDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "edubill_invoice_numbers_commit_duration_seconds",
		Help:        "Latency of committing an invoice number.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"mode"})
	lockWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "edubill_invoice_numbers_lock_wait_seconds",
		Help:        "Time spent waiting for the per-tenant numbering lock.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		allocated,
		collisions,
		validations,
		commitErrors,
		commitDuration,
		lockWait,
	)

	validationCounts := map[string]prometheus.Counter{}
	for _, result := range []string{ValidationResultValid, ValidationResultEmpty, ValidationResultDuplicate, ValidationResultTooLong} {
		validationCounts[result] = validations.WithLabelValues(result)
	}

	return &NumberingMetrics{
		allocated:        allocated,
		collisions:       collisions,
		validations:      validations,
		commitErrors:     commitErrors,
		commitDuration:   commitDuration,
		lockWait:         lockWait,
		validationCounts: validationCounts,
	}
}

// IncAllocated counts a committed invoice number.
func (m *NumberingMetrics) IncAllocated(mode string) {
	if m == nil {
		return
	}
	m.allocated.WithLabelValues(mode).Inc()
}

// IncCollision counts a number that lost the race to another claim.
func (m *NumberingMetrics) IncCollision(mode string) {
	if m == nil {
		return
	}
	m.collisions.WithLabelValues(mode).Inc()
}

// IncValidation counts a validation outcome. An empty result means valid.
func (m *NumberingMetrics) IncValidation(reason string) {
	if m == nil {
		return
	}
	result := reason
	if result == "" {
		result = ValidationResultValid
	}
	if counter, ok := m.validationCounts[result]; ok {
		counter.Inc()
		return
	}
	m.validations.WithLabelValues(result).Inc()
}

// IncCommitError counts a failed commit with a classified reason.
func (m *NumberingMetrics) IncCommitError(mode string, err error) {
	if m == nil || err == nil {
		return
	}
	m.commitErrors.WithLabelValues(mode, ClassifyCommitReason(err)).Inc()
}

// IncCommitExhausted counts an auto commit that ran out of attempts.
func (m *NumberingMetrics) IncCommitExhausted() {
	if m == nil {
		return
	}
	m.commitErrors.WithLabelValues(NumberingModeAuto, CommitReasonExhausted).Inc()
}

func (m *NumberingMetrics) ObserveCommitDuration(mode string, duration time.Duration) {
	if m == nil {
		return
	}
	m.commitDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

func (m *NumberingMetrics) ObserveLockWait(duration time.Duration) {
	if m == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	m.lockWait.Observe(duration.Seconds())
}

// ClassifyCommitReason maps commit errors to low-cardinality reasons.
func ClassifyCommitReason(err error) string {
	if err == nil {
		return CommitReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CommitReasonDeadlineExceeded
	}
	if hasPGCode(err, "55P03") {
		return CommitReasonDBLockTimeout
	}
	if hasPGCode(err, "40001") {
		return CommitReasonSerializationFailure
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505") {
		return CommitReasonUniqueViolation
	}
	if isDBError(err) {
		return CommitReasonDB
	}
	return CommitReasonUnknown
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrNotImplemented) ||
		errors.Is(err, gorm.ErrUnsupportedDriver) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
