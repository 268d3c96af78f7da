package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/smallbiznis/edubill/internal/authorization"
	invoicedomain "github.com/smallbiznis/edubill/internal/invoice/domain"
	numberdomain "github.com/smallbiznis/edubill/internal/invoicenumber/domain"
	taxdomain "github.com/smallbiznis/edubill/internal/tax/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		typ    string
		code   string
	}{
		{"duplicate number", fmt.Errorf("commit: %w", numberdomain.ErrDuplicate), http.StatusConflict, "conflict", "duplicate"},
		{"empty number", numberdomain.ErrEmpty, http.StatusBadRequest, "validation_error", "empty"},
		{"number too long", fmt.Errorf("commit: %w", numberdomain.ErrTooLong), http.StatusBadRequest, "validation_error", "too_long"},
		{"collaborator", fmt.Errorf("op: %w: %w", numberdomain.ErrCollaboratorUnavailable, context.DeadlineExceeded), http.StatusServiceUnavailable, "service_unavailable", ""},
		{"attempts exhausted", numberdomain.ErrAttemptsExhausted, http.StatusServiceUnavailable, "service_unavailable", ""},
		{"wrapped template", fmt.Errorf("%w: pad width", numberdomain.ErrInvalidTemplate), http.StatusBadRequest, "validation_error", "invalid_numbering_template"},
		{"line items", invoicedomain.ErrNoLineItems, http.StatusBadRequest, "validation_error", "invoice_requires_line_items"},
		{"tax rate", taxdomain.ErrInvalidTaxRate, http.StatusBadRequest, "validation_error", "invalid_tax_rate"},
		{"already void", invoicedomain.ErrInvoiceAlreadyVoid, http.StatusConflict, "conflict", ""},
		{"tax code taken", taxdomain.ErrDuplicateTaxCode, http.StatusConflict, "conflict", ""},
		{"invoice missing", invoicedomain.ErrInvoiceNotFound, http.StatusNotFound, "not_found", ""},
		{"record missing", gorm.ErrRecordNotFound, http.StatusNotFound, "not_found", ""},
		{"forbidden", authorization.ErrForbidden, http.StatusForbidden, "forbidden", ""},
		{"unknown role", authorization.ErrInvalidRole, http.StatusUnauthorized, "unauthorized", ""},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests, "rate_limited", ""},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.typ, payload.Type)
			if tc.code != "" {
				if assert.Len(t, payload.Errors, 1) {
					assert.Equal(t, tc.code, payload.Errors[0].Code)
				}
			}
		})
	}
}

func TestClassifyErrorForLog(t *testing.T) {
	typ, code := classifyErrorForLog(numberdomain.ErrDuplicate)
	assert.Equal(t, "conflict", typ)
	assert.Equal(t, "duplicate", code)

	typ, code = classifyErrorForLog(errors.New("boom"))
	assert.Equal(t, "internal_error", typ)
	assert.Empty(t, code)
}

func TestPDFFilename(t *testing.T) {
	assert.Equal(t, "INV-2026-0042.pdf", pdfFilename("INV/2026/0042"))
	assert.Equal(t, "invoice.pdf", pdfFilename("  "))
}
