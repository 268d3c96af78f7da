package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/edubill/internal/invoice/domain"
	"github.com/smallbiznis/edubill/internal/observability/logger"
	"github.com/smallbiznis/edubill/pkg/db/pagination"
	"go.uber.org/zap"
)

type voidInvoiceRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoice, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Picked up by the request logger.
	c.Set("invoice_number", invoice.InvoiceNumber)
	s.audit(c, "invoice.create", "invoice", invoice.ID.String(), map[string]any{
		"invoice_number": invoice.InvoiceNumber,
		"numbering_mode": string(invoice.NumberingMode),
		"total_amount":   invoice.TotalAmount.String(),
	})
	c.JSON(http.StatusCreated, gin.H{"data": invoice})
}

func (s *Server) PreviewInvoice(c *gin.Context) {
	var req invoicedomain.DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.Preview(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status        string `form:"status"`
		InvoiceNumber string `form:"invoice_number"`
		CreatedFrom   string `form:"created_from"`
		CreatedTo     string `form:"created_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := invoicedomain.ListInvoiceRequest{Pagination: query.Pagination}

	if status := strings.ToUpper(strings.TrimSpace(query.Status)); status != "" {
		switch invoicedomain.InvoiceStatus(status) {
		case invoicedomain.InvoiceStatusIssued, invoicedomain.InvoiceStatusVoid:
			value := invoicedomain.InvoiceStatus(status)
			req.Status = &value
		default:
			AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
			return
		}
	}
	if number := strings.TrimSpace(query.InvoiceNumber); number != "" {
		req.InvoiceNumber = &number
	}

	createdFrom, err := parseOptionalTime(query.CreatedFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("created_from", "invalid_created_from", "invalid created_from"))
		return
	}
	createdTo, err := parseOptionalTime(query.CreatedTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("created_to", "invalid_created_to", "invalid created_to"))
		return
	}
	req.CreatedFrom = createdFrom
	req.CreatedTo = createdTo

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Invoices, "page_info": resp.PageInfo})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	id, ok := invoiceIDParam(c)
	if !ok {
		return
	}

	item, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) VoidInvoice(c *gin.Context) {
	id, ok := invoiceIDParam(c)
	if !ok {
		return
	}

	var req voidInvoiceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	item, err := s.invoiceSvc.Void(c.Request.Context(), id, strings.TrimSpace(req.Reason))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	logger.FromContext(c.Request.Context()).Info("invoice voided",
		zap.String("invoice_id", id),
		zap.String("invoice_number", item.InvoiceNumber),
	)
	s.audit(c, "invoice.void", "invoice", id, map[string]any{
		"invoice_number": item.InvoiceNumber,
		"reason":         item.VoidReason,
	})

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) DownloadInvoicePDF(c *gin.Context) {
	id, ok := invoiceIDParam(c)
	if !ok {
		return
	}

	invoice, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body, err := s.invoiceSvc.RenderPDF(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+pdfFilename(invoice.InvoiceNumber)+`"`)
	c.Data(http.StatusOK, "application/pdf", body)
}

func invoiceIDParam(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return "", false
	}
	return id, true
}

// pdfFilename keeps invoice numbers like INV/2026/0042 usable as file names.
func pdfFilename(number string) string {
	replacer := strings.NewReplacer("/", "-", `\`, "-", `"`, "", " ", "_")
	name := replacer.Replace(strings.TrimSpace(number))
	if name == "" {
		name = "invoice"
	}
	return name + ".pdf"
}
