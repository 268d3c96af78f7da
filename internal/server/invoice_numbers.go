package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	numberdomain "github.com/smallbiznis/edubill/internal/invoicenumber/domain"
	"github.com/smallbiznis/edubill/internal/orgcontext"
)

type validateInvoiceNumberRequest struct {
	InvoiceNumber string `json:"invoice_number"`
}

type updateNumberingTemplateRequest struct {
	Prefix   string `json:"prefix"`
	PadWidth int    `json:"pad_width"`
}

// SuggestInvoiceNumber previews the next automatic number. Nothing is reserved.
func (s *Server) SuggestInvoiceNumber(c *gin.Context) {
	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrOrgRequired)
		return
	}

	number, err := s.allocator.SuggestNext(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"invoice_number": number}})
}

// ValidateInvoiceNumber answers the as-you-type check for manual numbering.
// An invalid number is a normal 200 response; only failures to check are errors.
func (s *Server) ValidateInvoiceNumber(c *gin.Context) {
	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrOrgRequired)
		return
	}

	var req validateInvoiceNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.allocator.Validate(c.Request.Context(), orgID, req.InvoiceNumber)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) GetNumberingTemplate(c *gin.Context) {
	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrOrgRequired)
		return
	}

	template, err := s.allocator.Template(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": template})
}

func (s *Server) UpdateNumberingTemplate(c *gin.Context) {
	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrOrgRequired)
		return
	}

	var req updateNumberingTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	template, err := s.allocator.UpdateTemplate(c.Request.Context(), orgID, numberdomain.Template{
		Prefix:   req.Prefix,
		PadWidth: req.PadWidth,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "numbering_template.update", "numbering_template", orgID.String(), map[string]any{
		"prefix":    template.Prefix,
		"pad_width": template.PadWidth,
	})

	c.JSON(http.StatusOK, gin.H{"data": template})
}
