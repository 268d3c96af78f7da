package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/edubill/internal/tax/domain"
)

type createTaxDefinitionRequest struct {
	Code        string           `json:"code"`
	Name        string           `json:"name"`
	GSTRate     *decimal.Decimal `json:"gst_rate"`
	CGSTRate    *decimal.Decimal `json:"cgst_rate"`
	SGSTRate    *decimal.Decimal `json:"sgst_rate"`
	IGSTRate    *decimal.Decimal `json:"igst_rate"`
	Description *string          `json:"description"`
	IsEnabled   *bool            `json:"is_enabled"`
	IsDefault   bool             `json:"is_default"`
}

type updateTaxDefinitionRequest struct {
	Name        *string          `json:"name,omitempty"`
	CGSTRate    *decimal.Decimal `json:"cgst_rate,omitempty"`
	SGSTRate    *decimal.Decimal `json:"sgst_rate,omitempty"`
	IGSTRate    *decimal.Decimal `json:"igst_rate,omitempty"`
	Description *string          `json:"description,omitempty"`
	IsDefault   *bool            `json:"is_default,omitempty"`
}

func (s *Server) CreateTaxDefinition(c *gin.Context) {
	var req createTaxDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.taxSvc.Create(c.Request.Context(), taxdomain.CreateRequest{
		Code:        strings.TrimSpace(req.Code),
		Name:        strings.TrimSpace(req.Name),
		GSTRate:     req.GSTRate,
		CGSTRate:    req.CGSTRate,
		SGSTRate:    req.SGSTRate,
		IGSTRate:    req.IGSTRate,
		Description: trimTaxString(req.Description),
		IsEnabled:   req.IsEnabled,
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditTaxDefinition(c, "tax_definition.create", resp)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTaxDefinitions(c *gin.Context) {
	var query struct {
		Name      string `form:"name"`
		Code      string `form:"code"`
		IsEnabled string `form:"is_enabled"`
		SortBy    string `form:"sort_by"`
		OrderBy   string `form:"order_by"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	isEnabled, err := parseOptionalBool(query.IsEnabled)
	if err != nil {
		AbortWithError(c, newValidationError("is_enabled", "invalid_is_enabled", "invalid is_enabled"))
		return
	}

	resp, err := s.taxSvc.List(c.Request.Context(), taxdomain.ListRequest{
		Name:      strings.TrimSpace(query.Name),
		Code:      strings.TrimSpace(query.Code),
		IsEnabled: isEnabled,
		SortBy:    strings.TrimSpace(query.SortBy),
		OrderBy:   strings.TrimSpace(query.OrderBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTaxDefinition(c *gin.Context) {
	resp, err := s.taxSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateTaxDefinition(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req updateTaxDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.taxSvc.Update(c.Request.Context(), taxdomain.UpdateRequest{
		ID:          id,
		Name:        trimTaxString(req.Name),
		CGSTRate:    req.CGSTRate,
		SGSTRate:    req.SGSTRate,
		IGSTRate:    req.IGSTRate,
		Description: trimTaxString(req.Description),
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditTaxDefinition(c, "tax_definition.update", resp)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DisableTaxDefinition(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.taxSvc.Disable(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditTaxDefinition(c, "tax_definition.disable", resp)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// InstallTaxPresets creates the standard GST slabs missing for the tenant.
func (s *Server) InstallTaxPresets(c *gin.Context) {
	resp, err := s.taxSvc.InstallPresets(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	codes := make([]string, 0, len(resp))
	for _, def := range resp {
		codes = append(codes, def.Code)
	}
	s.audit(c, "tax_definition.install_presets", "tax_definition", "", map[string]any{"codes": codes})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) auditTaxDefinition(c *gin.Context, action string, resp *taxdomain.Response) {
	if resp == nil {
		return
	}
	s.audit(c, action, "tax_definition", resp.ID, map[string]any{
		"code":       resp.Code,
		"cgst_rate":  resp.CGSTRate.String(),
		"sgst_rate":  resp.SGSTRate.String(),
		"igst_rate":  resp.IGSTRate.String(),
		"is_enabled": resp.IsEnabled,
		"is_default": resp.IsDefault,
	})
}

func trimTaxString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
