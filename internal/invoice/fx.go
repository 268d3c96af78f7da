package invoice

import (
	"github.com/smallbiznis/edubill/internal/invoice/service"
	"github.com/smallbiznis/edubill/internal/invoicenumber"
	"github.com/smallbiznis/edubill/internal/providers/pdf"
	"github.com/smallbiznis/edubill/internal/tax"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	tax.Module,
	invoicenumber.Module,
	pdf.Module,
	fx.Provide(service.NewService),
)
