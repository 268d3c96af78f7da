package invoicenumber

import (
	"time"

	"github.com/smallbiznis/edubill/internal/invoicenumber/repository"
	"github.com/smallbiznis/edubill/internal/invoicenumber/service"
	"github.com/smallbiznis/edubill/internal/ratelimit"
	"go.uber.org/fx"
)

var Module = fx.Module("invoicenumber.service",
	fx.Provide(repository.Provide),
	fx.Provide(provideTenantLock),
	fx.Provide(service.NewAllocator),
)

// The lock is only taken for stores that are not atomic (NUMBERING_LOCKED_INCREMENT).
// Redis serializes across instances; without it a keyed mutex covers one process.
func provideTenantLock(locker *ratelimit.Locker) service.TenantLock {
	if locker == nil {
		return service.NewKeyedMutex()
	}
	return service.NewRedisTenantLock(locker, 10*time.Second, 5*time.Second)
}
