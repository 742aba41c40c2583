package subscription

import (
	"go.uber.org/fx"

	"github.com/teleshop/paygate/internal/app/service/callback"
)

// Module exposes the subscription service via Fx, both as itself and as the
// activator consumed by the callback state machine.
var Module = fx.Options(
	fx.Provide(NewService),
	fx.Provide(func(s *Service) callback.Activator { return s }),
)
