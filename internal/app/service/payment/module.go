package payment

import (
	"go.uber.org/fx"

	"github.com/teleshop/paygate/internal/platform/click"
)

// Module exposes the outbound payment service via Fx, along with the
// gateway client it drives.
var Module = fx.Options(
	fx.Provide(click.NewClient),
	fx.Provide(NewService),
)
