package callback

import "go.uber.org/fx"

// Module exposes the callback state machine via Fx.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(NewGormStore, fx.As(new(TransactionStore))),
		NewService,
	),
)
