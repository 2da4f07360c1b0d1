package bootstrap

import (
	"orderflow/cmd/bootstrap/components"

	"go.uber.org/fx"
)

var Module = fx.Options(
	ConfigModule,
	DBModule,
	BusModule,
	components.RepositoryModule,
	components.SagaModule,
	components.HandlerModule,
)
