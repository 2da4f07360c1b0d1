package components

import (
	"orderflow/internal/handler"
	"orderflow/internal/handler/api"
	"orderflow/internal/saga/fulfillment"
	"orderflow/internal/saga/inventory"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		func(p *inventory.Participant) api.InventoryCommands { return p },
		func(p *fulfillment.Participant) api.FulfillmentCommands { return p },
		api.NewInventoryHandler,
		api.NewFulfillmentHandler,
	),
	fx.Invoke(handler.NewRouter),
)
