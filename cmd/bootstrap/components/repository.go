package components

import (
	"orderflow/internal/infra/repository"
	"orderflow/internal/saga/fulfillment"
	"orderflow/internal/saga/inventory"

	"go.uber.org/fx"
)

var RepositoryModule = fx.Module("repository",
	fx.Provide(
		fx.Annotate(
			repository.NewReservationRepository,
			fx.As(new(inventory.ReservationStore)),
		),
		fx.Annotate(
			repository.NewShipmentRepository,
			fx.As(new(fulfillment.ShipmentStore)),
		),
	),
)
