package components

import (
	"context"
	"log/slog"

	"orderflow/internal/eventbus"
	"orderflow/internal/pkg/clock"
	"orderflow/internal/pkg/config"
	"orderflow/internal/saga"
	"orderflow/internal/saga/fulfillment"
	"orderflow/internal/saga/inventory"
	"orderflow/internal/sweeper"

	"go.uber.org/fx"
)

var SagaModule = fx.Module("saga",
	fx.Provide(
		clock.NewRealClock,
		inventory.NewPublisher,
		fulfillment.NewPublisher,
		NewLabelProvider,
		NewInventoryParticipant,
		fulfillment.NewParticipant,
		saga.NewRouter,
		NewSweeper,
	),
	fx.Invoke(StartEventPipeline),
)

func NewLabelProvider(cfg config.Config, clk clock.Clock) fulfillment.Provider {
	return fulfillment.NewStaticProvider(cfg.Saga.DefaultCarrier, clk)
}

func NewInventoryParticipant(store inventory.ReservationStore, publisher *inventory.Publisher, clk clock.Clock, cfg config.Config, logger *slog.Logger) *inventory.Participant {
	return inventory.NewParticipant(store, publisher, clk, cfg.Saga.ReservationTTL, logger)
}

func NewSweeper(inv *inventory.Participant, cfg config.Config, logger *slog.Logger) *sweeper.Sweeper {
	return sweeper.New(inv, cfg.Saga.SweepSchedule, logger)
}

// StartEventPipeline binds the routing table to the bus and ties the
// consumer and sweeper lifecycles to the application. Subscriptions
// must all be registered before the bus starts consuming.
func StartEventPipeline(lc fx.Lifecycle, bus eventbus.Bus, router *saga.Router, swp *sweeper.Sweeper, cfg config.Config, logger *slog.Logger) {
	router.Register(bus)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := bus.Start(ctx); err != nil {
				return err
			}
			logger.Info("event pipeline started",
				"inventory_subjects", router.Subjects(saga.GroupInventory),
				"fulfillment_subjects", router.Subjects(saga.GroupFulfillment))

			if cfg.Saga.SweepEnabled {
				return swp.Start()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cfg.Saga.SweepEnabled {
				if err := swp.Stop(ctx); err != nil {
					logger.Error("sweeper stop failed", "error", err.Error())
				}
			}
			return bus.Close(ctx)
		},
	})
}
