package bootstrap

import (
	"log/slog"

	"orderflow/internal/eventbus"
	"orderflow/internal/pkg/config"

	"go.uber.org/fx"
)

var BusModule = fx.Module("bus",
	fx.Provide(
		NewBus,
		func(bus eventbus.Bus) eventbus.Publisher { return bus },
	),
)

// NewBus selects the broker-backed bus, or the in-process bus for
// single-binary and development deployments. Start/Close are driven by
// the saga module after subscriptions are registered.
func NewBus(cfg config.Config, logger *slog.Logger) (eventbus.Bus, error) {
	if cfg.Broker.InMemory {
		logger.Info("using in-memory event bus")
		return eventbus.NewMemoryBus(logger), nil
	}
	return eventbus.NewAMQPBus(cfg.Broker, logger)
}
