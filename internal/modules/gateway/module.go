package gateway

import (
	"fmt"
	"trade_guard/internal/exchange"
	binance "trade_guard/internal/modules/binance_client/service"
	bingx "trade_guard/internal/modules/bingx_client/service"
	"trade_guard/internal/modules/config"
	okx "trade_guard/internal/modules/okx_client/service"
	"trade_guard/pkg/logger"

	"go.uber.org/fx"
)

// NewGateway выбирает биржу по cfg.Exchange.
func NewGateway(cfg *config.Config) (exchange.Gateway, error) {
	var gw exchange.Gateway
	switch cfg.Exchange {
	case config.ExchangeBingX:
		gw = bingx.NewClient(cfg)
	case config.ExchangeOKX:
		gw = okx.NewClient(cfg)
	case config.ExchangeBinance:
		gw = binance.NewClient(cfg)
	default:
		return nil, fmt.Errorf("unknown exchange %q", cfg.Exchange)
	}
	logger.Info("[GATEWAY] using %s", gw.Name())
	return gw, nil
}

func NewPrecisionResolver(cfg *config.Config, gw exchange.Gateway) *exchange.PrecisionResolver {
	return exchange.NewPrecisionResolver(gw, cfg.Trading.DefaultPrecision, cfg.Trading.PrecisionTTL)
}

func Module() fx.Option {
	return fx.Module("gateway",
		fx.Provide(
			NewGateway,           // exchange.Gateway
			NewPrecisionResolver, // *exchange.PrecisionResolver
		),
	)
}
