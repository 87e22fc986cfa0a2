package config

import "go.uber.org/fx"

// Module регистрирует уже загруженный *Config: логгер и трейсер поднимаются раньше fx.
func Module(cfg *Config) fx.Option {
	return fx.Module("config",
		fx.Supply(cfg),
	)
}
