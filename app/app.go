package app

import (
	"go.uber.org/fx"

	"motorsporthub/auth"
	"motorsporthub/config"
	"motorsporthub/gateway"
	"motorsporthub/logging"
	"motorsporthub/panel"
	"motorsporthub/public"
	"motorsporthub/web"
)

// CreateApp creates the fx application with all dependencies
func CreateApp() fx.Option {
	return fx.Options(
		fx.Provide(config.Out),
		logging.Module,
		gateway.Module,
		auth.Module,
		panel.Module,
		public.Module,
		web.Module,
	)
}
