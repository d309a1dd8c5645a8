package tables

import (
	"go.uber.org/fx"
)

// Module provides the tables domain
var Module = fx.Module("tables",
	fx.Provide(NewStore),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
