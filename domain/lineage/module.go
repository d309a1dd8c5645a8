package lineage

import (
	"go.uber.org/fx"
)

// Module provides the lineage domain
var Module = fx.Module("lineage",
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
