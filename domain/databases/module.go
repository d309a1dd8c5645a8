package databases

import (
	"go.uber.org/fx"
)

// Module provides the databases domain
var Module = fx.Module("databases",
	fx.Provide(NewStore),
	fx.Invoke(RegisterRoutes),
)
