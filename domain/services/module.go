package services

import (
	"go.uber.org/fx"
)

// Module provides the database services domain
var Module = fx.Module("services",
	fx.Provide(NewStore),
	fx.Invoke(RegisterRoutes),
)
