package relationship

import (
	"go.uber.org/fx"
)

// Module provides the relationship graph index
var Module = fx.Module("relationship",
	fx.Provide(NewRepository),
)
