package tag

import (
	"go.uber.org/fx"
)

// Module provides the tag usage index
var Module = fx.Module("tag",
	fx.Provide(NewRepository),
)
