package glossary

import (
	"go.uber.org/fx"
)

// Module provides the glossary domain
var Module = fx.Module("glossary",
	fx.Provide(NewStore),
	fx.Provide(NewTermStore),
	fx.Invoke(RegisterRoutes),
)
