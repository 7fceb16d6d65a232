package app

import (
	"github.com/vk/evalflow/internal/registry"
)

// coreModules is the definitive list of all modules that are compiled into
// the evalflow binary. Embedders that register task, solver or agent
// factories pass their own list to NewApp, which replaces this one.
var coreModules = []registry.Module{
	registry.Builtins{},
}
