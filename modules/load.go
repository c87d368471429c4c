package modules

import (
	"github.com/meridianhq/meridian/modules/audit"
	"github.com/meridianhq/meridian/modules/core"
	"github.com/meridianhq/meridian/pkg/application"
)

// BuiltInModules lists every module in registration order. Audit precedes
// core: the core module resolves the audit service during registration.
var BuiltInModules = []application.Module{
	audit.NewModule(),
	core.NewModule(nil),
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
