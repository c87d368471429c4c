package audit

import (
	"embed"

	"github.com/meridianhq/meridian/modules/audit/infrastructure/persistence"
	"github.com/meridianhq/meridian/modules/audit/presentation/controllers"
	"github.com/meridianhq/meridian/modules/audit/services"
	"github.com/meridianhq/meridian/pkg/application"
)

//go:embed infrastructure/persistence/schema/audit-schema.sql
var MigrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct {
}

func (m *Module) Register(app application.Application) error {
	app.RegisterServices(
		services.NewAuditService(persistence.NewDeletionLogRepository()),
	)
	app.RegisterControllers(
		controllers.NewDeletionLogsController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "audit"
}
