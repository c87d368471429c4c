package core

import (
	"embed"

	"github.com/redis/go-redis/v9"

	auditservices "github.com/meridianhq/meridian/modules/audit/services"
	"github.com/meridianhq/meridian/modules/core/domain/entities/deletion"
	"github.com/meridianhq/meridian/modules/core/domain/entities/document"
	"github.com/meridianhq/meridian/modules/core/domain/entities/identity"
	"github.com/meridianhq/meridian/modules/core/domain/entities/session"
	"github.com/meridianhq/meridian/modules/core/infrastructure/docstore"
	"github.com/meridianhq/meridian/modules/core/infrastructure/identityhttp"
	"github.com/meridianhq/meridian/modules/core/infrastructure/persistence"
	"github.com/meridianhq/meridian/modules/core/infrastructure/sessions"
	"github.com/meridianhq/meridian/modules/core/infrastructure/storage"
	"github.com/meridianhq/meridian/modules/core/presentation/controllers"
	"github.com/meridianhq/meridian/modules/core/services"
	"github.com/meridianhq/meridian/pkg/application"
	"github.com/meridianhq/meridian/pkg/configuration"
	"github.com/meridianhq/meridian/pkg/middleware"
)

//go:embed infrastructure/persistence/schema/core-schema.sql
var MigrationFiles embed.FS

// ModuleOptions carries wiring overrides; zero values use the configured
// production implementations.
type ModuleOptions struct {
	SessionStore session.Store
	Identity     identity.Provider
	Reassign     deletion.ReassignPolicy
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

// Register loads the deletion manifest and wires the deletion pipeline.
// The audit module must be registered first: the account service records
// every cascade run through it.
func (m *Module) Register(app application.Application) error {
	cfg := configuration.Use()

	manifest, err := deletion.LoadManifest(cfg.Deletion.ManifestPath)
	if err != nil {
		return err
	}

	indexes := document.NewIndexRegistry()
	for _, table := range manifest.CascadeTables() {
		indexes.Register(table, manifest.IndexName(table), manifest.IndexField(table))
	}

	store := docstore.NewPgDocumentStore(indexes)
	userRepo := persistence.NewUserRepository(store)

	sessionStore := m.options.SessionStore
	if sessionStore == nil {
		sessionStore = sessions.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisURL}))
	}

	idp := m.options.Identity
	if idp == nil {
		if cfg.Deletion.IdentityWebhookURL != "" {
			idp = identityhttp.NewWebhookProvider(cfg.Deletion.IdentityWebhookURL)
		} else {
			idp = identity.NoopProvider{}
		}
	}

	cascadeService := services.NewCascadeService(services.CascadeServiceOptions{
		Manifest:  manifest,
		Store:     store,
		Storage:   storage.NewFSStorage(cfg.UploadsPath),
		Reassign:  m.options.Reassign,
		Publisher: app.EventPublisher(),
		Logger:    app.Logger(),
	})

	auditService := app.Service(auditservices.AuditService{}).(*auditservices.AuditService)

	accountService := services.NewAccountService(services.AccountServiceOptions{
		Users:    userRepo,
		Cascade:  cascadeService,
		Audit:    auditService,
		Identity: idp,
		Sessions: sessionStore,
	})

	app.RegisterServices(
		cascadeService,
		accountService,
	)
	app.RegisterControllers(
		controllers.NewAccountController(app),
	)
	// Authentication mounts at module level so every module's routes
	// resolve the caller the same way.
	app.RegisterMiddleware(
		middleware.Authenticate(sessionStore, userRepo),
	)
	return nil
}

func (m *Module) Name() string {
	return "core"
}
