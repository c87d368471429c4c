package server

import (
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/meridianhq/meridian/modules/core/presentation/controllers"
	"github.com/meridianhq/meridian/pkg/application"
	"github.com/meridianhq/meridian/pkg/configuration"
	"github.com/meridianhq/meridian/pkg/middleware"
	"github.com/meridianhq/meridian/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
}

// Default assembles the HTTP server. The base chain runs before any
// module-registered middleware: authentication needs the pool and the
// request logger already in context.
func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application

	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger),
		middleware.WithPool(options.Pool),
		middleware.WithRequestParams(),
	}
	middlewares = append(middlewares, app.Middleware()...)

	return server.NewHTTPServer(
		app.Controllers(),
		middlewares,
		controllers.NotFound(),
		controllers.MethodNotAllowed(),
	), nil
}
