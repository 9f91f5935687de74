//go:build wireinject

package main

import (
	"github.com/google/wire"

	"jan-server/services/conversation-api/internal/domain"
	"jan-server/services/conversation-api/internal/infrastructure"
	"jan-server/services/conversation-api/internal/interfaces"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/routes"
)

func CreateApplication() (*Application, func(), error) {
	wire.Build(
		domain.ServiceProvider,
		infrastructure.InfrastructureProvider,
		routes.RouteProvider,
		interfaces.InterfacesProvider,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil, nil
}
