package router

import (
	"github.com/gofiber/fiber/v2"

	handlers "github.com/NeuralTrust/CareGuard/pkg/handlers/http"
	"github.com/NeuralTrust/CareGuard/pkg/server/middleware"
)

const (
	VersionPath = "/version"
	InspectPath = "/v1/inspect"
)

type engineRouter struct {
	middlewareTransport *middleware.Transport
	handlerTransport    handlers.HandlerTransport
}

func NewEngineRouter(
	middlewareTransport *middleware.Transport,
	handlerTransport handlers.HandlerTransport,
) ServerRouter {
	return &engineRouter{
		middlewareTransport: middlewareTransport,
		handlerTransport:    handlerTransport,
	}
}

func (r *engineRouter) BuildRoutes(router *fiber.App) error {
	handlerTransport, ok := r.handlerTransport.GetTransport().(*handlers.HandlerTransportDTO)
	if !ok {
		return ErrInvalidHandlerTransport
	}

	router.Get(VersionPath, handlerTransport.GetVersionHandler.Handle)

	v1 := router.Group("/v1")
	{
		if r.middlewareTransport != nil && r.middlewareTransport.GetMiddlewares() != nil {
			v1.Use(r.middlewareTransport.GetMiddlewares()...)
		}
		v1.Post("/inspect", handlerTransport.InspectHandler.Handle)
	}
	return nil
}
