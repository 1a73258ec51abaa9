package router

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	handlers "github.com/NeuralTrust/CareGuard/pkg/handlers/http"
	wsHandlers "github.com/NeuralTrust/CareGuard/pkg/handlers/websocket"
	"github.com/NeuralTrust/CareGuard/pkg/server/middleware"
)

type AdminRouterDI struct {
	MiddlewareTransport *middleware.Transport
	HandlerTransport    handlers.HandlerTransport
	WSHandlerTransport  wsHandlers.HandlerTransport
	// AdminOnly guards dictionary and proposal writes.
	AdminOnly           middleware.Middleware
	WebsocketMiddleware middleware.Middleware
}

type adminRouter struct {
	di AdminRouterDI
}

func NewAdminRouter(di AdminRouterDI) ServerRouter {
	return &adminRouter{di: di}
}

func (r *adminRouter) BuildRoutes(router *fiber.App) error {
	handlerTransport, ok := r.di.HandlerTransport.GetTransport().(*handlers.HandlerTransportDTO)
	if !ok {
		return ErrInvalidHandlerTransport
	}
	wsHandlerTransport, ok := r.di.WSHandlerTransport.GetTransport().(*wsHandlers.HandlerTransportDTO)
	if !ok {
		return ErrInvalidHandlerTransport
	}

	adminOnly := func(c *fiber.Ctx) error { return c.Next() }
	if r.di.AdminOnly != nil {
		adminOnly = r.di.AdminOnly.Middleware()
	}

	router.Get(VersionPath, handlerTransport.GetVersionHandler.Handle)

	v1 := router.Group("/api/v1")
	{
		if r.di.MiddlewareTransport != nil && r.di.MiddlewareTransport.GetMiddlewares() != nil {
			v1.Use(r.di.MiddlewareTransport.GetMiddlewares()...)
		}

		alerts := v1.Group("/alerts")
		{
			feed := []fiber.Handler{websocket.New(wsHandlerTransport.AlertFeedHandler.Handle)}
			if r.di.WebsocketMiddleware != nil {
				feed = append([]fiber.Handler{r.di.WebsocketMiddleware.Middleware()}, feed...)
			}
			alerts.Get("/feed", feed...)
			alerts.Get("", handlerTransport.ListAlertsHandler.Handle)
			alerts.Get("/:alert_id", handlerTransport.GetAlertHandler.Handle)
			alerts.Post("/:alert_id/claim", handlerTransport.ClaimAlertHandler.Handle)
			alerts.Post("/:alert_id/resolve", handlerTransport.ResolveAlertHandler.Handle)
			alerts.Post("/:alert_id/escalate", handlerTransport.EscalateAlertHandler.Handle)
		}

		decisions := v1.Group("/decisions")
		{
			decisions.Get("", handlerTransport.ListDecisionsHandler.Handle)
			decisions.Get("/:decision_id", handlerTransport.GetDecisionHandler.Handle)
			decisions.Post("/:decision_id/corrections", handlerTransport.CorrectDecisionHandler.Handle)
		}

		v1.Get("/violations", handlerTransport.ListViolationsHandler.Handle)
		v1.Post("/verdicts", handlerTransport.CreateVerdictHandler.Handle)

		patterns := v1.Group("/patterns")
		{
			patterns.Get("", handlerTransport.ListPatternsHandler.Handle)
			patterns.Post("", adminOnly, handlerTransport.AddPatternVersionHandler.Handle)
		}
		v1.Post("/dictionary/refresh", adminOnly, handlerTransport.RefreshDictionaryHandler.Handle)

		proposals := v1.Group("/proposals")
		{
			proposals.Get("", handlerTransport.ListProposalsHandler.Handle)
			proposals.Post("/:proposal_id/approve", adminOnly, handlerTransport.ApproveProposalHandler.Handle)
			proposals.Post("/:proposal_id/reject", adminOnly, handlerTransport.RejectProposalHandler.Handle)
		}

		v1.Get("/audit", handlerTransport.QueryAuditHandler.Handle)
	}
	return nil
}
