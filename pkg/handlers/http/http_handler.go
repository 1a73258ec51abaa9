package http

import "github.com/gofiber/fiber/v2"

type Handler interface {
	Handle(ctx *fiber.Ctx) error
}

type HandlerTransport interface {
	GetTransport() HandlerTransport
}

type HandlerTransportDTO struct {
	// Engine
	InspectHandler    Handler
	GetVersionHandler Handler

	// Alerts
	ListAlertsHandler    Handler
	GetAlertHandler      Handler
	ClaimAlertHandler    Handler
	ResolveAlertHandler  Handler
	EscalateAlertHandler Handler

	// Decisions
	ListDecisionsHandler   Handler
	GetDecisionHandler     Handler
	CorrectDecisionHandler Handler
	ListViolationsHandler  Handler

	// Feedback
	CreateVerdictHandler   Handler
	ListProposalsHandler   Handler
	ApproveProposalHandler Handler
	RejectProposalHandler  Handler

	// Dictionary
	ListPatternsHandler      Handler
	AddPatternVersionHandler Handler
	RefreshDictionaryHandler Handler

	// Audit
	QueryAuditHandler Handler
}

func (t *HandlerTransportDTO) GetTransport() HandlerTransport {
	return t
}
