package auditlogs

const (
	EventTypeDecisionRecorded  = "decision.recorded"
	EventTypeDecisionCorrected = "decision.corrected"
	EventTypeDecisionDeferred  = "decision.persist_deferred"
	EventTypeDecisionAbandoned = "decision.persist_abandoned"
	EventTypeFailClosed        = "pipeline.fail_closed"

	EventTypeAlertCreated      = "alert.created"
	EventTypeAlertAbsorbed     = "alert.absorbed"
	EventTypeAlertClaimed      = "alert.claimed"
	EventTypeAlertResolved     = "alert.resolved"
	EventTypeAlertEscalated    = "alert.escalated"
	EventTypeAlertSLABreached  = "alert.sla_breached"
	EventTypeAlertDeferred     = "alert.persist_deferred"
	EventTypeAlertAbandoned    = "alert.persist_abandoned"
	EventTypeAlertNotifyFailed = "alert.notify_failed"

	EventTypeBoundaryRedacted = "boundary.redacted"

	EventTypeVerdictReceived  = "verdict.received"
	EventTypeProposalCreated  = "proposal.created"
	EventTypeProposalApproved = "proposal.approved"
	EventTypeProposalRejected = "proposal.rejected"

	EventTypeDictionaryVersionAdded = "dictionary.version_added"
	EventTypeDictionaryRefreshed    = "dictionary.refreshed"
	EventTypeDictionaryLoadFailed   = "dictionary.load_failed"
)

const (
	walPrefix = "audit-"
	walSuffix = ".wal"
)
