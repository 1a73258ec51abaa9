package request

import (
	"github.com/NeuralTrust/CareGuard/pkg/domain/decision"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
)

type CorrectDecisionRequest struct {
	Action string `json:"action"` // @required
	Reason string `json:"reason"` // @required
}

func (r *CorrectDecisionRequest) Validate() error {
	if !decision.Action(r.Action).Valid() {
		return domainErrors.NewValidationError("action", "must be one of allow, redact, block, escalate")
	}
	if r.Reason == "" {
		return domainErrors.NewValidationError("reason", "is required")
	}
	return nil
}
