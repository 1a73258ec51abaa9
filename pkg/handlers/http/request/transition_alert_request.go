package request

import (
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
)

type ResolveAlertRequest struct {
	Note string `json:"note"` // @required
}

func (r *ResolveAlertRequest) Validate() error {
	if r.Note == "" {
		return domainErrors.NewValidationError("note", "is required")
	}
	return nil
}

type EscalateAlertRequest struct {
	Reason string `json:"reason"`
}
