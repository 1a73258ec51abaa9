package request

import (
	"github.com/google/uuid"

	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/domain/verdict"
)

type CreateVerdictRequest struct {
	DecisionID string `json:"decision_id"` // @required
	Verdict    string `json:"verdict"`     // @required
	Note       string `json:"note"`
}

func (r *CreateVerdictRequest) ToVerdict(reviewer string) (*verdict.Verdict, error) {
	id, err := uuid.Parse(r.DecisionID)
	if err != nil {
		return nil, domainErrors.NewValidationError("decision_id", "must be a uuid")
	}
	v := &verdict.Verdict{
		DecisionID: id,
		Verdict:    verdict.Kind(r.Verdict),
		ReviewerID: reviewer,
		Note:       r.Note,
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}
