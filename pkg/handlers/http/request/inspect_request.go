package request

import (
	"github.com/valyala/fastjson"

	"github.com/NeuralTrust/CareGuard/pkg/app/moderation"
	"github.com/NeuralTrust/CareGuard/pkg/domain/decision"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
)

var inspectParsers fastjson.ParserPool

type InspectRequest struct {
	SessionID string `json:"session_id"` // @required
	Role      string `json:"role"`       // @required
	Text      string `json:"text"`       // @required
}

// ParseInspectRequest decodes the hot path body without reflection. Field
// semantics are checked later by the pipeline; only shape is checked here.
func ParseInspectRequest(body []byte) (*InspectRequest, error) {
	if len(body) == 0 {
		return nil, domainErrors.NewValidationError("body", "is required")
	}
	p := inspectParsers.Get()
	defer inspectParsers.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, domainErrors.NewValidationError("body", "malformed json")
	}
	if v.Type() != fastjson.TypeObject {
		return nil, domainErrors.NewValidationError("body", "must be an object")
	}

	req := &InspectRequest{}
	fields := []struct {
		name string
		dst  *string
	}{
		{"session_id", &req.SessionID},
		{"role", &req.Role},
		{"text", &req.Text},
	}
	for _, f := range fields {
		fv := v.Get(f.name)
		if fv == nil {
			return nil, domainErrors.NewValidationError(f.name, "is required")
		}
		b, err := fv.StringBytes()
		if err != nil {
			return nil, domainErrors.NewValidationError(f.name, "must be a string")
		}
		*f.dst = string(b)
	}
	return req, nil
}

func (r *InspectRequest) ToModeration() moderation.InspectRequest {
	return moderation.InspectRequest{
		SessionID: r.SessionID,
		Role:      decision.Role(r.Role),
		Text:      r.Text,
	}
}
