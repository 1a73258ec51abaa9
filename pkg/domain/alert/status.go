package alert

import (
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
)

type Status string

const (
	StatusNew                Status = "new"
	StatusReviewing          Status = "reviewing"
	StatusResolved           Status = "resolved"
	StatusEscalatedEmergency Status = "escalated_emergency"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusReviewing, StatusResolved, StatusEscalatedEmergency:
		return true
	}
	return false
}

// IsOpen is true while a responder still has to act on the alert.
func (s Status) IsOpen() bool {
	return s == StatusNew || s == StatusReviewing
}

type Transition string

const (
	TransitionClaim    Transition = "claim"
	TransitionResolve  Transition = "resolve"
	TransitionEscalate Transition = "escalate"
)

type edge struct {
	from Status
	via  Transition
}

type outcome struct {
	to   Status
	noop bool
}

var transitions = map[edge]outcome{
	{StatusNew, TransitionClaim}:                   {to: StatusReviewing},
	{StatusReviewing, TransitionResolve}:           {to: StatusResolved},
	{StatusResolved, TransitionResolve}:            {to: StatusResolved, noop: true},
	{StatusNew, TransitionEscalate}:                {to: StatusEscalatedEmergency},
	{StatusReviewing, TransitionEscalate}:          {to: StatusEscalatedEmergency},
	{StatusEscalatedEmergency, TransitionEscalate}: {to: StatusEscalatedEmergency, noop: true},
}

// Next looks up the transition table. noop is true when the alert is already
// in the target state and the call must return the stored record unchanged.
func Next(from Status, via Transition) (to Status, noop bool, err error) {
	out, ok := transitions[edge{from, via}]
	if !ok {
		return from, false, domainErrors.NewPolicyConflictError("alert", string(from), string(via))
	}
	return out.to, out.noop, nil
}
