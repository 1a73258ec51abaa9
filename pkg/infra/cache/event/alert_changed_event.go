package event

type AlertChangedEvent struct {
	AlertID   string `json:"alert_id"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Change    string `json:"change"`
	RiskScore int    `json:"risk_score"`
	Category  string `json:"category"`
	Origin    string `json:"origin"`
}

func (e AlertChangedEvent) Type() string {
	return AlertChangedEventType
}
