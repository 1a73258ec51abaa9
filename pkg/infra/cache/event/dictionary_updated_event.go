package event

// DictionaryUpdatedEvent tells every instance to reload its snapshot.
type DictionaryUpdatedEvent struct {
	PatternID  string `json:"pattern_id"`
	PatternKey string `json:"pattern_key"`
	Version    int    `json:"version"`
	Origin     string `json:"origin"`
}

func (e DictionaryUpdatedEvent) Type() string {
	return DictionaryUpdatedEventType
}
