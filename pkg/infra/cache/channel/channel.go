package channel

type Channel string

const (
	DictionaryChannel Channel = "careguard:dictionary"
	AlertsChannel     Channel = "careguard:alerts"
)
