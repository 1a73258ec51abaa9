package event

import "reflect"

type Event interface {
	Type() string
}

var (
	DictionaryUpdatedEventType = "DictionaryUpdatedEvent"
	AlertChangedEventType      = "AlertChangedEvent"
)

var Registry = map[string]reflect.Type{
	DictionaryUpdatedEventType: reflect.TypeOf(DictionaryUpdatedEvent{}),
	AlertChangedEventType:      reflect.TypeOf(AlertChangedEvent{}),
}
