package restoration

import (
	"fmt"
	"strings"
)

// Error reports a persisted combination that matches no known shape. It
// carries every raw field for diagnostics.
type Error struct {
	Reason string
	Fields Fields
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("restoration: %s (%s)", e.Reason, e.Fields)
}

// Fields are the raw persisted values; nil means the key is absent.
type Fields struct {
	Screen         *string
	Email          *string
	PublishableKey *string
	Name           *string
	Places         *string
	Tab            *string
	PushStatus     *string
	Experience     *string
	LocationAlways *string
}

// String lists present fields in key order.
func (f Fields) String() string {
	var parts []string
	for _, kv := range f.pairs() {
		if kv.value != nil {
			parts = append(parts, fmt.Sprintf("%s=%q", kv.key, *kv.value))
		}
	}
	if len(parts) == 0 {
		return "empty"
	}
	return strings.Join(parts, " ")
}

type pair struct {
	key   string
	value *string
}

func (f Fields) pairs() []pair {
	return []pair{
		{KeyScreen, f.Screen},
		{KeyEmail, f.Email},
		{KeyPublishableKey, f.PublishableKey},
		{KeyName, f.Name},
		{KeyPlaces, f.Places},
		{KeyTab, f.Tab},
		{KeyPushStatus, f.PushStatus},
		{KeyExperience, f.Experience},
		{KeyLocationAlways, f.LocationAlways},
	}
}

func (f *Fields) set(key string, value *string) {
	switch key {
	case KeyScreen:
		f.Screen = value
	case KeyEmail:
		f.Email = value
	case KeyPublishableKey:
		f.PublishableKey = value
	case KeyName:
		f.Name = value
	case KeyPlaces:
		f.Places = value
	case KeyTab:
		f.Tab = value
	case KeyPushStatus:
		f.PushStatus = value
	case KeyExperience:
		f.Experience = value
	case KeyLocationAlways:
		f.LocationAlways = value
	}
}
