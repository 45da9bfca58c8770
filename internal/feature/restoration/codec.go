package restoration

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/fieldflow/internal/model"
)

// Storage keys. The names are opaque and must stay stable across releases.
const (
	KeyScreen         = "ff.s"
	KeyEmail          = "ff.e"
	KeyPublishableKey = "ff.pk"
	KeyName           = "ff.n"
	KeyPlaces         = "ff.pl"
	KeyTab            = "ff.t"
	KeyPushStatus     = "ff.ps"
	KeyExperience     = "ff.x"
	KeyLocationAlways = "ff.la"
)

// Keys lists every storage key.
var Keys = []string{
	KeyScreen, KeyEmail, KeyPublishableKey, KeyName, KeyPlaces,
	KeyTab, KeyPushStatus, KeyExperience, KeyLocationAlways,
}

// Screen markers.
const (
	ScreenFirstRun = "firstRun"
	ScreenSignIn   = "signIn"
	ScreenMain     = "main"
)

// Decode applies the decision table to the raw fields.
//
//	all keys absent                               -> nil (fresh install)
//	no screen, publishable key and name           -> Main (legacy)
//	no screen, email only among flow fields       -> SignIn (legacy)
//	no screen, no flow fields                     -> FirstRun (legacy)
//	screen firstRun, no flow fields               -> FirstRun
//	screen signIn, no key/name/places             -> SignIn
//	screen main, publishable key and name         -> Main
//	anything else, or an unparsable value         -> *Error
func Decode(f Fields) (*StorageState, error) {
	if f == (Fields{}) {
		return nil, nil
	}

	fail := func(format string, args ...any) (*StorageState, error) {
		return nil, &Error{Reason: fmt.Sprintf(format, args...), Fields: f}
	}

	state := StorageState{}
	if f.LocationAlways != nil {
		v, err := model.ParseLocationAlways(*f.LocationAlways)
		if err != nil {
			return fail("%v", err)
		}
		state.LocationAlways = v
	}
	if f.PushStatus != nil {
		v, err := model.ParsePushStatus(*f.PushStatus)
		if err != nil {
			return fail("%v", err)
		}
		state.PushStatus = v
	}
	if f.Experience != nil {
		v, err := model.ParseExperience(*f.Experience)
		if err != nil {
			return fail("%v", err)
		}
		state.Experience = v
	}

	hasKey, hasName := f.PublishableKey != nil, f.Name != nil
	mainOnly := hasKey || hasName || f.Places != nil || f.Tab != nil

	decodeMain := func() (*StorageState, error) {
		if !hasKey || !hasName || *f.PublishableKey == "" || *f.Name == "" {
			return fail("main requires publishable key and name")
		}
		if f.Email != nil {
			return fail("main with email")
		}
		m := MainFlow{PublishableKey: model.PublishableKey(*f.PublishableKey), DriverID: model.DriverID(*f.Name)}
		if f.Tab != nil {
			tab, err := model.ParseTab(*f.Tab)
			if err != nil {
				return fail("%v", err)
			}
			m.Tab = tab
		}
		if f.Places != nil {
			if err := json.Unmarshal([]byte(*f.Places), &m.Places); err != nil {
				return fail("places: %v", err)
			}
			if len(m.Places) == 0 {
				m.Places = nil
			}
		}
		state.Flow = m
		return &state, nil
	}

	if f.Screen == nil {
		switch {
		case hasKey && hasName:
			return decodeMain()
		case mainOnly:
			return fail("partial main without screen")
		case f.Email != nil:
			state.Flow = SignInFlow{Email: model.Email(*f.Email)}
		default:
			state.Flow = FirstRunFlow{}
		}
		return &state, nil
	}

	switch *f.Screen {
	case ScreenFirstRun:
		if mainOnly || f.Email != nil {
			return fail("first run with flow fields")
		}
		state.Flow = FirstRunFlow{}
	case ScreenSignIn:
		if mainOnly {
			return fail("sign in with main fields")
		}
		s := SignInFlow{}
		if f.Email != nil {
			s.Email = model.Email(*f.Email)
		}
		state.Flow = s
	case ScreenMain:
		return decodeMain()
	default:
		return fail("unknown screen %q", *f.Screen)
	}
	return &state, nil
}

// Encode maps a snapshot to the value of every key; nil deletes the key.
// Every key is always present in the result so that a save never leaves a
// stale field from an earlier flow behind.
func Encode(s StorageState) (map[string]*string, error) {
	out := make(map[string]*string, len(Keys))
	for _, k := range Keys {
		out[k] = nil
	}

	str := func(v string) *string { return &v }
	out[KeyLocationAlways] = str(s.LocationAlways.String())
	out[KeyPushStatus] = str(s.PushStatus.String())
	out[KeyExperience] = str(s.Experience.String())

	switch f := s.Flow.(type) {
	case nil, FirstRunFlow:
		out[KeyScreen] = str(ScreenFirstRun)
	case SignInFlow:
		out[KeyScreen] = str(ScreenSignIn)
		if f.Email != "" {
			out[KeyEmail] = str(string(f.Email))
		}
	case MainFlow:
		if f.PublishableKey == "" || f.DriverID == "" {
			return nil, fmt.Errorf("encode main flow: publishable key and driver id are required")
		}
		out[KeyScreen] = str(ScreenMain)
		out[KeyPublishableKey] = str(string(f.PublishableKey))
		out[KeyName] = str(string(f.DriverID))
		out[KeyTab] = str(f.Tab.String())
		if len(f.Places) > 0 {
			raw, err := json.Marshal(f.Places)
			if err != nil {
				return nil, fmt.Errorf("encode places: %w", err)
			}
			out[KeyPlaces] = str(string(raw))
		}
	default:
		return nil, fmt.Errorf("encode: unknown flow %T", f)
	}
	return out, nil
}
