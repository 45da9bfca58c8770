package model

import "fmt"

// Tab is the selected tab of the main screen.
type Tab int

const (
	TabMap Tab = iota
	TabOrders
	TabPlaces
	TabProfile
)

var tabNames = [...]string{"map", "orders", "places", "profile"}

func (t Tab) String() string {
	if t >= 0 && int(t) < len(tabNames) {
		return tabNames[t]
	}
	return fmt.Sprintf("tab(%d)", int(t))
}

// ParseTab is the inverse of Tab.String.
func ParseTab(s string) (Tab, error) {
	for i, name := range tabNames {
		if name == s {
			return Tab(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tab %q", s)
}

// LocationAlways tracks whether the always-location prompt was shown.
type LocationAlways int

const (
	LocationAlwaysNotRequested LocationAlways = iota
	LocationAlwaysRequested
)

func (l LocationAlways) String() string {
	if l == LocationAlwaysRequested {
		return "requested"
	}
	return "not_requested"
}

// ParseLocationAlways is the inverse of LocationAlways.String.
func ParseLocationAlways(s string) (LocationAlways, error) {
	switch s {
	case "not_requested":
		return LocationAlwaysNotRequested, nil
	case "requested":
		return LocationAlwaysRequested, nil
	}
	return 0, fmt.Errorf("unknown location-always value %q", s)
}

// PushStatus tracks the push-permission splash.
type PushStatus int

const (
	PushNotShown PushStatus = iota
	PushWaitingForUser
	PushShown
)

var pushNames = [...]string{"not_shown", "waiting_for_user", "shown"}

func (p PushStatus) String() string {
	if p >= 0 && int(p) < len(pushNames) {
		return pushNames[p]
	}
	return fmt.Sprintf("push_status(%d)", int(p))
}

// ParsePushStatus is the inverse of PushStatus.String.
func ParsePushStatus(s string) (PushStatus, error) {
	for i, name := range pushNames {
		if name == s {
			return PushStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown push status %q", s)
}

// Experience distinguishes the first session from later ones.
type Experience int

const (
	ExperienceFirstRun Experience = iota
	ExperienceRegular
)

func (e Experience) String() string {
	if e == ExperienceRegular {
		return "regular"
	}
	return "first_run"
}

// ParseExperience is the inverse of Experience.String.
func ParseExperience(s string) (Experience, error) {
	switch s {
	case "first_run":
		return ExperienceFirstRun, nil
	case "regular":
		return ExperienceRegular, nil
	}
	return 0, fmt.Errorf("unknown experience %q", s)
}
