// Package restoration persists the minimal snapshot the app needs to resume
// on relaunch and decodes it back through an explicit decision table.
package restoration

import (
	"slices"

	"github.com/roach88/fieldflow/internal/model"
)

// Flow is the persisted flow.
type Flow interface{ isFlow() }

// FirstRunFlow resumes at the first-run splash.
type FirstRunFlow struct{}

// SignInFlow resumes at the sign-in form, optionally prefilled.
type SignInFlow struct{ Email model.Email }

// MainFlow resumes at the main screen. PublishableKey and DriverID are
// always present.
type MainFlow struct {
	Places         []model.Place
	Tab            model.Tab
	PublishableKey model.PublishableKey
	DriverID       model.DriverID
}

func (FirstRunFlow) isFlow() {}
func (SignInFlow) isFlow()   {}
func (MainFlow) isFlow()     {}

// StorageState is the persisted snapshot. A nil Flow is stored as the
// first run.
type StorageState struct {
	Flow           Flow
	LocationAlways model.LocationAlways
	PushStatus     model.PushStatus
	Experience     model.Experience
}

// Equal reports whether two snapshots persist the same fields.
func (s StorageState) Equal(o StorageState) bool {
	if s.LocationAlways != o.LocationAlways || s.PushStatus != o.PushStatus || s.Experience != o.Experience {
		return false
	}
	return flowEqual(s.Flow, o.Flow)
}

func flowEqual(a, b Flow) bool {
	if a == nil {
		a = FirstRunFlow{}
	}
	if b == nil {
		b = FirstRunFlow{}
	}
	switch x := a.(type) {
	case MainFlow:
		y, ok := b.(MainFlow)
		return ok && x.Tab == y.Tab && x.PublishableKey == y.PublishableKey && x.DriverID == y.DriverID &&
			slices.Equal(x.Places, y.Places)
	default:
		return a == b
	}
}
