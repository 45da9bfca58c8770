// Package signin is the interactive email/password sign-in flow.
package signin

import (
	"github.com/roach88/fieldflow/internal/api"
	"github.com/roach88/fieldflow/internal/model"
)

// Focus is the focused form field.
type Focus int

const (
	FocusNone Focus = iota
	FocusEmail
	FocusPassword
)

// State is the sign-in state machine.
type State interface{ isState() }

// Entering is the editable form. Error is zero when the last submission
// was valid.
type Entering struct {
	Email    model.Email
	Password string
	Focus    Focus
	Error    ValidationError
}

// Entered holds submitted credentials while the request is in flight and
// after it succeeded.
type Entered struct {
	Email    model.Email
	Password string
	Request  Request
}

func (Entering) isState() {}
func (Entered) isState()  {}

// Request is the progress of a submitted sign-in.
type Request interface{ isRequest() }

// InFlight means the sign-in request has not completed.
type InFlight struct{}

// Success carries the credential returned by the backend.
type Success struct{ Credential model.Credential }

func (InFlight) isRequest() {}
func (Success) isRequest()  {}

// Action is a sign-in action.
type Action interface{ isAction() }

type (
	EmailChanged    struct{ Email model.Email }
	PasswordChanged struct{ Password string }
	FocusChanged    struct{ Focus Focus }
	SignIn          struct{}
	CancelSignIn    struct{}
	// SignedIn is the response of the sign-in request. Err is nil on
	// success.
	SignedIn struct {
		Credential model.Credential
		Err        *api.Error[api.CognitoError]
	}
)

func (EmailChanged) isAction()    {}
func (PasswordChanged) isAction() {}
func (FocusChanged) isAction()    {}
func (SignIn) isAction()          {}
func (CancelSignIn) isAction()    {}
func (SignedIn) isAction()        {}
