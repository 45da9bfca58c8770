package signin

import (
	"context"

	"github.com/roach88/fieldflow/internal/api"
	"github.com/roach88/fieldflow/internal/effect"
	"github.com/roach88/fieldflow/internal/model"
)

// RequestID is shared by every sign-in request so that a new submission
// replaces a stale one.
const RequestID effect.ID = "signin.request"

// Environment is what the sign-in reducer needs.
type Environment struct {
	SignIn            func(ctx context.Context, email model.Email, password string) (model.Credential, error)
	PasswordMinLength int
}

// Reduce is the sign-in reducer.
func Reduce(state *State, action Action, env Environment) effect.Effect[Action] {
	switch a := action.(type) {
	case EmailChanged:
		if s, ok := (*state).(Entering); ok {
			s.Email, s.Error = a.Email, NoValidationError
			*state = s
		}

	case PasswordChanged:
		if s, ok := (*state).(Entering); ok {
			s.Password, s.Error = a.Password, NoValidationError
			*state = s
		}

	case FocusChanged:
		if s, ok := (*state).(Entering); ok {
			s.Focus = a.Focus
			*state = s
		}

	case SignIn:
		s, ok := (*state).(Entering)
		if !ok {
			return effect.None[Action]()
		}
		if verr := Validate(s.Email, s.Password, env.PasswordMinLength); verr != NoValidationError {
			s.Error = verr
			*state = s
			return effect.None[Action]()
		}

		*state = Entered{Email: s.Email, Password: s.Password, Request: InFlight{}}

		email, password := NormalizeEmail(string(s.Email)), s.Password
		return effect.Task(func(ctx context.Context) Action {
			cred, err := env.SignIn(ctx, email, password)
			return SignedIn{Credential: cred, Err: api.Classify[api.CognitoError](err)}
		}).Cancellable(RequestID, true)

	case CancelSignIn:
		s, ok := (*state).(Entered)
		if !ok {
			return effect.None[Action]()
		}
		if _, inFlight := s.Request.(InFlight); !inFlight {
			return effect.None[Action]()
		}
		*state = Entering{Email: s.Email, Password: s.Password}
		return effect.Cancel[Action](RequestID)

	case SignedIn:
		s, ok := (*state).(Entered)
		if !ok {
			return effect.None[Action]()
		}
		if _, inFlight := s.Request.(InFlight); !inFlight {
			return effect.None[Action]()
		}
		if a.Err != nil {
			*state = Entering{Email: s.Email, Password: s.Password}
			return effect.None[Action]()
		}
		s.Request = Success{Credential: a.Credential}
		*state = s
	}
	return effect.None[Action]()
}
