package app

import (
	"context"
	"time"

	"github.com/roach88/fieldflow/internal/api"
	"github.com/roach88/fieldflow/internal/feature/deeplink"
	"github.com/roach88/fieldflow/internal/feature/refresh"
	"github.com/roach88/fieldflow/internal/feature/restoration"
	"github.com/roach88/fieldflow/internal/feature/sdklaunch"
	"github.com/roach88/fieldflow/internal/feature/signin"
	"github.com/roach88/fieldflow/internal/model"
	"github.com/roach88/fieldflow/internal/report"
	"github.com/roach88/fieldflow/internal/sdk"
)

// DefaultSplashDelay is how long the first-run splash is shown.
const DefaultSplashDelay = 3 * time.Second

// DeepLinks is the OS source of deep links.
type DeepLinks struct {
	Subscribe func(ctx context.Context, yield func(model.DeepLink))
	Handle    func(ctx context.Context, url string)
}

// Environment holds every collaborator of the app. It is built once by
// whoever constructs the store and owns their lifetime.
type Environment struct {
	API         api.Environment
	SDK         sdk.Environment
	DeepLinks   DeepLinks
	Restoration restoration.Environment
	Report      report.Environment

	SplashDelay        time.Duration
	PasswordMinLength  int
	GeocodeConcurrency int
	Now                func() time.Time
}

func (e Environment) splashDelay() time.Duration {
	if e.SplashDelay <= 0 {
		return DefaultSplashDelay
	}
	return e.SplashDelay
}

func launchEnvironment(e Environment) sdklaunch.Environment {
	return sdklaunch.Environment{
		MakeSDK:   e.SDK.MakeSDK,
		Subscribe: e.SDK.SubscribeToStatusUpdates,
		Capture:   e.Report.Capture,
	}
}

func signInEnvironment(e Environment) signin.Environment {
	return signin.Environment{
		SignIn:            e.API.SignIn,
		PasswordMinLength: e.PasswordMinLength,
	}
}

func deepLinkEnvironment(e Environment) deeplink.Environment {
	return deeplink.Environment{
		SubscribeToDeepLinks: e.DeepLinks.Subscribe,
		HandleDeepLink:       e.DeepLinks.Handle,
		MakeSDK:              e.SDK.MakeSDK,
		SetDriverIdentity:    e.SDK.SetDriverIdentity,
	}
}

func refreshEnvironment(e Environment) refresh.Environment {
	return refresh.Environment{
		API:                e.API,
		GeocodeConcurrency: e.GeocodeConcurrency,
		Now:                e.Now,
	}
}
