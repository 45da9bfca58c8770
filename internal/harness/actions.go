package harness

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"

	"github.com/roach88/fieldflow/internal/api"
	"github.com/roach88/fieldflow/internal/app"
	"github.com/roach88/fieldflow/internal/feature/deeplink"
	"github.com/roach88/fieldflow/internal/feature/refresh"
	"github.com/roach88/fieldflow/internal/feature/signin"
	"github.com/roach88/fieldflow/internal/model"
)

type constructor func(args map[string]any) (app.Action, error)

func constant(a app.Action) constructor {
	return func(map[string]any) (app.Action, error) { return a, nil }
}

// actions maps the sendable action names to their constructors. Effect
// results are not sendable.
var actions = map[string]constructor{
	"OSFinishedLaunching":      constant(app.OSFinishedLaunching{}),
	"AppBecameVisible":         constant(app.AppBecameVisible{}),
	"AppBecameInvisible":       constant(app.AppBecameInvisible{}),
	"ReceivedPushNotification": constant(app.ReceivedPushNotification{}),
	"StartTracking":            constant(app.StartTracking{}),
	"StopTracking":             constant(app.StopTracking{}),
	"SignOut":                  constant(app.SignOut{}),
	"RequestPermissions":       constant(app.RequestPermissions{}),
	"OpenSettings":             constant(app.OpenSettings{}),
	"RequestAlwaysLocation":    constant(app.RequestAlwaysLocation{}),
	"RequestPushAuthorization": constant(app.RequestPushAuthorization{}),
	"DismissAlert":             constant(app.DismissAlert{}),

	"OpenURL": func(args map[string]any) (app.Action, error) {
		url, err := argString(args, "url", true)
		return app.OpenURL{URL: url}, err
	},
	"DeepLinkOpened": func(args map[string]any) (app.Action, error) {
		key, err := argString(args, "publishable_key", true)
		if err != nil {
			return nil, err
		}
		driver, err := argString(args, "driver_id", false)
		return app.DeepLinkOpened{Link: model.DeepLink{PublishableKey: model.PublishableKey(key), DriverID: model.DriverID(driver)}}, err
	},
	"SelectTab": func(args map[string]any) (app.Action, error) {
		s, err := argString(args, "tab", true)
		if err != nil {
			return nil, err
		}
		tab, err := model.ParseTab(s)
		return app.SelectTab{Tab: tab}, err
	},
	"SelectOrder": func(args map[string]any) (app.Action, error) {
		id, err := argString(args, "id", false)
		if err != nil || id == "" {
			return app.SelectOrder{}, err
		}
		oid := model.OrderID(id)
		return app.SelectOrder{ID: &oid}, nil
	},
	"CancelOrder": func(args map[string]any) (app.Action, error) {
		id, err := argString(args, "id", true)
		return app.CancelOrder{ID: model.OrderID(id)}, err
	},
	"CompleteOrder": func(args map[string]any) (app.Action, error) {
		id, err := argString(args, "id", true)
		return app.CompleteOrder{ID: model.OrderID(id)}, err
	},

	"signin.EmailChanged": func(args map[string]any) (app.Action, error) {
		email, err := argString(args, "email", false)
		return app.SignInAction{Action: signin.EmailChanged{Email: model.Email(email)}}, err
	},
	"signin.PasswordChanged": func(args map[string]any) (app.Action, error) {
		password, err := argString(args, "password", false)
		return app.SignInAction{Action: signin.PasswordChanged{Password: password}}, err
	},
	"signin.SignIn":       constant(app.SignInAction{Action: signin.SignIn{}}),
	"signin.CancelSignIn": constant(app.SignInAction{Action: signin.CancelSignIn{}}),

	"deeplink.DriverIDChanged": func(args map[string]any) (app.Action, error) {
		driver, err := argString(args, "driver_id", false)
		return app.DriverIDAction{Action: deeplink.DriverIDChanged{DriverID: model.DriverID(driver)}}, err
	},
	"deeplink.SetDriverID": constant(app.DriverIDAction{Action: deeplink.SetDriverID{}}),

	"refresh.UpdateOrders":  constant(app.RefreshAction{Action: refresh.UpdateOrders{}}),
	"refresh.UpdatePlaces":  constant(app.RefreshAction{Action: refresh.UpdatePlaces{}}),
	"refresh.UpdateHistory": constant(app.RefreshAction{Action: refresh.UpdateHistory{}}),
	"refresh.UpdateAll":     constant(app.RefreshAction{Action: refresh.UpdateAll{}}),
	"refresh.CancelAll":     constant(app.RefreshAction{Action: refresh.CancelAll{}}),
}

// ParseAction builds the named action from its arguments.
func ParseAction(name string, args map[string]any) (app.Action, error) {
	c, ok := actions[name]
	if !ok {
		return nil, fmt.Errorf("unknown action %q", name)
	}
	a, err := c(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return a, nil
}

// ActionNames lists the sendable actions, sorted.
func ActionNames() []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func argString(args map[string]any, key string, required bool) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("argument %q is required", key)
		}
		return "", nil
	}
	switch v := v.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("argument %q: unsupported type %T", key, v)
	}
}

// failure returns the error injected by a fail step.
func failure(kind string) (injected error, ok bool) {
	switch kind {
	case "network":
		return &net.OpError{Op: "dial", Net: "tcp", Err: fmt.Errorf("connection refused")}, true
	case "timeout":
		return context.DeadlineExceeded, true
	case "server":
		return &api.StatusError{Status: 503, Code: "unavailable", Title: "Service Unavailable", Detail: "try again later"}, true
	case "expired":
		return api.Expired{}, true
	default:
		return nil, false
	}
}
