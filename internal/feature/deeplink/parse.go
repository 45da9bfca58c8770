// Package deeplink resolves credentials delivered by URL and drives the
// driver-ID entry screen reached from a link that carried only a
// publishable key.
package deeplink

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/fieldflow/internal/model"
)

// Scheme is the custom URL scheme of the app.
const Scheme = "fieldflow"

// Query parameters carried by links.
const (
	ParamPublishableKey = "publishable_key"
	ParamDriverID       = "driver_id"
)

// ErrNoPublishableKey is returned for links without a publishable key.
var ErrNoPublishableKey = errors.New("deep link has no publishable key")

// Parse extracts the credential from a custom-scheme or universal link.
func Parse(raw string) (model.DeepLink, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return model.DeepLink{}, fmt.Errorf("parse deep link: %w", err)
	}
	switch u.Scheme {
	case Scheme, "https":
	default:
		return model.DeepLink{}, fmt.Errorf("parse deep link: unsupported scheme %q", u.Scheme)
	}

	q := u.Query()
	key := strings.TrimSpace(q.Get(ParamPublishableKey))
	if key == "" {
		return model.DeepLink{}, ErrNoPublishableKey
	}
	return model.DeepLink{
		PublishableKey: model.PublishableKey(key),
		DriverID:       NormalizeDriverID(q.Get(ParamDriverID)),
	}, nil
}

// NormalizeDriverID returns the NFC-normalized, trimmed driver id.
func NormalizeDriverID(s string) model.DriverID {
	return model.DriverID(norm.NFC.String(strings.TrimSpace(s)))
}
