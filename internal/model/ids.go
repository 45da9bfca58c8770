package model

// PublishableKey identifies the account the device tracks for.
type PublishableKey string

// DeviceID is assigned by the SDK when it is made. Once known it never
// changes for the life of the process.
type DeviceID string

// DriverID is the human-readable identity attached to the device.
type DriverID string

// Email is a normalized sign-in email.
type Email string

// Token is a short-lived API access token.
type Token string

// OrderID identifies an order.
type OrderID string

// PlaceID identifies a place.
type PlaceID string

// Credential is the result of a successful sign-in.
type Credential struct {
	PublishableKey PublishableKey `json:"publishable_key"`
	Token          Token          `json:"token,omitempty"`
}

// DeepLink is a credential delivered from outside the app. An empty DriverID
// means the link only carried the publishable key.
type DeepLink struct {
	PublishableKey PublishableKey `json:"publishable_key"`
	DriverID       DriverID       `json:"driver_id,omitempty"`
}

// Partial reports whether the link lacks a driver identity.
func (d DeepLink) Partial() bool { return d.DriverID == "" }
