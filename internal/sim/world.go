// Package sim provides in-process stand-ins for the collaborators of the
// app: the tracking SDK, the backend API with reverse geocoding, the OS
// deep-link source and the error reporter. The CLI and the scenario
// harness run the app against them.
package sim

import (
	"context"
	"log/slog"

	"github.com/roach88/fieldflow/internal/app"
	"github.com/roach88/fieldflow/internal/feature/restoration"
	"github.com/roach88/fieldflow/internal/model"
	"github.com/roach88/fieldflow/internal/report"
)

// Reporter records reports and forwards them to a structured logger.
type Reporter struct {
	recorder
	log report.Environment
}

// NewReporter creates a reporter logging through logger.
func NewReporter(logger *slog.Logger) *Reporter {
	return &Reporter{log: report.SlogReporter(logger)}
}

// Environment binds the reporter into a report.Environment.
func (r *Reporter) Environment() report.Environment {
	return report.Environment{
		Capture: func(ctx context.Context, message string) {
			r.record("capture", message)
			r.log.Capture(ctx, message)
		},
		AddBreadcrumb: func(ctx context.Context, kind report.BreadcrumbType, message string) {
			r.record("breadcrumb", string(kind), message)
			r.log.AddBreadcrumb(ctx, kind, message)
		},
		UpdateUser: func(ctx context.Context, device model.DeviceID) {
			r.record("update_user", string(device))
			r.log.UpdateUser(ctx, device)
		},
	}
}

// Config configures a World.
type Config struct {
	Logger *slog.Logger
	// KV backs state restoration. Default: a fresh MemoryKV.
	KV restoration.KV
	// Deterministic uses sequence generators ("device-1", "token-1", ...)
	// instead of UUIDv7.
	Deterministic bool
	SDK           []SDKOption
	API           []APIOption
}

// World bundles every simulated collaborator.
type World struct {
	SDK      *SDK
	API      *API
	Links    *DeepLinks
	Reporter *Reporter
	KV       restoration.KV
}

// NewWorld creates a world.
func NewWorld(cfg Config) *World {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	kv := cfg.KV
	if kv == nil {
		kv = restoration.NewMemoryKV()
	}

	var sdkOpts []SDKOption
	var apiOpts []APIOption
	if cfg.Deterministic {
		sdkOpts = append(sdkOpts, WithDeviceIDs(NewSequenceGenerator("device")))
		apiOpts = append(apiOpts, WithTokens(NewSequenceGenerator("token")))
	}

	return &World{
		SDK:      NewSDK(append(sdkOpts, cfg.SDK...)...),
		API:      NewAPI(append(apiOpts, cfg.API...)...),
		Links:    NewDeepLinks(logger),
		Reporter: NewReporter(logger),
		KV:       kv,
	}
}

// Environment returns an app environment wired to the world. Timing and
// policy fields are left at their defaults for the caller to set.
func (w *World) Environment() app.Environment {
	return app.Environment{
		API: w.API.Environment(),
		SDK: w.SDK.Environment(),
		DeepLinks: app.DeepLinks{
			Subscribe: w.Links.Subscribe,
			Handle:    w.Links.Handle,
		},
		Restoration: restoration.KVEnvironment(w.KV),
		Report:      w.Reporter.Environment(),
	}
}

// Release opens every gate of the SDK and the API.
func (w *World) Release() {
	w.SDK.ReleaseAll()
	w.API.ReleaseAll()
}
