// Package report is the error-reporting collaborator. Calls are
// fire-and-forget and never influence control flow.
package report

import (
	"context"
	"log/slog"

	"github.com/roach88/fieldflow/internal/model"
)

// BreadcrumbType classifies a breadcrumb.
type BreadcrumbType string

const (
	BreadcrumbDebug      BreadcrumbType = "debug"
	BreadcrumbError      BreadcrumbType = "error"
	BreadcrumbNavigation BreadcrumbType = "navigation"
	BreadcrumbState      BreadcrumbType = "state"
	BreadcrumbUser       BreadcrumbType = "user"
)

// Environment receives diagnostics.
type Environment struct {
	Capture       func(ctx context.Context, message string)
	AddBreadcrumb func(ctx context.Context, kind BreadcrumbType, message string)
	UpdateUser    func(ctx context.Context, device model.DeviceID)
}

// SlogReporter reports through a structured logger. Captures are logged at
// warn level, breadcrumbs at debug.
func SlogReporter(logger *slog.Logger) Environment {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "report")
	return Environment{
		Capture: func(ctx context.Context, message string) {
			logger.WarnContext(ctx, "captured", "message", message)
		},
		AddBreadcrumb: func(ctx context.Context, kind BreadcrumbType, message string) {
			logger.DebugContext(ctx, "breadcrumb", "type", string(kind), "message", message)
		},
		UpdateUser: func(ctx context.Context, device model.DeviceID) {
			logger.InfoContext(ctx, "user updated", "device_id", string(device))
		},
	}
}
