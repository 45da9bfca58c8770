package report

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlogReporter(t *testing.T) {
	var buf bytes.Buffer
	env := SlogReporter(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	ctx := context.Background()
	env.Capture(ctx, "impossible state")
	env.AddBreadcrumb(ctx, BreadcrumbError, "orders failed")
	env.UpdateUser(ctx, "dev-1")

	out := buf.String()
	assert.Contains(t, out, `level=WARN msg=captured component=report message="impossible state"`)
	assert.Contains(t, out, `type=error message="orders failed"`)
	assert.Contains(t, out, "device_id=dev-1")
}
