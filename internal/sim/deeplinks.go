package sim

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/fieldflow/internal/feature/deeplink"
	"github.com/roach88/fieldflow/internal/model"
)

// DeepLinks delivers opened links to subscribers. Links opened while nobody
// is subscribed are kept and delivered to the first subscriber, like the
// link that launched the app.
type DeepLinks struct {
	recorder

	mu      sync.Mutex
	pending []model.DeepLink
	links   *hub[model.DeepLink]
	logger  *slog.Logger
}

// NewDeepLinks creates a link source.
func NewDeepLinks(logger *slog.Logger) *DeepLinks {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeepLinks{links: newHub[model.DeepLink](), logger: logger}
}

// Open parses url and delivers it. Unparseable links are logged and
// dropped.
func (d *DeepLinks) Open(url string) error {
	d.record("open", url)
	link, err := deeplink.Parse(url)
	if err != nil {
		d.logger.Warn("ignored deep link", "url", url, "error", err)
		return err
	}
	d.Deliver(link)
	return nil
}

// Deliver publishes an already parsed link.
func (d *DeepLinks) Deliver(link model.DeepLink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.links.publish(link) == 0 {
		d.pending = append(d.pending, link)
	}
}

// Subscribe delivers pending and future links until ctx is done.
func (d *DeepLinks) Subscribe(ctx context.Context, yield func(model.DeepLink)) {
	d.mu.Lock()
	mb, release := d.links.subscribe(d.pending...)
	d.pending = nil
	d.mu.Unlock()
	defer release()

	mb.serve(ctx, yield)
}

// Handle is the OS hand-off of a URL to the app.
func (d *DeepLinks) Handle(_ context.Context, url string) {
	_ = d.Open(url)
}

// Subscribers returns the number of active subscriptions.
func (d *DeepLinks) Subscribers() int {
	return d.links.len()
}
