package refresh

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/fieldflow/internal/model"
)

// DefaultGeocodeConcurrency bounds concurrent reverse-geocode calls when
// the environment does not.
const DefaultGeocodeConcurrency = 4

// Geocode fills in the address of every place that lacks one. Places are
// geocoded independently; a failed lookup leaves that address empty and
// never blocks the rest.
func Geocode(ctx context.Context, places []model.Place, reverse func(context.Context, model.Coordinate) (string, error), limit int) []model.Place {
	if reverse == nil || len(places) == 0 {
		return places
	}
	if limit <= 0 {
		limit = DefaultGeocodeConcurrency
	}

	out := make([]model.Place, len(places))
	copy(out, places)

	var g errgroup.Group
	g.SetLimit(limit)
	for i := range out {
		if out[i].Address != "" {
			continue
		}
		g.Go(func() error {
			addr, err := reverse(ctx, out[i].Location)
			if err == nil {
				out[i].Address = addr
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
