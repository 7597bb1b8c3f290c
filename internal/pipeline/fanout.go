package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/methane-encoder-service/internal/domain"
)

// FanOut loads every batch into each loader in order, stopping at the first
// failure. Because the pipeline retries the whole batch on error, loaders
// must tolerate seeing the same facility twice.
type FanOut []BatchLoader

func (f FanOut) LoadBatch(ctx context.Context, batch []domain.EncodedFacility) error {
	for i, l := range f {
		if err := l.LoadBatch(ctx, batch); err != nil {
			return fmt.Errorf("loader %d: %w", i, err)
		}
	}
	return nil
}
