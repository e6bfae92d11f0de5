package storage

import (
	"context"
	"errors"

	"github.com/hammamikhairi/gridvoice/internal/domain"
	"github.com/hammamikhairi/gridvoice/internal/logger"
)

// Compile-time interface check.
var _ domain.ArtifactStore = (*Tiered)(nil)

// Tiered reads through a list of stores, fastest first. A hit in a lower
// tier is copied into the tiers above it. Writes go to every tier.
type Tiered struct {
	tiers []domain.ArtifactStore
	log   *logger.Logger
}

// NewTiered combines stores. Nil entries are skipped.
func NewTiered(log *logger.Logger, tiers ...domain.ArtifactStore) *Tiered {
	t := &Tiered{log: log}
	for _, s := range tiers {
		if s != nil {
			t.tiers = append(t.tiers, s)
		}
	}
	return t
}

// Get returns the first hit. Errors from a tier other than a miss are
// logged and the next tier is tried.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, error) {
	for i, s := range t.tiers {
		data, err := s.Get(ctx, key)
		if err == nil {
			for _, upper := range t.tiers[:i] {
				if perr := upper.Put(ctx, key, data); perr != nil {
					t.log.Warn("tiered store: backfilling tier failed: %v", perr)
				}
			}
			return data, nil
		}
		if !errors.Is(err, domain.ErrCacheMiss) {
			t.log.Warn("tiered store: tier %d get failed: %v", i, err)
		}
	}
	return nil, domain.ErrCacheMiss
}

// Put writes to every tier and returns the joined errors.
func (t *Tiered) Put(ctx context.Context, key string, data []byte) error {
	var errs []error
	for _, s := range t.tiers {
		if err := s.Put(ctx, key, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
