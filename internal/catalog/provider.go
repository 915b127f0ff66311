// Package catalog fronts the product repository for read traffic. Flash-sale
// spikes hammer the same handful of lookups, so the provider adds two guards
// in front of Postgres: a bloom filter of known product IDs that answers
// definite not-founds without a round-trip, and singleflight collapsing of
// concurrent same-ID lookups.
package catalog

import (
	"context"
	"encoding/binary"
	"strconv"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xenking/flashsale-storefront/internal/domain/product"
)

const (
	// Sized for a flash-sale catalog; false positives only cost a DB query.
	bloomCapacity = 1 << 16
	bloomFPR      = 0.001
)

// IDLister enumerates every product ID, used to arm the known-ID filter.
type IDLister interface {
	ListIDs(ctx context.Context) ([]int64, error)
}

// Provider implements product reads on top of a Repository.
type Provider struct {
	repo product.Repository
	ids  IDLister

	group singleflight.Group

	mu    sync.RWMutex
	known *bloom.BloomFilter
}

// NewProvider creates a Provider. Call Rebuild before serving traffic so the
// known-ID filter is armed; until then every lookup falls through to the
// repository.
func NewProvider(repo product.Repository, ids IDLister) *Provider {
	return &Provider{repo: repo, ids: ids}
}

// Rebuild reloads the known-ID filter from the repository. Products inserted
// after a rebuild are invisible to the filter until the next one, so Rebuild
// runs periodically (see StartRefresh).
func (p *Provider) Rebuild(ctx context.Context) error {
	ids, err := p.ids.ListIDs(ctx)
	if err != nil {
		return errors.Wrap(err, "list product ids")
	}

	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	for _, id := range ids {
		filter.Add(idKey(id))
	}

	p.mu.Lock()
	p.known = filter
	p.mu.Unlock()
	return nil
}

// StartRefresh launches a goroutine that rebuilds the known-ID filter every
// interval until ctx is cancelled.
func (p *Provider) StartRefresh(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.Rebuild(ctx); err != nil {
					zctx.From(ctx).Warn("Catalog filter rebuild failed", zap.Error(err))
				}
			}
		}
	}()
}

// mightExist reports whether id could be in the catalog. Always true before
// the first Rebuild.
func (p *Provider) mightExist(id int64) bool {
	p.mu.RLock()
	filter := p.known
	p.mu.RUnlock()

	if filter == nil {
		return true
	}
	return filter.Test(idKey(id))
}

// List returns the whole catalog.
func (p *Provider) List(ctx context.Context) ([]product.Product, error) {
	return p.repo.List(ctx)
}

// ListPage returns one catalog page.
func (p *Provider) ListPage(ctx context.Context, limit, offset int) ([]product.Product, error) {
	return p.repo.ListPage(ctx, limit, offset)
}

// GetByID returns a single product. Lookups for IDs the filter rules out
// return ErrNotFound without touching the repository; the rest are collapsed
// per-ID via singleflight.
func (p *Provider) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	if !p.mightExist(id) {
		return nil, product.ErrNotFound
	}

	v, err, _ := p.group.Do(strconv.FormatInt(id, 10), func() (any, error) {
		return p.repo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*product.Product), nil
}

// GetByIDs returns products matching any of the given IDs.
func (p *Provider) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	return p.repo.GetByIDs(ctx, ids)
}

// UpdateStock applies an external stock refresh and returns the updated
// product.
func (p *Provider) UpdateStock(ctx context.Context, id int64, stock int) (*product.Product, error) {
	if !p.mightExist(id) {
		return nil, product.ErrNotFound
	}
	return p.repo.UpdateStock(ctx, id, stock)
}

func idKey(id int64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(id))
	return buf[:]
}
