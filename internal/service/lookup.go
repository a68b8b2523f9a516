package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mlmcommerce/supplychain/internal/cache"
	"github.com/mlmcommerce/supplychain/internal/model"
	"github.com/mlmcommerce/supplychain/internal/obs"
	"github.com/mlmcommerce/supplychain/internal/repository"
)

func participantKey(id string) string { return "participant:" + id }
func productKey(id string) string { return "product:" + id }

// lookups reads participants and products through the shared cache.
// Absence is reported as a nil result and is never cached.
type lookups struct {
	participants repository.ParticipantRepository
	products     repository.ProductRepository
	store        cache.Store
}

func (l *lookups) participant(ctx context.Context, id string) (*model.Participant, error) {
	p, found, err := cache.Fetch(ctx, l.store, participantKey(id), func(ctx context.Context) (model.Participant, bool, error) {
		p, err := l.participants.FindByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return model.Participant{}, false, nil
		}
		if err != nil {
			return model.Participant{}, false, err
		}
		return *p, true, nil
	})
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// participantsByID serves what it can from the cache and loads the rest with a
// single batch query. Unknown ids are missing from the result.
func (l *lookups) participantsByID(ctx context.Context, ids []string) (map[string]model.Participant, error) {
	out := make(map[string]model.Participant, len(ids))
	var missing []string
	for _, id := range ids {
		if l.store != nil {
			raw, ok, err := l.store.Get(ctx, participantKey(id))
			if err != nil {
				obs.Warn(ctx, "cache.get_failed", map[string]any{"key": participantKey(id), "err": err})
			} else if ok {
				var p model.Participant
				if err := json.Unmarshal(raw, &p); err == nil {
					out[id] = p
					continue
				}
			}
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}
	loaded, err := l.participants.FindMany(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, p := range loaded {
		out[p.ID] = p
		if l.store != nil {
			if err := cache.Put(ctx, l.store, participantKey(p.ID), p); err != nil {
				obs.Warn(ctx, "cache.set_failed", map[string]any{"key": participantKey(p.ID), "err": err})
			}
		}
	}
	return out, nil
}

func (l *lookups) product(ctx context.Context, id string) (*model.Product, error) {
	p, found, err := cache.Fetch(ctx, l.store, productKey(id), func(ctx context.Context) (model.Product, bool, error) {
		p, err := l.products.FindByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return model.Product{}, false, nil
		}
		if err != nil {
			return model.Product{}, false, err
		}
		return *p, true, nil
	})
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

func (l *lookups) forget(ctx context.Context, keys ...string) {
	if l.store == nil || len(keys) == 0 {
		return
	}
	if err := l.store.Delete(ctx, keys...); err != nil {
		obs.Warn(ctx, "cache.delete_failed", map[string]any{"keys": keys, "err": err})
	}
}
