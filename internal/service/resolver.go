package service

import (
	"context"
	"strconv"
	"sync"

	"github.com/mlmcommerce/supplychain/internal/cache"
	"github.com/mlmcommerce/supplychain/internal/model"
	"github.com/mlmcommerce/supplychain/internal/obs"
	"github.com/mlmcommerce/supplychain/internal/repository"
)

const (
	DefaultTeamMaxDepth       = 10
	DefaultCommissionMaxDepth = 5
)

func ancestorsKey(id string, depth int) string {
	return "ancestors:" + id + ":" + strconv.Itoa(depth)
}

// Resolver walks the team tree upward. Every walk is iterative and bounded by
// a hop limit, so corrupted data with a cycle ends the walk instead of looping.
type Resolver struct {
	lookups      *lookups
	defaultDepth int

	// depths remembers which maxDepth values have cached ancestor lists so a
	// participant's entries can all be invalidated.
	depths sync.Map
	// dependents maps a participant id to the cached ancestor-list keys that
	// contain it, so moving a participant also drops its descendants' lists.
	dependents sync.Map
}

func newResolver(l *lookups, defaultDepth int) *Resolver {
	if defaultDepth <= 0 {
		defaultDepth = DefaultTeamMaxDepth
	}
	return &Resolver{lookups: l, defaultDepth: defaultDepth}
}

// direct returns a resolver that reads every participant from repo, bypassing
// the cache. Writes that depend on rank or status use it.
func (r *Resolver) direct(repo repository.ParticipantRepository) *Resolver {
	l := &lookups{participants: repo, products: r.lookups.products}
	return &Resolver{lookups: l, defaultDepth: r.defaultDepth}
}

// ResolveAncestors returns the ancestors of participantID, nearest first, at
// most maxDepth of them. Inactive ancestors are included. An unknown
// participant or a chain that points at a missing participant yields an empty
// list.
func (r *Resolver) ResolveAncestors(ctx context.Context, participantID string, maxDepth int) ([]model.Participant, error) {
	if maxDepth <= 0 {
		maxDepth = r.defaultDepth
	}
	fields := map[string]any{"participant_id": participantID, "max_depth": maxDepth}

	r.depths.Store(maxDepth, struct{}{})
	key := ancestorsKey(participantID, maxDepth)
	chain, found, err := cache.Fetch(ctx, r.lookups.store, key, func(ctx context.Context) ([]string, bool, error) {
		return r.ancestorIDs(ctx, participantID, maxDepth)
	})
	if err != nil {
		return nil, systemError(ctx, "resolve_ancestors", err, fields)
	}
	if !found || len(chain) == 0 {
		return []model.Participant{}, nil
	}
	r.track(key, chain)

	byID, err := r.lookups.participantsByID(ctx, chain)
	if err != nil {
		return nil, systemError(ctx, "resolve_ancestors", err, fields)
	}
	out := make([]model.Participant, 0, len(chain))
	for _, id := range chain {
		p, ok := byID[id]
		if !ok {
			obs.Warn(ctx, "resolver.broken_chain", map[string]any{"participant_id": participantID, "missing_id": id})
			return []model.Participant{}, nil
		}
		out = append(out, p)
	}
	return out, nil
}

// ancestorIDs lists ancestor ids nearest first. found is false only when the
// participant itself does not exist.
func (r *Resolver) ancestorIDs(ctx context.Context, participantID string, maxDepth int) ([]string, bool, error) {
	start, err := r.lookups.participant(ctx, participantID)
	if err != nil || start == nil {
		return nil, false, err
	}

	seen := map[string]bool{start.ID: true}
	ids := make([]string, 0, maxDepth)

	if len(start.TeamPath) > 0 {
		path := start.TeamPath.Last(maxDepth)
		for i := len(path) - 1; i >= 0; i-- {
			if seen[path[i]] {
				break
			}
			seen[path[i]] = true
			ids = append(ids, path[i])
		}
		return ids, true, nil
	}

	cur := start
	for len(ids) < maxDepth {
		parentID := cur.ParentIDValue()
		if parentID == "" || seen[parentID] {
			break
		}
		parent, err := r.lookups.participant(ctx, parentID)
		if err != nil {
			return nil, false, err
		}
		if parent == nil {
			obs.Warn(ctx, "resolver.broken_chain", map[string]any{"participant_id": participantID, "missing_id": parentID})
			return []string{}, true, nil
		}
		seen[parentID] = true
		ids = append(ids, parentID)
		cur = parent
	}
	return ids, true, nil
}

// Distance returns how many hops ancestorID is above descendantID, or 0 when
// it is not an ancestor within maxDepth.
func (r *Resolver) Distance(ctx context.Context, descendantID, ancestorID string, maxDepth int) (int, error) {
	ancestors, err := r.ResolveAncestors(ctx, descendantID, maxDepth)
	if err != nil {
		return 0, err
	}
	for i, a := range ancestors {
		if a.ID == ancestorID {
			return i + 1, nil
		}
	}
	return 0, nil
}

// CommissionPath returns the active uplines that share in a sale made by
// sellerID, nearest first. It follows ReferrerID, falling back to ParentID,
// for at most maxDepth hops. The seller is not part of the path.
func (r *Resolver) CommissionPath(ctx context.Context, sellerID string, maxDepth int) ([]model.Participant, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultCommissionMaxDepth
	}
	fields := map[string]any{"seller_id": sellerID, "max_depth": maxDepth}

	seller, err := r.lookups.participant(ctx, sellerID)
	if err != nil {
		return nil, systemError(ctx, "commission_path", err, fields)
	}
	if seller == nil {
		return []model.Participant{}, nil
	}

	path := []model.Participant{}
	seen := map[string]bool{seller.ID: true}
	cur := seller
	for hop := 0; hop < maxDepth; hop++ {
		uplineID := cur.CommissionUplineID()
		if uplineID == "" || seen[uplineID] {
			break
		}
		upline, err := r.lookups.participant(ctx, uplineID)
		if err != nil {
			return nil, systemError(ctx, "commission_path", err, fields)
		}
		if upline == nil {
			obs.Warn(ctx, "resolver.broken_commission_chain", map[string]any{"seller_id": sellerID, "missing_id": uplineID})
			break
		}
		seen[uplineID] = true
		if upline.IsActive() {
			path = append(path, *upline)
		}
		cur = upline
	}
	return path, nil
}

func (r *Resolver) track(key string, chain []string) {
	if r.lookups.store == nil {
		return
	}
	for _, id := range chain {
		v, _ := r.dependents.LoadOrStore(id, &sync.Map{})
		v.(*sync.Map).Store(key, struct{}{})
	}
}

// forget drops every cached entry derived from participantID: its own record,
// its ancestor lists and every descendant list that passes through it.
func (r *Resolver) forget(ctx context.Context, participantID string) {
	keys := []string{participantKey(participantID)}
	r.depths.Range(func(k, _ any) bool {
		keys = append(keys, ancestorsKey(participantID, k.(int)))
		return true
	})
	if v, ok := r.dependents.LoadAndDelete(participantID); ok {
		v.(*sync.Map).Range(func(k, _ any) bool {
			keys = append(keys, k.(string))
			return true
		})
	}
	r.lookups.forget(ctx, keys...)
}
