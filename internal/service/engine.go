package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/mlmcommerce/supplychain/internal/benefit"
	"github.com/mlmcommerce/supplychain/internal/cache"
	"github.com/mlmcommerce/supplychain/internal/model"
	"github.com/mlmcommerce/supplychain/internal/obs"
	"github.com/mlmcommerce/supplychain/internal/repository"
	"github.com/shopspring/decimal"
)

type Options struct {
	TeamMaxDepth       int
	CommissionMaxDepth int
	// Benefits defaults to benefit.Default().
	Benefits *benefit.Table
	Metrics  *obs.Metrics
}

// Engine is the purchase authorization and commission engine. It owns its
// cache; separate engines never share state.
type Engine struct {
	store      cache.Store
	lookups    *lookups
	resolver   *Resolver
	finder     *PathFinder
	validator  *Validator
	calculator *Calculator
	tracker    *obs.Tracker
	validate   *validator.Validate
}

// NewEngine wires the engine. store may be nil to disable caching.
func NewEngine(participants repository.ParticipantRepository, products repository.ProductRepository, commissions repository.CommissionRepository, store cache.Store, opts Options) *Engine {
	if opts.Benefits == nil {
		opts.Benefits = benefit.Default()
	}
	if opts.TeamMaxDepth <= 0 {
		opts.TeamMaxDepth = DefaultTeamMaxDepth
	}
	if opts.CommissionMaxDepth <= 0 {
		opts.CommissionMaxDepth = DefaultCommissionMaxDepth
	}

	l := &lookups{participants: participants, products: products, store: store}
	resolver := newResolver(l, opts.TeamMaxDepth)
	finder := &PathFinder{resolver: resolver, lookups: l}
	validate := validator.New()

	return &Engine{
		store:    store,
		lookups:  l,
		resolver: resolver,
		finder:   finder,
		validator: &Validator{
			lookups:  l,
			resolver: resolver,
			finder:   finder,
			benefits: opts.Benefits,
			validate: validate,
			metrics:  opts.Metrics,
			maxDepth: opts.TeamMaxDepth,
		},
		calculator: &Calculator{
			resolver:     resolver,
			benefits:     opts.Benefits,
			participants: participants,
			commissions:  commissions,
			metrics:      opts.Metrics,
			maxDepth:     opts.CommissionMaxDepth,
		},
		tracker:  obs.NewTracker(opts.Metrics),
		validate: validate,
	}
}

func (e *Engine) Authorize(ctx context.Context, req AuthorizeRequest) (Authorization, error) {
	done := e.tracker.Start("authorize")
	auth, err := e.validator.Authorize(ctx, req)
	done(err)
	return auth, err
}

func (e *Engine) Distribute(ctx context.Context, in DistributeInput) ([]model.CommissionRecord, error) {
	done := e.tracker.Start("distribute")
	records, err := e.calculator.Distribute(ctx, in)
	done(err)
	return records, err
}

func (e *Engine) PreviewCommission(ctx context.Context, sellerID string, sellerRank model.Rank, totalAmount decimal.Decimal, maxDepth int) (CommissionPreview, error) {
	done := e.tracker.Start("preview_commission")
	p, err := e.calculator.PreviewCommission(ctx, sellerID, sellerRank, totalAmount, maxDepth)
	done(err)
	return p, err
}

func (e *Engine) FindOptimalSupplyPath(ctx context.Context, participantID string, maxDepth int) ([]SupplyOption, error) {
	done := e.tracker.Start("find_optimal_supply_path")
	opts, err := e.finder.FindOptimalSupplyPath(ctx, participantID, maxDepth)
	done(err)
	return opts, err
}

func (e *Engine) FindHigherRankAncestor(ctx context.Context, startID string, minRankIndex, maxDepth int) (*Ancestor, error) {
	done := e.tracker.Start("find_higher_rank_ancestor")
	a, err := e.finder.FindHigherRankAncestor(ctx, startID, minRankIndex, maxDepth)
	done(err)
	return a, err
}

func (e *Engine) ResolveAncestors(ctx context.Context, participantID string, maxDepth int) ([]model.Participant, error) {
	done := e.tracker.Start("resolve_ancestors")
	list, err := e.resolver.ResolveAncestors(ctx, participantID, maxDepth)
	done(err)
	return list, err
}

// ClearCache drops every cached entry. Counters are kept.
func (e *Engine) ClearCache(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	return e.store.Clear(ctx)
}

func (e *Engine) CacheStats() cache.Stats {
	if e.store == nil {
		return cache.Stats{Backend: "none"}
	}
	return e.store.Stats()
}

func (e *Engine) PerformanceStats() []obs.OpStats {
	return e.tracker.Snapshot()
}

// InvalidateParticipant drops the cached participant, its ancestor lists and
// the cached ancestor lists of its descendants. Call it after changing a
// participant's rank, status or upline.
func (e *Engine) InvalidateParticipant(ctx context.Context, id string) {
	e.resolver.forget(ctx, id)
}

func (e *Engine) InvalidateProduct(ctx context.Context, id string) {
	e.lookups.forget(ctx, productKey(id))
}
