package service

import (
	"context"

	"github.com/mlmcommerce/supplychain/internal/model"
)

// Ancestor is the result of a skip-level search. Path holds the ids walked
// from the starting participant up to and including the ancestor.
type Ancestor struct {
	Participant model.Participant `json:"participant"`
	Rank        model.Rank        `json:"rank"`
	Path        []string          `json:"path"`
}

type SupplyOption struct {
	ParticipantID string     `json:"participantId"`
	Rank          model.Rank `json:"rank"`
	Distance      int        `json:"distance"`
}

type PathFinder struct {
	resolver *Resolver
	lookups  *lookups
}

// FindHigherRankAncestor returns the nearest active ancestor of startID whose
// rank index is greater than minRankIndex, or nil when none exists within
// maxDepth hops.
func (f *PathFinder) FindHigherRankAncestor(ctx context.Context, startID string, minRankIndex, maxDepth int) (*Ancestor, error) {
	ancestors, err := f.resolver.ResolveAncestors(ctx, startID, maxDepth)
	if err != nil {
		return nil, err
	}
	path := []string{startID}
	for _, a := range ancestors {
		path = append(path, a.ID)
		if a.IsActive() && a.Rank.Index() > minRankIndex {
			return &Ancestor{Participant: a, Rank: a.Rank, Path: path}, nil
		}
	}
	return nil, nil
}

// FindOptimalSupplyPath lists every active ancestor that outranks the
// participant, nearest first.
func (f *PathFinder) FindOptimalSupplyPath(ctx context.Context, participantID string, maxDepth int) ([]SupplyOption, error) {
	p, err := f.lookups.participant(ctx, participantID)
	if err != nil {
		return nil, systemError(ctx, "find_optimal_supply_path", err, map[string]any{"participant_id": participantID})
	}
	if p == nil {
		return []SupplyOption{}, nil
	}
	ancestors, err := f.resolver.ResolveAncestors(ctx, participantID, maxDepth)
	if err != nil {
		return nil, err
	}
	out := []SupplyOption{}
	for i, a := range ancestors {
		if a.IsActive() && a.Rank.Outranks(p.Rank) {
			out = append(out, SupplyOption{ParticipantID: a.ID, Rank: a.Rank, Distance: i + 1})
		}
	}
	return out, nil
}
