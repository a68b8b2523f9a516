package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/mlmcommerce/supplychain/internal/cache"
	"github.com/mlmcommerce/supplychain/internal/model"
	"github.com/mlmcommerce/supplychain/internal/repository"
	"github.com/shopspring/decimal"
)

// memDB is an in-memory implementation of every repository contract. WithinTx
// serializes transactions and restores a snapshot when fn fails.
type memDB struct {
	mu           sync.Mutex
	txMu         sync.Mutex
	participants map[string]model.Participant
	products     map[string]model.Product
	orders       map[string]model.PurchaseOrder
	commissions  []model.CommissionRecord

	participantLookups int
	batchLookups       int
	failReads          error
	failCommissions    error
}

func newMemDB() *memDB {
	return &memDB{
		participants: map[string]model.Participant{},
		products:     map[string]model.Product{},
		orders:       map[string]model.PurchaseOrder{},
	}
}

func strPtr(s string) *string { return &s }

// addParticipant adds an ACTIVE participant whose parent is parentID ("" for a root).
func (m *memDB) addParticipant(id string, rank model.Rank, parentID string) {
	p := model.Participant{ID: id, Name: id, Rank: rank, Status: model.ParticipantStatusActive}
	if parentID != "" {
		p.ParentID = strPtr(parentID)
	}
	m.mu.Lock()
	m.participants[id] = p
	m.mu.Unlock()
}

func (m *memDB) update(id string, fn func(p *model.Participant)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.participants[id]
	fn(&p)
	m.participants[id] = p
}

// addProduct adds an ACTIVE product with one active spec "<id>-spec".
func (m *memDB) addProduct(id string, stock int, price string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id] = model.Product{
		ID:         id,
		Name:       id,
		Status:     model.ProductStatusActive,
		TotalStock: stock,
		Specs: []model.ProductSpec{{
			ID:        id + "-spec",
			ProductID: id,
			Stock:     stock,
			Price:     decimal.RequireFromString(price),
			IsActive:  true,
		}},
	}
}

func (m *memDB) updateProduct(id string, fn func(p *model.Product)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := cloneProduct(m.products[id])
	fn(&p)
	m.products[id] = p
}

func (m *memDB) specStock(specID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		for _, s := range p.Specs {
			if s.ID == specID {
				return s.Stock
			}
		}
	}
	return -1
}

func (m *memDB) commissionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.commissions)
}

func cloneProduct(p model.Product) model.Product {
	p.Specs = append([]model.ProductSpec(nil), p.Specs...)
	return p
}

type memParticipants struct{ db *memDB }

func (r memParticipants) FindByID(_ context.Context, id string) (*model.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.participantLookups++
	if r.db.failReads != nil {
		return nil, r.db.failReads
	}
	p, ok := r.db.participants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r memParticipants) FindMany(_ context.Context, ids []string) ([]model.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.batchLookups++
	if r.db.failReads != nil {
		return nil, r.db.failReads
	}
	var out []model.Participant
	for _, id := range ids {
		if p, ok := r.db.participants[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type memProducts struct{ db *memDB }

func (r memProducts) FindByID(_ context.Context, id string) (*model.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failReads != nil {
		return nil, r.db.failReads
	}
	p, ok := r.db.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := cloneProduct(p)
	return &cp, nil
}

type memOrders struct{ db *memDB }

func (r memOrders) Create(_ context.Context, o *model.PurchaseOrder) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o.CreatedAt = time.Now()
	r.db.orders[o.ID] = *o
	return nil
}

func (r memOrders) FindByID(_ context.Context, id string) (*model.PurchaseOrder, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (r memOrders) adjustStock(specID string, delta int, guard bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for pid, p := range r.db.products {
		for i, s := range p.Specs {
			if s.ID != specID {
				continue
			}
			if guard && (!s.IsActive || s.Stock+delta < 0 || p.TotalStock+delta < 0) {
				return repository.ErrInsufficientStock
			}
			p = cloneProduct(p)
			p.Specs[i].Stock += delta
			p.TotalStock += delta
			r.db.products[pid] = p
			return nil
		}
	}
	if guard {
		return repository.ErrInsufficientStock
	}
	return repository.ErrNotFound
}

func (r memOrders) DecrementStock(_ context.Context, specID string, qty int) error {
	return r.adjustStock(specID, -qty, true)
}

func (r memOrders) RestoreStock(_ context.Context, specID string, qty int) error {
	return r.adjustStock(specID, qty, false)
}

func (r memOrders) Transition(_ context.Context, id string, from []model.OrderStatus, to model.OrderStatus, fields map[string]any) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if o.Status != f {
			continue
		}
		o.Status = to
		if ps, ok := fields["payment_status"].(model.PaymentStatus); ok {
			o.PaymentStatus = ps
		}
		r.db.orders[id] = o
		return true, nil
	}
	return false, nil
}

func (r memOrders) list(match func(model.PurchaseOrder) bool) []model.PurchaseOrder {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.PurchaseOrder
	for _, o := range r.db.orders {
		if match(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNo > out[j].OrderNo })
	return out
}

func (r memOrders) ListByBuyer(_ context.Context, buyerID string) ([]model.PurchaseOrder, error) {
	return r.list(func(o model.PurchaseOrder) bool { return o.BuyerID == buyerID }), nil
}

func (r memOrders) ListBySeller(_ context.Context, sellerID string) ([]model.PurchaseOrder, error) {
	return r.list(func(o model.PurchaseOrder) bool { return o.SellerID == sellerID }), nil
}

type memCommissions struct{ db *memDB }

func (r memCommissions) Create(ctx context.Context, rec *model.CommissionRecord) error {
	return r.CreateMany(ctx, []model.CommissionRecord{*rec})
}

func (r memCommissions) CreateMany(_ context.Context, recs []model.CommissionRecord) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failCommissions != nil {
		return r.db.failCommissions
	}
	r.db.commissions = append(r.db.commissions, recs...)
	return nil
}

func (r memCommissions) ListByOrder(_ context.Context, orderID string) ([]model.CommissionRecord, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.CommissionRecord
	for _, c := range r.db.commissions {
		if c.OrderID == orderID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

func (r memCommissions) ListByUser(_ context.Context, userID string) ([]model.CommissionRecord, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.CommissionRecord
	for _, c := range r.db.commissions {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	products := make(map[string]model.Product, len(m.products))
	for id, p := range m.products {
		products[id] = cloneProduct(p)
	}
	orders := make(map[string]model.PurchaseOrder, len(m.orders))
	for id, o := range m.orders {
		orders[id] = o
	}
	commissions := append([]model.CommissionRecord(nil), m.commissions...)
	m.mu.Unlock()

	err := fn(ctx, repository.Repositories{
		Participants: memParticipants{m},
		Products:     memProducts{m},
		Orders:       memOrders{m},
		Commissions:  memCommissions{m},
	})
	if err != nil {
		m.mu.Lock()
		m.products = products
		m.orders = orders
		m.commissions = commissions
		m.mu.Unlock()
	}
	return err
}

func newTestEngine(t *testing.T, db *memDB) *Engine {
	t.Helper()
	store := cache.NewLookup(256, time.Minute)
	return NewEngine(memParticipants{db}, memProducts{db}, memCommissions{db}, store, Options{})
}

func newTestOrders(t *testing.T, db *memDB) (*Engine, *OrderService) {
	t.Helper()
	e := newTestEngine(t, db)
	return e, NewOrderService(e, memOrders{db}, memCommissions{db}, db)
}

// chain adds ids[0] as root and every following id as the child of the one
// before it, with the given ranks.
func (m *memDB) chain(ids []string, ranks []model.Rank) {
	for i, id := range ids {
		parent := ""
		if i > 0 {
			parent = ids[i-1]
		}
		m.addParticipant(id, ranks[i], parent)
	}
}
