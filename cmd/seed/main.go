package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mlmcommerce/supplychain/internal/config"
	"github.com/mlmcommerce/supplychain/internal/db"
	"github.com/mlmcommerce/supplychain/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedMember struct {
	ID     string
	Name   string
	Rank   model.Rank
	Parent string
}

type seedProduct struct {
	ID    string
	Name  string
	Price string
	Specs []string
	Stock int
	Limit int
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return err
	}

	canSeed, err := shouldSeed(ctx, gdb)
	if err != nil {
		return err
	}
	if !canSeed {
		log.Printf("participants already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	participants := buildParticipants()
	products := buildProducts()

	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []any{&model.CommissionRecord{}, &model.PurchaseOrder{}, &model.ProductSpec{}, &model.Product{}, &model.Participant{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error; err != nil {
				return fmt.Errorf("clear %T: %w", table, err)
			}
		}
		if err := tx.Create(&participants).Error; err != nil {
			return fmt.Errorf("insert participants: %w", err)
		}
		if err := tx.Create(&products).Error; err != nil {
			return fmt.Errorf("insert products: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("seeded %d participants and %d products", len(participants), len(products))
	return nil
}

// buildParticipants returns the tree parents first, with each member's
// TeamPath filled from its chain.
func buildParticipants() []model.Participant {
	members := []seedMember{
		{ID: "dir-01", Name: "Director", Rank: model.RankDirector},
		{ID: "s5-01", Name: "Star Five", Rank: model.RankStar5, Parent: "dir-01"},
		{ID: "s4-01", Name: "Star Four", Rank: model.RankStar4, Parent: "s5-01"},
		{ID: "s3-01", Name: "Star Three", Rank: model.RankStar3, Parent: "s4-01"},
		{ID: "s2-01", Name: "Star Two", Rank: model.RankStar2, Parent: "s3-01"},
		{ID: "s1-01", Name: "Star One", Rank: model.RankStar1, Parent: "s2-01"},
		{ID: "s1-02", Name: "Star One (B)", Rank: model.RankStar1, Parent: "s3-01"},
		{ID: "vip-01", Name: "VIP", Rank: model.RankVIP, Parent: "s1-01"},
		{ID: "vip-02", Name: "VIP (B)", Rank: model.RankVIP, Parent: "s1-02"},
		{ID: "usr-01", Name: "Member", Rank: model.RankNormal, Parent: "vip-01"},
		{ID: "usr-02", Name: "Member (B)", Rank: model.RankNormal, Parent: "vip-01"},
	}

	paths := make(map[string]model.IDPath, len(members))
	out := make([]model.Participant, 0, len(members))
	for _, m := range members {
		p := model.Participant{ID: m.ID, Name: m.Name, Rank: m.Rank, Status: model.ParticipantStatusActive}
		if m.Parent != "" {
			parent := m.Parent
			p.ParentID = &parent
			p.TeamPath = append(append(model.IDPath{}, paths[m.Parent]...), m.Parent)
		}
		paths[m.ID] = p.TeamPath
		out = append(out, p)
	}
	return out
}

func buildProducts() []model.Product {
	catalog := []seedProduct{
		{ID: "prd-tea", Name: "Green Tea", Price: "12.50", Specs: []string{"100g", "250g"}, Stock: 200},
		{ID: "prd-serum", Name: "Moisture Serum", Price: "38.00", Specs: []string{"30ml"}, Stock: 80, Limit: 6},
		{ID: "prd-protein", Name: "Protein Blend", Price: "54.90", Specs: []string{"vanilla", "cocoa"}, Stock: 60},
	}

	out := make([]model.Product, 0, len(catalog))
	for _, c := range catalog {
		p := model.Product{ID: c.ID, Name: c.Name, Status: model.ProductStatusActive, PurchaseLimit: c.Limit}
		for i, name := range c.Specs {
			p.Specs = append(p.Specs, model.ProductSpec{
				ID:        fmt.Sprintf("%s-%d", c.ID, i+1),
				ProductID: c.ID,
				Name:      name,
				Stock:     c.Stock,
				Price:     decimal.RequireFromString(c.Price),
				IsActive:  true,
			})
			p.TotalStock += c.Stock
		}
		out = append(out, p)
	}
	return out
}

func shouldSeed(ctx context.Context, gdb *gorm.DB) (bool, error) {
	var cnt int64
	if err := gdb.WithContext(ctx).Model(&model.Participant{}).Count(&cnt).Error; err != nil {
		return false, fmt.Errorf("count participants: %w", err)
	}
	if cnt == 0 {
		return true, nil
	}
	return strings.EqualFold(os.Getenv("FORCE_SEED"), "true"), nil
}
